package services

import "go.mongodb.org/mongo-driver/bson/primitive"

// Identity is the verified caller, taken from a session token.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (i *Identity) objectID() (primitive.ObjectID, error) {
	if i == nil {
		return primitive.NilObjectID, ErrUnauthenticated
	}
	id, err := primitive.ObjectIDFromHex(i.ID)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}
	return id, nil
}
