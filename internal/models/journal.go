package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entry represents a private journal entry owned by exactly one user
type Entry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Content   string             `bson:"content" json:"content"`
	IsPrivate bool               `bson:"is_private" json:"is_private"`
}
