package database

import (
	"context"
	"time"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EntryRepository persists journal entries. Every method except Insert takes
// the owner and filters on it in the same query as the entry id.
type EntryRepository struct {
	col *mongo.Collection
}

func NewEntryRepository(db *mongo.Database) *EntryRepository {
	return &EntryRepository{col: db.Collection(EntriesCollection)}
}

func ownedFilter(id, owner primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "user_id": owner}
}

func (r *EntryRepository) Insert(ctx context.Context, entry *models.Entry) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, entry)
	return translate(err)
}

func (r *EntryRepository) FindOwned(ctx context.Context, id, owner primitive.ObjectID) (*models.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var entry models.Entry
	if err := r.col.FindOne(ctx, ownedFilter(id, owner)).Decode(&entry); err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

// ListOwned returns the owner's entries newest first. A zero limit means no limit.
func (r *EntryRepository) ListOwned(ctx context.Context, owner primitive.ObjectID, limit, skip int64) ([]models.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	if skip > 0 {
		findOptions.SetSkip(skip)
	}

	cursor, err := r.col.Find(ctx, bson.M{"user_id": owner}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []models.Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateOwned replaces the content and returns the document after the update.
func (r *EntryRepository) UpdateOwned(ctx context.Context, id, owner primitive.ObjectID, content string, now time.Time) (*models.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"content": content, "updated_at": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var entry models.Entry
	if err := r.col.FindOneAndUpdate(ctx, ownedFilter(id, owner), update, opts).Decode(&entry); err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *EntryRepository) DeleteOwned(ctx context.Context, id, owner primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return translate(r.col.FindOneAndDelete(ctx, ownedFilter(id, owner)).Err())
}
