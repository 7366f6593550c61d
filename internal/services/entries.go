package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxPageSize caps an explicit list limit.
const MaxPageSize = 100

// EntryStore is owner-scoped entry storage. Implementations must apply the
// id and owner filter in a single store operation.
type EntryStore interface {
	Insert(ctx context.Context, entry *models.Entry) error
	FindOwned(ctx context.Context, id, owner primitive.ObjectID) (*models.Entry, error)
	ListOwned(ctx context.Context, owner primitive.ObjectID, limit, skip int64) ([]models.Entry, error)
	UpdateOwned(ctx context.Context, id, owner primitive.ObjectID, content string, now time.Time) (*models.Entry, error)
	DeleteOwned(ctx context.Context, id, owner primitive.ObjectID) error
}

// Page selects a window of the newest-first listing. Limit 0 means everything.
type Page struct {
	Limit int64
	Skip  int64
}

func (p Page) normalized() Page {
	if p.Limit < 0 {
		p.Limit = 0
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	return p
}

// EntryGuard exposes journal entries to their owner only. Another user's entry
// is reported exactly like a missing one.
type EntryGuard struct {
	entries EntryStore
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewEntryGuard(entries EntryStore, log *zap.SugaredLogger) *EntryGuard {
	return &EntryGuard{
		entries: entries,
		log:     log,
		now:     time.Now,
	}
}

func (g *EntryGuard) Create(ctx context.Context, identity *Identity, content string) (*models.Entry, error) {
	owner, err := identity.objectID()
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, invalid("Content is required")
	}

	now := g.timestamp()
	entry := &models.Entry{
		ID:        primitive.NewObjectID(),
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    owner,
		Content:   content,
		IsPrivate: true,
	}
	if err := g.entries.Insert(ctx, entry); err != nil {
		g.log.Errorw("failed to create entry", "user_id", identity.ID, "err", err)
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return entry, nil
}

func (g *EntryGuard) List(ctx context.Context, identity *Identity, page Page) ([]models.Entry, error) {
	owner, err := identity.objectID()
	if err != nil {
		return nil, err
	}

	page = page.normalized()
	entries, err := g.entries.ListOwned(ctx, owner, page.Limit, page.Skip)
	if err != nil {
		g.log.Errorw("failed to list entries", "user_id", identity.ID, "err", err)
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (g *EntryGuard) Get(ctx context.Context, identity *Identity, id string) (*models.Entry, error) {
	owner, entryID, err := g.scope(identity, id)
	if err != nil {
		return nil, err
	}

	entry, err := g.entries.FindOwned(ctx, entryID, owner)
	if err != nil {
		return nil, g.storeError("get", identity, err)
	}
	return entry, nil
}

func (g *EntryGuard) Update(ctx context.Context, identity *Identity, id, content string) (*models.Entry, error) {
	owner, entryID, err := g.scope(identity, id)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, invalid("Content is required")
	}

	entry, err := g.entries.UpdateOwned(ctx, entryID, owner, content, g.timestamp())
	if err != nil {
		return nil, g.storeError("update", identity, err)
	}
	return entry, nil
}

func (g *EntryGuard) Delete(ctx context.Context, identity *Identity, id string) error {
	owner, entryID, err := g.scope(identity, id)
	if err != nil {
		return err
	}

	if err := g.entries.DeleteOwned(ctx, entryID, owner); err != nil {
		return g.storeError("delete", identity, err)
	}
	return nil
}

// scope resolves the caller and entry ids. A malformed entry id cannot match
// any document, so it is reported as not found.
func (g *EntryGuard) scope(identity *Identity, id string) (primitive.ObjectID, primitive.ObjectID, error) {
	owner, err := identity.objectID()
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	entryID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, ErrNotFound
	}
	return owner, entryID, nil
}

func (g *EntryGuard) storeError(op string, identity *Identity, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	g.log.Errorw("entry store failure", "op", op, "user_id", identity.ID, "err", err)
	return fmt.Errorf("%s entry: %w", op, err)
}

// timestamp is truncated to the millisecond precision MongoDB stores.
func (g *EntryGuard) timestamp() time.Time {
	return g.now().UTC().Truncate(time.Millisecond)
}
