// Package testutil holds in-memory stand-ins for the MongoDB repositories.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store mimics the users and entries collections, including the unique
// username/email indexes and the owner-scoped entry filters.
type Store struct {
	mu      sync.Mutex
	users   map[primitive.ObjectID]models.User
	entries map[primitive.ObjectID]models.Entry

	// Err, when set, is returned by every call.
	Err error
}

func NewStore() *Store {
	return &Store{
		users:   make(map[primitive.ObjectID]models.User),
		entries: make(map[primitive.ObjectID]models.Entry),
	}
}

// Users exposes the account half of the store.
func (s *Store) Users() *UserStore { return &UserStore{s} }

// Entries exposes the entry half of the store.
func (s *Store) Entries() *EntryStore { return &EntryStore{s} }

// RawUser returns the stored document, password hash included.
func (s *Store) RawUser(email string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return models.User{}, false
}

// EntryCount returns the number of stored entries across all users.
func (s *Store) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type UserStore struct{ s *Store }

func (u *UserStore) Insert(_ context.Context, user *models.User) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return database.ErrDuplicateKey
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = *user
	return nil
}

func (u *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, existing := range s.users {
		if existing.Email == email {
			out := existing
			return &out, nil
		}
	}
	return nil, database.ErrNotFound
}

func (u *UserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	existing, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	existing.Password = ""
	return &existing, nil
}

// Delete removes an account, leaving its entries behind.
func (u *UserStore) Delete(id primitive.ObjectID) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	delete(u.s.users, id)
}

type EntryStore struct{ s *Store }

func (e *EntryStore) Insert(_ context.Context, entry *models.Entry) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if _, ok := s.entries[entry.ID]; ok {
		return database.ErrDuplicateKey
	}
	s.entries[entry.ID] = *entry
	return nil
}

func (e *EntryStore) owned(id, owner primitive.ObjectID) (models.Entry, bool) {
	entry, ok := e.s.entries[id]
	if !ok || entry.UserID != owner {
		return models.Entry{}, false
	}
	return entry, true
}

func (e *EntryStore) FindOwned(_ context.Context, id, owner primitive.ObjectID) (*models.Entry, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	entry, ok := e.owned(id, owner)
	if !ok {
		return nil, database.ErrNotFound
	}
	return &entry, nil
}

func (e *EntryStore) ListOwned(_ context.Context, owner primitive.ObjectID, limit, skip int64) ([]models.Entry, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := []models.Entry{}
	for _, entry := range s.entries {
		if entry.UserID == owner {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})

	if skip > 0 {
		if skip >= int64(len(out)) {
			return []models.Entry{}, nil
		}
		out = out[skip:]
	}
	if limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}

func (e *EntryStore) UpdateOwned(_ context.Context, id, owner primitive.ObjectID, content string, now time.Time) (*models.Entry, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	entry, ok := e.owned(id, owner)
	if !ok {
		return nil, database.ErrNotFound
	}
	entry.Content = content
	entry.UpdatedAt = now
	s.entries[id] = entry
	return &entry, nil
}

func (e *EntryStore) DeleteOwned(_ context.Context, id, owner primitive.ObjectID) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := e.owned(id, owner); !ok {
		return database.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}
