package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupMongoContainer(t *testing.T) (*mongo.Database, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	uri := fmt.Sprintf("mongodb://%s:%d", host, port.Int())
	client, db, err := Connect(ctx, uri, "serenify_test")
	require.NoError(t, err)
	require.NoError(t, EnsureIndexes(ctx, db))

	teardown := func() {
		Disconnect(client)
		container.Terminate(context.Background())
	}
	return db, teardown
}

func newUser(name string) *models.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.User{
		CreatedAt: now,
		UpdatedAt: now,
		Username:  name,
		Email:     name + "@example.com",
		Password:  "$2a$10$notarealhashbutlongenoughtolookone",
	}
}

func newEntry(owner primitive.ObjectID, content string, at time.Time) *models.Entry {
	return &models.Entry{
		CreatedAt: at,
		UpdatedAt: at,
		UserID:    owner,
		Content:   content,
		IsPrivate: true,
	}
}

func TestRepositories(t *testing.T) {
	db, teardown := setupMongoContainer(t)
	defer teardown()

	users := NewUserRepository(db)
	entries := NewEntryRepository(db)
	ctx := context.Background()

	t.Run("user uniqueness", func(t *testing.T) {
		alice := newUser("alice")
		require.NoError(t, users.Insert(ctx, alice))
		assert.False(t, alice.ID.IsZero())

		sameName := newUser("alice")
		sameName.Email = "other@example.com"
		assert.ErrorIs(t, users.Insert(ctx, sameName), ErrDuplicateKey)

		sameEmail := newUser("alice2")
		sameEmail.Email = "alice@example.com"
		assert.ErrorIs(t, users.Insert(ctx, sameEmail), ErrDuplicateKey)
	})

	t.Run("user lookups", func(t *testing.T) {
		bob := newUser("bob")
		require.NoError(t, users.Insert(ctx, bob))

		byEmail, err := users.FindByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, bob.ID, byEmail.ID)
		assert.Equal(t, bob.Password, byEmail.Password)

		byID, err := users.FindByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", byID.Username)
		assert.Empty(t, byID.Password)

		_, err = users.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = users.FindByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("entries are owner scoped", func(t *testing.T) {
		owner, intruder := primitive.NewObjectID(), primitive.NewObjectID()
		base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

		entry := newEntry(owner, "  verbatim\ncontent ", base)
		require.NoError(t, entries.Insert(ctx, entry))

		_, err := entries.FindOwned(ctx, entry.ID, intruder)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = entries.UpdateOwned(ctx, entry.ID, intruder, "hijack", base.Add(time.Hour))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, entries.DeleteOwned(ctx, entry.ID, intruder), ErrNotFound)

		got, err := entries.FindOwned(ctx, entry.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, "  verbatim\ncontent ", got.Content)
		assert.True(t, got.IsPrivate)
		assert.True(t, base.Equal(got.UpdatedAt))

		updated, err := entries.UpdateOwned(ctx, entry.ID, owner, "edited", base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "edited", updated.Content)
		assert.True(t, base.Add(time.Hour).Equal(updated.UpdatedAt))
		assert.True(t, base.Equal(updated.CreatedAt))

		require.NoError(t, entries.DeleteOwned(ctx, entry.ID, owner))
		_, err = entries.FindOwned(ctx, entry.ID, owner)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, entries.DeleteOwned(ctx, entry.ID, owner), ErrNotFound)
	})

	t.Run("list newest first with paging", func(t *testing.T) {
		owner, other := primitive.NewObjectID(), primitive.NewObjectID()
		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

		for i := 0; i < 5; i++ {
			at := base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, entries.Insert(ctx, newEntry(owner, fmt.Sprintf("mine %d", i), at)))
			require.NoError(t, entries.Insert(ctx, newEntry(other, fmt.Sprintf("theirs %d", i), at)))
		}

		all, err := entries.ListOwned(ctx, owner, 0, 0)
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i, e := range all {
			assert.Equal(t, owner, e.UserID)
			assert.Equal(t, fmt.Sprintf("mine %d", 4-i), e.Content)
		}

		page, err := entries.ListOwned(ctx, owner, 2, 1)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "mine 3", page[0].Content)
		assert.Equal(t, "mine 2", page[1].Content)

		none, err := entries.ListOwned(ctx, primitive.NewObjectID(), 0, 0)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, translate(dup), ErrDuplicateKey)

	other := fmt.Errorf("socket closed")
	assert.Equal(t, other, translate(other))
}
