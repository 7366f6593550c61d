package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/serenify-journal/internal/config"
	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/jwt"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are rejected up front.
const maxPasswordBytes = 72

// UserStore is the account storage the credential manager needs.
type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// CredentialConfig is the explicit configuration of a CredentialManager.
type CredentialConfig struct {
	Secret   string
	TokenTTL time.Duration // defaults to config.SessionDuration
}

// Session is the outcome of a successful register or login.
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// CredentialManager hashes and checks passwords and issues and verifies session tokens.
type CredentialManager struct {
	users  UserStore
	tokens *jwt.JWT
	log    *zap.SugaredLogger
	now    func() time.Time
}

// NewCredentialManager fails when the signing secret is missing.
func NewCredentialManager(cfg CredentialConfig, users UserStore, log *zap.SugaredLogger) (*CredentialManager, error) {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = config.SessionDuration
	}
	tokens, err := jwt.New(cfg.Secret, ttl)
	if err != nil {
		return nil, err
	}
	return &CredentialManager{
		users:  users,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}, nil
}

// TokenTTL returns the validity window of issued sessions.
func (m *CredentialManager) TokenTTL() time.Duration {
	return m.tokens.Expiration()
}

// Register creates an account with a hashed password and opens a session for it.
func (m *CredentialManager) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, invalid("Please fill all fields")
	}
	if len(password) > maxPasswordBytes {
		return nil, invalid("Password must be at most %d bytes", maxPasswordBytes)
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		m.log.Errorw("failed to hash password", "err", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := m.now().UTC().Truncate(time.Millisecond)
	user := &models.User{
		CreatedAt: now,
		UpdatedAt: now,
		Username:  username,
		Email:     email,
		Password:  hashedPassword,
	}
	if err := m.users.Insert(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			m.log.Infow("registration rejected, account exists", "username", username)
			return nil, ErrConflict
		}
		m.log.Errorw("failed to save user", "err", err)
		return nil, fmt.Errorf("save user: %w", err)
	}

	m.log.Infow("user registered", "user_id", user.ID.Hex())
	return m.issue(user)
}

// Login checks the password of the account registered under email.
func (m *CredentialManager) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("Please fill all fields")
	}

	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		m.log.Errorw("failed to get user", "err", err)
		return nil, fmt.Errorf("find user: %w", err)
	}

	valid, err := utils.VerifyPassword(password, user.Password)
	if err != nil {
		m.log.Errorw("stored password hash is unreadable", "user_id", user.ID.Hex(), "err", err)
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		m.log.Infow("invalid credentials", "user_id", user.ID.Hex())
		return nil, ErrInvalidCredentials
	}

	return m.issue(user)
}

// Logout ends a session client-side. Tokens are stateless, so the result is an
// empty session that has already expired; it never fails.
func (m *CredentialManager) Logout() *Session {
	return &Session{ExpiresAt: time.Unix(0, 0).UTC()}
}

// Verify checks a session token and returns the identity it asserts.
func (m *CredentialManager) Verify(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := m.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	return &Identity{
		ID:       claims.ID,
		Email:    claims.Email,
		Username: claims.Username,
	}, nil
}

// GetProfile loads the caller's account without the password hash.
func (m *CredentialManager) GetProfile(ctx context.Context, identity *Identity) (*models.User, error) {
	id, err := identity.objectID()
	if err != nil {
		return nil, err
	}

	user, err := m.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		m.log.Errorw("failed to load profile", "user_id", identity.ID, "err", err)
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.Password = ""
	return user, nil
}

func (m *CredentialManager) issue(user *models.User) (*Session, error) {
	token, err := m.tokens.Generate(user.ID.Hex(), user.Email, user.Username)
	if err != nil {
		m.log.Errorw("failed to generate JWT", "err", err)
		return nil, fmt.Errorf("sign token: %w", err)
	}

	out := *user
	out.Password = ""
	return &Session{
		User:      &out,
		Token:     token,
		ExpiresAt: m.now().Add(m.tokens.Expiration()),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
