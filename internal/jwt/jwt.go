package jwt

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is stamped into every token this service signs.
const Issuer = "serenify-journal"

var (
	ErrMissingSecret = errors.New("jwt: signing secret is empty")
	ErrTokenExpired  = errors.New("jwt: token expired")
	ErrTokenInvalid  = errors.New("jwt: token invalid")
)

// Claims is the signed session payload.
type Claims struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	jwtlib.RegisteredClaims
}

// JWT signs and validates HS256 session tokens.
type JWT struct {
	secret []byte
	exp    time.Duration
	now    func() time.Time
}

// New creates a JWT manager. It refuses an empty secret so misconfiguration
// surfaces at startup instead of on the first login.
func New(secretKey string, expiration time.Duration) (*JWT, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, ErrMissingSecret
	}
	return &JWT{
		secret: []byte(secretKey),
		exp:    expiration,
		now:    time.Now,
	}, nil
}

// Expiration returns the validity window of issued tokens.
func (j *JWT) Expiration() time.Duration {
	return j.exp
}

// Generate issues a token for the given identity claims.
func (j *JWT) Generate(id, email, username string) (string, error) {
	now := j.now()
	claims := Claims{
		ID:       id,
		Email:    email,
		Username: username,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(j.exp)),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// Parse validates the signature and expiry and returns the claims.
// Expired tokens yield ErrTokenExpired; every other failure yields ErrTokenInvalid.
func (j *JWT) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(tokenString, claims, func(t *jwtlib.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// GetTokenFromRequest extracts the bearer token from the Authorization header.
func GetTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}

	return parts[1], nil
}
