package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AnshRaj112/serenify-journal/internal/jwt"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"go.uber.org/zap"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "token"

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=middleware

// SessionVerifier turns a raw token into a verified identity.
type SessionVerifier interface {
	Verify(token string) (*services.Identity, error)
}

type identityKey struct{}

// WithIdentity stores the verified caller in ctx.
func WithIdentity(ctx context.Context, identity *services.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the caller stored by RequireSession, or nil.
func IdentityFrom(ctx context.Context) *services.Identity {
	identity, _ := ctx.Value(identityKey{}).(*services.Identity)
	return identity
}

// SessionToken reads the token from the session cookie, falling back to a bearer header.
func SessionToken(r *http.Request) string {
	if c := cookieToken(r); c != "" {
		return c
	}
	return bearerToken(r)
}

func cookieToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func bearerToken(r *http.Request) string {
	token, err := jwt.GetTokenFromRequest(r)
	if err != nil {
		return ""
	}
	return token
}

// RequireSession rejects requests without a valid session with 401 and
// hands the verified identity to the next handler through the context.
// The cookie is tried first; a bearer token is still accepted when the
// cookie is stale or broken.
func RequireSession(verifier SessionVerifier, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := verifier.Verify(SessionToken(r))
			if err != nil {
				if bearer := bearerToken(r); bearer != "" && bearer != cookieToken(r) {
					identity, err = verifier.Verify(bearer)
				}
			}
			if err != nil {
				log.Debugw("authorization failed", "path", r.URL.Path, "err", err)
				writeUnauthorized(w, unauthorizedMessage(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return "Unauthorized - No token provided"
	case errors.Is(err, services.ErrExpiredToken):
		return "Unauthorized - Token expired"
	default:
		return "Unauthorized - Invalid token"
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
