package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"go.uber.org/zap"
)

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=handlers

// Authenticator is the account side of the API.
type Authenticator interface {
	Register(ctx context.Context, username, email, password string) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Logout() *services.Session
	GetProfile(ctx context.Context, identity *services.Identity) (*models.User, error)
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
}

type ProfileResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	auth         Authenticator
	log          *zap.SugaredLogger
	secureCookie bool
}

// NewAuthHandler builds the auth endpoints. secureCookie marks the session
// cookie Secure and should be set in production.
func NewAuthHandler(auth Authenticator, log *zap.SugaredLogger, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, log: log, secureCookie: secureCookie}
}

// Register handles account creation and opens a session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(session))
	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "User registered successfully",
		User:    session.User,
		Token:   session.Token,
	})
}

// Login checks credentials and opens a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// an unknown email is a client error on this route, not a missing resource
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "User not found")
			return
		}
		writeServiceError(w, h.log, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(session))
	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		User:    session.User,
		Token:   session.Token,
	})
}

// Logout replaces the session cookie with an expired one.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie(h.auth.Logout()))
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Logged out successfully"})
}

// Profile returns the caller's account.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.GetProfile(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Success: true, User: user})
}

// sessionCookie carries the token; an empty token produces an expiring cookie.
func (h *AuthHandler) sessionCookie(session *services.Session) *http.Cookie {
	c := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	}
	if session.Token == "" {
		c.MaxAge = -1
		return c
	}
	c.MaxAge = int(time.Until(session.ExpiresAt).Seconds())
	return c
}
