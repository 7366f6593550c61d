package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AnshRaj112/serenify-journal/internal/config"
	"github.com/AnshRaj112/serenify-journal/internal/logger"
	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"github.com/AnshRaj112/serenify-journal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
}

func newServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	store := testutil.NewStore()
	log := logger.Nop()

	auth, err := services.NewCredentialManager(services.CredentialConfig{Secret: "e2e-secret"}, store.Users(), log)
	require.NoError(t, err)

	return NewRouter(Deps{
		Config:  cfg,
		Log:     log,
		Auth:    auth,
		Entries: services.NewEntryGuard(store.Entries(), log),
	})
}

func devConfig() *config.Config {
	return &config.Config{
		Environment:    "development",
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)

	for _, ck := range rr.Result().Cookies() {
		if ck.Name == middleware.SessionCookie {
			if ck.MaxAge < 0 {
				c.cookie = nil
			} else {
				c.cookie = ck
			}
		}
	}
	return rr
}

func register(t *testing.T, router http.Handler, username string) *client {
	t.Helper()
	c := &client{t: t, router: router}
	rr := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "pass123",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.NotNil(t, c.cookie)
	return c
}

func TestJournalFlow(t *testing.T) {
	router := newServer(t, devConfig())

	alice := register(t, router, "alice")

	// a fresh login replaces the registration session
	alice.cookie = nil
	rr := alice.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "pass123",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, alice.cookie)

	rr = alice.do(http.MethodPost, "/api/entries", map[string]string{"content": "hello"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = alice.do(http.MethodGet, "/api/entries", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []models.Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Content)
	assert.True(t, entries[0].IsPrivate)

	rr = alice.do(http.MethodGet, "/api/auth/profile", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = alice.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, alice.cookie)

	rr = alice.do(http.MethodGet, "/api/entries", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"Unauthorized - No token provided"}`, rr.Body.String())
}

func TestCrossUserAccessIsNotFound(t *testing.T) {
	router := newServer(t, devConfig())
	alice := register(t, router, "alice")
	bob := register(t, router, "bob")

	rr := alice.do(http.MethodPost, "/api/entries", map[string]string{"content": "alice only"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var entry models.Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entry))
	path := "/api/entries/" + entry.ID.Hex()

	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodPut, path, map[string]string{"content": "mine now"}).Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodGet, "/api/entries/not-an-id", nil).Code)

	rr = bob.do(http.MethodGet, "/api/entries", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = alice.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entry))
	assert.Equal(t, "alice only", entry.Content)

	rr = alice.do(http.MethodPut, path, map[string]string{"content": "edited"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = alice.do(http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, path, nil).Code)
}

func TestRegisterConflictAndLoginFailures(t *testing.T) {
	router := newServer(t, devConfig())
	register(t, router, "alice")

	anon := &client{t: t, router: router}
	rr := anon.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "new@example.com", "password": "pass123",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = anon.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = anon.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "pass123",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, anon.cookie)
}

func TestBearerTokenAccepted(t *testing.T) {
	router := newServer(t, devConfig())
	anon := &client{t: t, router: router}
	rr := anon.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "carol", "email": "carol@example.com", "password": "pass123",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// a leftover cookie from an old session does not shadow the header
	req = httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "stale.cookie.value"})
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFallbackRoutes(t *testing.T) {
	router := newServer(t, devConfig())
	anon := &client{t: t, router: router}

	rr := anon.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = anon.do(http.MethodGet, "/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"Route not found"}`, rr.Body.String())

	rr = anon.do(http.MethodGet, "/api/auth/login", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"Method not allowed"}`, rr.Body.String())
}

func TestProductionRouter(t *testing.T) {
	router := newServer(t, &config.Config{
		Environment:    "production",
		AllowedHost:    "api.example.com",
		AllowedOrigins: []string{"https://example.com"},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "evil.example.com"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/register",
		bytes.NewBufferString(`{"username":"dave","email":"dave@example.com","password":"pass123"}`))
	req.Host = "api.example.com"
	req.RemoteAddr = "192.0.2.200:4000"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.Secure)
}
