package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rr.Header().Get(headerXContentTypeOptions))
	assert.Equal(t, "DENY", rr.Header().Get(headerXFrameOptions))
	assert.NotEmpty(t, rr.Header().Get(headerStrictTransportSecurity))
}

func TestHostCheck(t *testing.T) {
	tests := []struct {
		name        string
		allowedHost string
		host        string
		want        int
	}{
		{"disabled", "", "anything.example.com", http.StatusOK},
		{"match", "api.example.com", "api.example.com", http.StatusOK},
		{"match with port and case", "api.example.com", "API.example.com:8080", http.StatusOK},
		{"mismatch", "api.example.com", "evil.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host
			rr := httptest.NewRecorder()
			HostCheck(tt.allowedHost)(okHandler).ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestIPLimiters(t *testing.T) {
	l := newIPLimiters(rate.Every(time.Hour), 2)

	assert.True(t, l.allow("192.0.2.1"))
	assert.True(t, l.allow("192.0.2.1"))
	assert.False(t, l.allow("192.0.2.1"))

	// separate bucket per IP
	assert.True(t, l.allow("192.0.2.2"))
}

func TestIPLimiters_Sweep(t *testing.T) {
	l := newIPLimiters(rate.Every(time.Hour), 1)
	l.allow("192.0.2.1")
	l.allow("192.0.2.2")

	l.mu.Lock()
	l.entries["192.0.2.1"].lastUse = time.Now().Add(-2 * limiterIdleTTL)
	l.mu.Unlock()

	l.sweep(time.Now())

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.entries, "192.0.2.1")
	assert.Contains(t, l.entries, "192.0.2.2")
}

func TestLoginRateLimit_OnlyCredentialPaths(t *testing.T) {
	handler := LoginRateLimit(okHandler)

	// other paths are never limited
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
		req.RemoteAddr = "198.51.100.9:1000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	var last int
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "198.51.100.10:1000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		last = rr.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestProductionSecurity(t *testing.T) {
	assert.Len(t, ProductionSecurity("api.example.com"), 4)
}
