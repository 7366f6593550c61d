package routes

import (
	"net/http"

	"github.com/AnshRaj112/serenify-journal/internal/config"
	"github.com/AnshRaj112/serenify-journal/internal/handlers"
	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Authenticator covers both the auth endpoints and session verification.
type Authenticator interface {
	handlers.Authenticator
	middleware.SessionVerifier
}

// Deps are the collaborators the router is assembled from.
type Deps struct {
	Config  *config.Config
	Log     *zap.SugaredLogger
	Auth    Authenticator
	Entries handlers.EntryService
	// Limiter is optional; nil disables Redis-backed rate limiting.
	Limiter *middleware.RedisRateLimiter
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(d.Log))
	r.Use(middleware.CORS(d.Config.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit
	if d.Config.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(d.Config.AllowedHost) {
			r.Use(mw)
		}
	}

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	// Health check (no rate limit)
	r.Get("/health", handlers.Health)

	auth := handlers.NewAuthHandler(d.Auth, d.Log, d.Config.IsProduction())
	journal := handlers.NewJournalHandler(d.Entries, d.Log)
	requireSession := middleware.RequireSession(d.Auth, d.Log)

	r.Route("/api", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", auth.Register)
			r.Post("/login", auth.Login)
			r.Post("/logout", auth.Logout)
			r.With(requireSession).Get("/profile", auth.Profile)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Use(requireSession)
			r.Post("/", journal.CreateEntry)
			r.Get("/", journal.ListEntries)
			r.Get("/{id}", journal.GetEntry)
			r.Put("/{id}", journal.UpdateEntry)
			r.Delete("/{id}", journal.DeleteEntry)
		})
	})

	return r
}
