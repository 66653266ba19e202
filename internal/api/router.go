package api

import (
	"synergy/internal/game"
	"synergy/internal/render"
	"synergy/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SessionStore is the part of the session manager the API uses.
// Keep this minimal so tests can swap in a small fake.
type SessionStore interface {
	Create() (*session.Session, error)
	Get(id string) (*session.Session, error)
	Remove(id string) error
	List() []session.Summary
	Count() int
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Sessions:        manager,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	    DisableLogging:  true,
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Sessions hosts the games (required)
	Sessions SessionStore

	// EventLog is optional; its counters appear in /api/stats
	EventLog *game.EventLog

	// Renderer draws /frame.png. Nil uses a 20px renderer.
	Renderer *render.Renderer

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	// If both are nil, DefaultRateLimitConfig applies.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins lists allowed origins. Nil uses DefaultOrigins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware
	DisableLogging bool
}

type routerHandlers struct {
	sessions    SessionStore
	eventLog    *game.EventLog
	renderer    *render.Renderer
	rateLimiter *IPRateLimiter
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// It has no side effects beyond the rate limiter's cleanup goroutine
// when no limiter is passed in: no listeners, no session loops.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - order matters
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.NewRenderer(20)
	}

	h := &routerHandlers{
		sessions:    cfg.Sessions,
		eventLog:    cfg.EventLog,
		renderer:    renderer,
		rateLimiter: rateLimiter,
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.handleGetStats)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.handleCreateSession)
			r.Get("/", h.handleListSessions)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetSession)
				r.Delete("/", h.handleDeleteSession)
				r.Post("/input", h.handleInput)
				r.Get("/share", h.handleShare)
				r.Get("/frame.png", h.handleFrame)
			})
		})
	})

	return r
}
