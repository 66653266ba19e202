package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"synergy/internal/game"
	"synergy/internal/render"

	"github.com/go-chi/chi/v5"
)

// ServerConfig wires the production server
type ServerConfig struct {
	Sessions       SessionStore
	EventLog       *game.EventLog
	Renderer       *render.Renderer
	RateLimit      RateLimitConfig
	MaxWSPerIP     int
	CORSOrigins    []string
	DisableLogging bool
}

// Server is the HTTP API server with WebSocket support
type Server struct {
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	eventLog    *game.EventLog
	httpServer  *http.Server
	stopStats   chan struct{}
	stopOnce    sync.Once
}

// NewServer builds the router and hub.
// Background workers do not start until Start is called; use Router
// with httptest to exercise endpoints without them.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		wsHub:       NewWebSocketHub(cfg.Sessions, cfg.CORSOrigins, cfg.MaxWSPerIP),
		rateLimiter: NewIPRateLimiter(cfg.RateLimit),
		eventLog:    cfg.EventLog,
		stopStats:   make(chan struct{}),
	}

	s.router = NewRouter(RouterConfig{
		Sessions:       cfg.Sessions,
		EventLog:       cfg.EventLog,
		Renderer:       cfg.Renderer,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    cfg.CORSOrigins,
		DisableLogging: cfg.DisableLogging,
	})

	s.setupWebSocketRoutes()

	return s
}

// setupWebSocketRoutes adds routes that need the hub instance
func (s *Server) setupWebSocketRoutes() {
	s.router.Get("/ws/{id}", s.wsHub.HandleWebSocket)
}

// StartWorkers launches the WebSocket hub and the event log metrics loop
func (s *Server) StartWorkers() {
	go s.wsHub.Run()
	go s.eventLogStatsLoop()
}

// Start launches background workers and serves on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.StartWorkers()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops accepting requests, closes WebSockets and stops workers
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.Stop()
	return err
}

// Stop stops background workers
func (s *Server) Stop() {
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	s.stopOnce.Do(func() { close(s.stopStats) })
}

func (s *Server) eventLogStatsLoop() {
	if s.eventLog == nil {
		return
	}
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopStats:
			return
		case <-ticker.C:
			UpdateEventLogStats(s.eventLog.GetTotalCount(), s.eventLog.GetDroppedCount())
		}
	}
}
