package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with a WebSocket hub for real-time
// updates and the death event feed.
type Server struct {
	engine      EngineInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// NewServer creates a new API server with default production
// configuration.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter()
// directly.
func NewServer(engine EngineInterface, renderer FrameRenderer) *Server {
	return NewServerWithHub(engine, renderer, NewWebSocketHub(), DefaultRateLimitConfig)
}

// NewServerWithHub creates an API server around an existing WebSocket
// hub. Used when the hub is constructed early so it can be handed to
// the engine as its death reporter.
func NewServerWithHub(engine EngineInterface, renderer FrameRenderer, hub *WebSocketHub, rlCfg RateLimitConfig) *Server {
	s := &Server{
		engine: engine,
		wsHub:  hub,
	}

	// Create rate limiter (tracked for cleanup on Stop)
	s.rateLimiter = NewIPRateLimiter(rlCfg)

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		Renderer:    renderer,
		RateLimiter: s.rateLimiter,
	})

	// WebSocket routes need the wsHub instance, so they can't be part of
	// the generic NewRouter factory.
	s.router.Get("/ws", s.handleWS)

	return s
}

// Hub exposes the WebSocket hub so the engine can be wired to it as a
// death reporter before Start.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Start begins the HTTP server AND starts background workers.
// This is the ONLY method that starts goroutines or opens network
// listeners. Call it only once.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.engine)
	go s.metricsLoop()

	log.Printf("🌐 API server starting on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// metricsLoop feeds population and event log gauges periodically.
func (s *Server) metricsLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := s.engine.Stats()
		for variant, count := range stats.ByVariant {
			UpdateParasiteCount(variant, count)
		}
		UpdateQueenCount(stats.ActiveQueens)
		UpdateGovernorState(stats.OptimizationLevel, stats.VisibleCap)

		logStats := s.engine.GetEventLogStats()
		total, _ := logStats["total"].(uint64)
		dropped, _ := logStats["dropped"].(uint64)
		UpdateEventLogStats(total, dropped)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}
