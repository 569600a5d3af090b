package api

import (
	"io"

	"swarm-sim/internal/sim"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the simulation engine methods used by the API.
// This interface enables mocking for tests without spinning up the full
// tick loop. Keep this minimal - only include methods the API layer
// actually calls.
type EngineInterface interface {
	// GetState returns the current world state for rendering/API responses
	GetState() sim.WorldState
	// Stats returns the aggregate population snapshot
	Stats() sim.StatsSnapshot
	// SpawnParasite creates a parasite in the given territory
	SpawnParasite(variant sim.Variant, territoryID uint64) (*sim.Parasite, error)
	// AddQueen installs a queen as controller of a territory
	AddQueen(territoryID uint64) (*sim.Queen, error)
	// KillQueen deactivates a queen and releases its controlled set
	KillQueen(id uint64) bool
	// DamageParasite applies external damage to a parasite
	DamageParasite(id uint64, amount int) (destroyed, ok bool)
	// ValidateConsistency runs a control validation pass
	ValidateConsistency() sim.ConsistencyReport
	// Recalculate forces a full control attribution rebuild
	Recalculate()
	// GetEventLogStats returns event log counters
	GetEventLogStats() map[string]interface{}
}

// FrameRenderer draws a debug frame of the world state. The concrete
// implementation lives in internal/render.
type FrameRenderer interface {
	RenderPNG(state sim.WorldState, w io.Writer) error
}

// RouterConfig contains all dependencies needed to construct the HTTP
// router. Designed for dependency injection and testability.
type RouterConfig struct {
	// Engine is the simulation engine (required)
	Engine EngineInterface

	// Renderer draws /api/frame.png; nil disables the endpoint.
	Renderer FrameRenderer

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses
	// DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the defaults.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for
	// benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler dependencies for the router.
type routerHandlers struct {
	engine   EngineInterface
	renderer FrameRenderer
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS to reject early and save CPU.
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
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		engine:   cfg.Engine,
		renderer: cfg.Renderer,
	}

	r.Route("/api", func(r chi.Router) {
		// World state
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/territories", h.handleGetTerritories)

		// Population management
		r.Post("/parasite/spawn", h.handleSpawn)
		r.Post("/parasite/batch", h.handleBatchSpawn)
		r.Post("/parasite/damage", h.handleDamage)
		r.Post("/queen/add", h.handleQueenAdd)
		r.Post("/queen/kill", h.handleQueenKill)

		// Control reconciliation
		r.Get("/control/consistency", h.handleGetConsistency)
		r.Post("/control/reconcile", h.handleReconcile)

		// Event log
		r.Get("/events/stats", h.handleEventStats)

		// Debug frame
		if cfg.Renderer != nil {
			r.Get("/frame.png", h.handleFrame)
		}
	})

	return r
}
