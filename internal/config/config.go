// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all simulation and server
// settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the core simulation settings.
type SimConfig struct {
	TickRate          int     // Simulation ticks per second
	Seed              int64   // RNG seed; 0 seeds from the clock
	SimulationRadius  float64 // Working set radius around the viewpoint
	ReconcileInterval float64 // Control reconciliation cadence, sim seconds
	EventLogPath      string  // JSONL event log path; empty disables persistence
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:          30,
		SimulationRadius:  200,
		ReconcileInterval: 5.0,
		EventLogPath:      "events.jsonl",
	}
}

// SimFromEnv returns simulation configuration with environment variable
// overrides. Environment variables take precedence over defaults.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if tr := getEnvInt("SIM_TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if s := getEnvInt("SIM_SEED", 0); s != 0 {
		cfg.Seed = int64(s)
	}
	if r := getEnvFloat("SIM_RADIUS", 0); r > 0 {
		cfg.SimulationRadius = r
	}
	if ri := getEnvFloat("SIM_RECONCILE_INTERVAL", 0); ri > 0 {
		cfg.ReconcileInterval = ri
	}
	if p := os.Getenv("SIM_EVENT_LOG"); p != "" {
		cfg.EventLogPath = p
	}

	return cfg
}

// =============================================================================
// PERFORMANCE GOVERNOR
// =============================================================================

// GovernorConfig tunes the adaptive fidelity governor.
type GovernorConfig struct {
	CheckInterval float64 // Seconds between governor checks
	LowFPS        float64 // Below this, degrade
	HighFPS       float64 // At or above this, recover
	MinVisible    int     // Lower bound of the level-2 visible cap
	MaxVisible    int     // Upper bound of the level-2 visible cap
}

// DefaultGovernor returns the default governor tuning.
func DefaultGovernor() GovernorConfig {
	return GovernorConfig{
		CheckInterval: 2.0,
		LowFPS:        25,
		HighFPS:       50,
		MinVisible:    6,
		MaxVisible:    24,
	}
}

// GovernorFromEnv returns governor configuration with environment
// variable overrides.
func GovernorFromEnv() GovernorConfig {
	cfg := DefaultGovernor()

	if ci := getEnvFloat("GOVERNOR_CHECK_INTERVAL", 0); ci > 0 {
		cfg.CheckInterval = ci
	}
	if low := getEnvFloat("GOVERNOR_LOW_FPS", 0); low > 0 {
		cfg.LowFPS = low
	}
	if high := getEnvFloat("GOVERNOR_HIGH_FPS", 0); high > 0 {
		cfg.HighFPS = high
	}
	if mn := getEnvInt("GOVERNOR_MIN_VISIBLE", 0); mn > 0 {
		cfg.MinVisible = mn
	}
	if mx := getEnvInt("GOVERNOR_MAX_VISIBLE", 0); mx > 0 {
		cfg.MaxVisible = mx
	}

	return cfg
}

// =============================================================================
// WORLD SEEDING
// =============================================================================

// WorldConfig describes the generated world: bounds, spatial grid and
// the initial population seeded at startup.
type WorldConfig struct {
	// Planar world bounds.
	MinX float64
	MaxX float64
	MinZ float64
	MaxZ float64

	GridCellSize float64 // Spatial grid cell size, world units

	Territories          int     // Number of territories to generate
	TerritoryRadius      float64 // Radius of each generated territory
	QueensPerWorld       int     // Queens installed at startup
	BasicPerTerritory    int     // Basic parasites seeded per queen territory
	TacticalPerTerritory int     // Tactical parasites seeded per queen territory
	WorkersPerTerritory  int     // Workers scattered per territory
	DefendersPerWorld    int     // Defenders scattered across the world
}

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		MinX:                 -200,
		MaxX:                 200,
		MinZ:                 -200,
		MaxZ:                 200,
		GridCellSize:         10,
		Territories:          4,
		TerritoryRadius:      40,
		QueensPerWorld:       2,
		BasicPerTerritory:    6,
		TacticalPerTerritory: 2,
		WorkersPerTerritory:  8,
		DefendersPerWorld:    6,
	}
}

// WorldFromEnv returns world configuration with environment variable
// overrides.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	if n := getEnvInt("WORLD_TERRITORIES", 0); n > 0 {
		cfg.Territories = n
	}
	if r := getEnvFloat("WORLD_TERRITORY_RADIUS", 0); r > 0 {
		cfg.TerritoryRadius = r
	}
	if n := getEnvInt("WORLD_QUEENS", 0); n > 0 {
		cfg.QueensPerWorld = n
	}
	if n := getEnvInt("WORLD_BASIC_PER_TERRITORY", -1); n >= 0 {
		cfg.BasicPerTerritory = n
	}
	if n := getEnvInt("WORLD_TACTICAL_PER_TERRITORY", -1); n >= 0 {
		cfg.TacticalPerTerritory = n
	}
	if n := getEnvInt("WORLD_WORKERS_PER_TERRITORY", -1); n >= 0 {
		cfg.WorkersPerTerritory = n
	}
	if n := getEnvInt("WORLD_DEFENDERS", -1); n >= 0 {
		cfg.DefendersPerWorld = n
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	RateLimitRPS   float64 // API requests per second per client IP
	RateLimitBurst int     // Burst allowance per client IP
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		RateLimitRPS:   10,
		RateLimitBurst: 20,
	}
}

// ServerFromEnv returns server configuration with environment variable
// overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if rps := getEnvFloat("SERVER_RATE_LIMIT_RPS", 0); rps > 0 {
		cfg.RateLimitRPS = rps
	}
	if b := getEnvInt("SERVER_RATE_LIMIT_BURST", 0); b > 0 {
		cfg.RateLimitBurst = b
	}

	return cfg
}

// =============================================================================
// RENDER CONFIGURATION
// =============================================================================

// RenderConfig holds the debug frame renderer settings.
type RenderConfig struct {
	Width  int
	Height int
}

// DefaultRender returns the default render configuration.
func DefaultRender() RenderConfig {
	return RenderConfig{
		Width:  1280,
		Height: 720,
	}
}

// RenderFromEnv returns render configuration with environment variable
// overrides.
func RenderFromEnv() RenderConfig {
	cfg := DefaultRender()

	if w := getEnvInt("RENDER_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("RENDER_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim      SimConfig
	Governor GovernorConfig
	World    WorldConfig
	Server   ServerConfig
	Render   RenderConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:      SimFromEnv(),
		Governor: GovernorFromEnv(),
		World:    WorldFromEnv(),
		Server:   ServerFromEnv(),
		Render:   RenderFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
