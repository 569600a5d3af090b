package main

import (
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"swarm-sim/internal/api"
	"swarm-sim/internal/config"
	"swarm-sim/internal/render"
	"swarm-sim/internal/sim"
	"swarm-sim/internal/sim/spatial"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🦠 ================================")
	log.Println("🦠  SWARM SIM - PARASITE ENGINE")
	log.Println("🦠 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	simCfg := appConfig.Sim
	worldCfg := appConfig.World
	serverCfg := appConfig.Server

	port := strconv.Itoa(serverCfg.Port)

	log.Printf("🎮 Config: %d TPS, %d territories, reconcile every %.1fs",
		simCfg.TickRate, worldCfg.Territories, simCfg.ReconcileInterval)

	// Build the world: territories laid out on a ring inside the bounds.
	territories := generateTerritories(worldCfg)
	authority, err := sim.NewTerritoryMap(territories)
	if err != nil {
		log.Fatalf("❌ Invalid world: %v", err)
	}

	grid := spatial.NewGrid(
		worldCfg.MinX, worldCfg.MinZ,
		worldCfg.MaxX-worldCfg.MinX,
		worldCfg.MaxZ-worldCfg.MinZ,
		worldCfg.GridCellSize,
	)

	// Frame meter fed from the tick loop; the governor reads it.
	meter := sim.NewTickMeter(float64(simCfg.TickRate))

	// WebSocket hub doubles as the engine's death reporter.
	hub := api.NewWebSocketHub()

	engine, err := sim.NewEngine(sim.EngineConfig{
		TickRate:  simCfg.TickRate,
		Authority: authority,
		Index:     grid,
		Viewpoint: sim.FixedViewpoint{},
		FrameRate: meter,
		Reporter:  hub,
		Governor: sim.GovernorConfig{
			CheckInterval: appConfig.Governor.CheckInterval,
			LowFPS:        appConfig.Governor.LowFPS,
			HighFPS:       appConfig.Governor.HighFPS,
			MinVisible:    appConfig.Governor.MinVisible,
			MaxVisible:    appConfig.Governor.MaxVisible,
		},
		SimulationRadius:  simCfg.SimulationRadius,
		ReconcileInterval: simCfg.ReconcileInterval,
		Seed:              simCfg.Seed,
	})
	if err != nil {
		log.Fatalf("❌ Engine init failed: %v", err)
	}

	engine.OnTick = func(tick uint64, duration time.Duration) {
		meter.Frame()
		api.RecordTick(duration)
	}

	// Seed the initial population.
	seedWorld(engine, authority, worldCfg, simCfg.Seed)

	// Start event log
	if simCfg.EventLogPath != "" {
		if err := engine.StartEventLog(simCfg.EventLogPath); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", simCfg.EventLogPath)
		}
	}

	// Start debug server
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	renderer := render.NewRenderer(render.Config{
		Width:  appConfig.Render.Width,
		Height: appConfig.Render.Height,
		MinX:   worldCfg.MinX,
		MaxX:   worldCfg.MaxX,
		MinZ:   worldCfg.MinZ,
		MaxZ:   worldCfg.MaxZ,
	})

	server := api.NewServerWithHub(engine, renderer, hub, api.RateLimitConfig{
		RequestsPerSecond: serverCfg.RateLimitRPS,
		Burst:             serverCfg.RateLimitBurst,
		CleanupInterval:   5 * time.Minute,
	})

	// Start simulation engine
	engine.Start()
	log.Println("✅ Simulation engine started")

	// Start API server in goroutine
	go func() {
		addr := ":" + port
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("🖼️ Debug frame: http://localhost%s/api/frame.png", addr)

		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	server.Stop()
	engine.StopEventLog()
	engine.Stop()
	log.Println("👋 Goodbye!")
}

// generateTerritories lays territories out evenly on a ring centered in
// the world bounds, leaving the middle open.
func generateTerritories(cfg config.WorldConfig) []*sim.Territory {
	cx := (cfg.MinX + cfg.MaxX) / 2
	cz := (cfg.MinZ + cfg.MaxZ) / 2
	ringRadius := math.Min(cfg.MaxX-cfg.MinX, cfg.MaxZ-cfg.MinZ)/2 - cfg.TerritoryRadius

	territories := make([]*sim.Territory, 0, cfg.Territories)
	for i := 0; i < cfg.Territories; i++ {
		angle := 2 * math.Pi * float64(i) / float64(cfg.Territories)
		territories = append(territories, &sim.Territory{
			ID:     uint64(i + 1),
			Center: sim.Vec3{X: cx + math.Cos(angle)*ringRadius, Z: cz + math.Sin(angle)*ringRadius},
			Radius: cfg.TerritoryRadius,
			Status: sim.StatusContested,
		})
	}
	return territories
}

// seedWorld installs queens in the first territories, spawns their
// initial broods, and scatters workers and defenders.
func seedWorld(engine *sim.Engine, authority *sim.TerritoryMap, cfg config.WorldConfig, seed int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	territories := authority.Territories()

	queens := cfg.QueensPerWorld
	if queens > len(territories) {
		queens = len(territories)
	}
	for i := 0; i < queens; i++ {
		t := territories[i]
		if _, err := engine.AddQueen(t.ID); err != nil {
			log.Printf("⚠️ Queen seeding failed for territory %d: %v", t.ID, err)
			continue
		}
		for j := 0; j < cfg.BasicPerTerritory; j++ {
			if _, err := engine.SpawnParasite(sim.VariantBasic, t.ID); err != nil {
				log.Printf("⚠️ Spawn failed: %v", err)
			}
		}
		for j := 0; j < cfg.TacticalPerTerritory; j++ {
			if _, err := engine.SpawnParasite(sim.VariantTactical, t.ID); err != nil {
				log.Printf("⚠️ Spawn failed: %v", err)
			}
		}
	}

	for _, t := range territories {
		for j := 0; j < cfg.WorkersPerTerritory; j++ {
			pos := randomInTerritory(rng, t)
			engine.AddWorker(pos, 100)
		}
	}

	for i := 0; i < cfg.DefendersPerWorld; i++ {
		t := territories[rng.Intn(len(territories))]
		engine.AddDefender(randomInTerritory(rng, t), 120)
	}

	log.Printf("🌍 World seeded: %d territories, %d queens, %d workers, %d defenders",
		len(territories), queens, len(territories)*cfg.WorkersPerTerritory, cfg.DefendersPerWorld)
}

// randomInTerritory picks a uniform point inside the territory circle.
func randomInTerritory(rng *rand.Rand, t *sim.Territory) sim.Vec3 {
	angle := rng.Float64() * 2 * math.Pi
	radius := math.Sqrt(rng.Float64()) * t.Radius * 0.9
	return sim.Vec3{
		X: t.Center.X + math.Cos(angle)*radius,
		Z: t.Center.Z + math.Sin(angle)*radius,
	}
}
