package sim

import (
	"fmt"
	"sort"
)

// FidelityTier is the rendering-detail level the governor assigns to a
// parasite. Assignments are ephemeral: recomputed on fidelity passes,
// never persisted, never part of agent identity.
type FidelityTier uint8

const (
	FidelityFull FidelityTier = iota
	FidelityReduced
	FidelityMinimal
	FidelityHidden
)

// String returns a human-readable tier name.
func (t FidelityTier) String() string {
	switch t {
	case FidelityFull:
		return "full"
	case FidelityReduced:
		return "reduced"
	case FidelityMinimal:
		return "minimal"
	case FidelityHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// Optimization levels.
const (
	LevelNone       = 0 // comfortable frame rate, everything full fidelity
	LevelBasic      = 1 // moderate degradation, distance-band fidelity
	LevelAggressive = 2 // low frame rate + many agents, ranked visible cap
)

// Level-1 distance bands.
const (
	fullFidelityDistance    = 30.0
	reducedFidelityDistance = 60.0
	minimalFidelityDistance = 100.0
)

// tacticalPriorityBonus shrinks a tactical parasite's effective distance
// in level-2 ranking, keeping the interesting agents visible.
const tacticalPriorityBonus = 60.0

// aggressiveAgentThreshold is the agent count above which low frame
// rate escalates to level 2.
const aggressiveAgentThreshold = 7

// GovernorConfig tunes the performance governor. Thresholds are in
// frames per second, the cap bounds visible agents at level 2.
type GovernorConfig struct {
	CheckInterval float64
	LowFPS        float64
	HighFPS       float64
	MinVisible    int
	MaxVisible    int
}

// DefaultGovernorConfig returns the default governor tuning.
func DefaultGovernorConfig() GovernorConfig {
	return GovernorConfig{
		CheckInterval: 2.0,
		LowFPS:        25,
		HighFPS:       50,
		MinVisible:    6,
		MaxVisible:    24,
	}
}

// Governor samples frame rate at a fixed cadence and trades rendering
// fidelity for frame-time stability. It never affects simulation
// outcome, only the fidelity tier each parasite is assigned.
type Governor struct {
	fps       FrameRateSource   // nil tolerated -> no-op (fail open)
	viewpoint ViewpointProvider // nil tolerated -> no-op

	cfg        GovernorConfig
	level      int
	visibleCap int
	lastCheck  float64
	checked    bool

	assignments map[uint64]FidelityTier
	rankBuf     []rankedParasite
}

type rankedParasite struct {
	p     *Parasite
	score float64
}

// NewGovernor creates a governor. Misconfigured thresholds are a
// programming error and fail fast.
func NewGovernor(fps FrameRateSource, viewpoint ViewpointProvider, cfg GovernorConfig) (*Governor, error) {
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("governor: non-positive check interval %v", cfg.CheckInterval)
	}
	if cfg.MinVisible <= 0 || cfg.MaxVisible < cfg.MinVisible {
		return nil, fmt.Errorf("governor: bad visible cap bounds [%d, %d]", cfg.MinVisible, cfg.MaxVisible)
	}
	if cfg.LowFPS <= 0 || cfg.HighFPS <= cfg.LowFPS {
		return nil, fmt.Errorf("governor: bad fps thresholds low=%v high=%v", cfg.LowFPS, cfg.HighFPS)
	}
	return &Governor{
		fps:         fps,
		viewpoint:   viewpoint,
		cfg:         cfg,
		visibleCap:  cfg.MaxVisible,
		assignments: make(map[uint64]FidelityTier),
	}, nil
}

// Level returns the current optimization level.
func (g *Governor) Level() int { return g.level }

// VisibleCap returns the current level-2 visible-agent cap.
func (g *Governor) VisibleCap() int { return g.visibleCap }

// Tier returns the fidelity tier assigned to a parasite. Unassigned
// parasites render at full fidelity.
func (g *Governor) Tier(parasiteID uint64) FidelityTier {
	if tier, ok := g.assignments[parasiteID]; ok {
		return tier
	}
	return FidelityFull
}

// Check runs at most once per check interval. Missing collaborators
// make the pass a no-op: optimization is best-effort.
func (g *Governor) Check(now float64, parasites []*Parasite) {
	if g.checked && now-g.lastCheck < g.cfg.CheckInterval {
		return
	}
	g.lastCheck = now
	g.checked = true

	if g.fps == nil || g.viewpoint == nil {
		return
	}
	vp, ok := g.viewpoint.Viewpoint()
	if !ok {
		return
	}

	fps := g.fps.FPS()
	alive := 0
	for _, p := range parasites {
		if p.Alive() {
			alive++
		}
	}

	newLevel := g.level
	switch {
	case fps < g.cfg.LowFPS && alive > aggressiveAgentThreshold:
		newLevel = LevelAggressive
	case fps < (g.cfg.LowFPS+g.cfg.HighFPS)/2:
		newLevel = LevelBasic
	case fps >= g.cfg.HighFPS:
		newLevel = LevelNone
	}

	// The cap adapts slowly: shrink while degraded, recover one step
	// per check once the frame rate is comfortable again.
	capChanged := false
	if fps < g.cfg.LowFPS && g.visibleCap > g.cfg.MinVisible {
		g.visibleCap--
		capChanged = true
	} else if fps >= g.cfg.HighFPS && g.visibleCap < g.cfg.MaxVisible {
		g.visibleCap++
		capChanged = true
	}

	if newLevel != g.level || (newLevel == LevelAggressive && capChanged) {
		g.level = newLevel
		g.applyFidelity(vp, parasites)
	}
}

// applyFidelity runs a one-time fidelity pass for the current level.
func (g *Governor) applyFidelity(vp Vec3, parasites []*Parasite) {
	for id := range g.assignments {
		delete(g.assignments, id)
	}

	switch g.level {
	case LevelNone:
		// Full fidelity is the Tier default; empty map suffices.

	case LevelBasic:
		for _, p := range parasites {
			if !p.Alive() {
				continue
			}
			dist := p.Pos.PlanarDistance(vp)
			switch {
			case dist <= fullFidelityDistance:
				g.assignments[p.ID] = FidelityFull
			case dist <= reducedFidelityDistance:
				g.assignments[p.ID] = FidelityReduced
			case dist <= minimalFidelityDistance:
				g.assignments[p.ID] = FidelityMinimal
			default:
				g.assignments[p.ID] = FidelityHidden
			}
		}

	case LevelAggressive:
		g.rankBuf = g.rankBuf[:0]
		for _, p := range parasites {
			if !p.Alive() {
				continue
			}
			score := p.Pos.PlanarDistance(vp)
			if p.Variant == VariantTactical {
				score -= tacticalPriorityBonus
			}
			g.rankBuf = append(g.rankBuf, rankedParasite{p: p, score: score})
		}
		sort.Slice(g.rankBuf, func(i, j int) bool { return g.rankBuf[i].score < g.rankBuf[j].score })

		fullN := g.visibleCap / 4
		if fullN < 1 {
			fullN = 1
		}
		reducedN := g.visibleCap / 2
		for i, rp := range g.rankBuf {
			switch {
			case i < fullN:
				g.assignments[rp.p.ID] = FidelityFull
			case i < reducedN:
				g.assignments[rp.p.ID] = FidelityReduced
			case i < g.visibleCap:
				g.assignments[rp.p.ID] = FidelityMinimal
			default:
				g.assignments[rp.p.ID] = FidelityHidden
			}
		}
	}
}

// TierCounts returns how many parasites sit in each tier, for stats and
// metrics. Parasites without an assignment count as full.
func (g *Governor) TierCounts(parasites []*Parasite) map[string]int {
	counts := map[string]int{}
	for _, p := range parasites {
		if !p.Alive() {
			continue
		}
		counts[g.Tier(p.ID).String()]++
	}
	return counts
}
