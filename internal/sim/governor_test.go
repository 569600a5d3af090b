package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adjustableFPS is a FrameRateSource tests can steer.
type adjustableFPS struct{ fps float64 }

func (a *adjustableFPS) FPS() float64 { return a.fps }

func testGovernor(t *testing.T, fps FrameRateSource) *Governor {
	t.Helper()
	g, err := NewGovernor(fps, FixedViewpoint{}, DefaultGovernorConfig())
	require.NoError(t, err)
	return g
}

// spawnSwarm creates n live parasites in a line away from the origin
// viewpoint, one every 10 units.
func spawnSwarm(t *testing.T, n int) []*Parasite {
	t.Helper()
	parasites := make([]*Parasite, 0, n)
	for i := 0; i < n; i++ {
		p, err := NewParasite(uint64(i+1), VariantBasic, 0, Vec3{}, 200)
		require.NoError(t, err)
		p.Pos = Vec3{X: float64(i) * 10}
		parasites = append(parasites, p)
	}
	return parasites
}

// TestNewGovernorValidation verifies misconfiguration fails fast.
func TestNewGovernorValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  GovernorConfig
	}{
		{"zero interval", GovernorConfig{CheckInterval: 0, LowFPS: 25, HighFPS: 50, MinVisible: 6, MaxVisible: 24}},
		{"zero min visible", GovernorConfig{CheckInterval: 2, LowFPS: 25, HighFPS: 50, MinVisible: 0, MaxVisible: 24}},
		{"max below min", GovernorConfig{CheckInterval: 2, LowFPS: 25, HighFPS: 50, MinVisible: 10, MaxVisible: 5}},
		{"high below low", GovernorConfig{CheckInterval: 2, LowFPS: 50, HighFPS: 25, MinVisible: 6, MaxVisible: 24}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGovernor(StaticFPS(30), FixedViewpoint{}, tt.cfg)
			assert.Error(t, err)
		})
	}
}

// TestGovernorLevelTransitions verifies the three-level escalation and
// recovery thresholds.
func TestGovernorLevelTransitions(t *testing.T) {
	fps := &adjustableFPS{fps: 60}
	g := testGovernor(t, fps)
	parasites := spawnSwarm(t, 10)

	g.Check(0, parasites)
	assert.Equal(t, LevelNone, g.Level())

	// Low FPS with a big swarm escalates straight to aggressive.
	fps.fps = 20
	g.Check(10, parasites)
	assert.Equal(t, LevelAggressive, g.Level())

	// Mid-range FPS settles at basic.
	fps.fps = 35
	g.Check(20, parasites)
	assert.Equal(t, LevelBasic, g.Level())

	// Comfortable FPS recovers fully.
	fps.fps = 60
	g.Check(30, parasites)
	assert.Equal(t, LevelNone, g.Level())
}

// TestGovernorLowFPSSmallSwarm verifies low FPS with few agents stays at
// basic rather than aggressive.
func TestGovernorLowFPSSmallSwarm(t *testing.T) {
	fps := &adjustableFPS{fps: 20}
	g := testGovernor(t, fps)
	parasites := spawnSwarm(t, aggressiveAgentThreshold) // not above threshold

	g.Check(0, parasites)
	assert.Equal(t, LevelBasic, g.Level())
}

// TestGovernorHysteresis verifies the level holds steady in the
// comfortable-but-not-great band.
func TestGovernorHysteresis(t *testing.T) {
	fps := &adjustableFPS{fps: 20}
	g := testGovernor(t, fps)
	parasites := spawnSwarm(t, 10)

	g.Check(0, parasites)
	require.Equal(t, LevelAggressive, g.Level())

	// 40 FPS is above the midpoint but below HighFPS: keep the level.
	fps.fps = 40
	g.Check(10, parasites)
	assert.Equal(t, LevelAggressive, g.Level())
}

// TestGovernorCheckInterval verifies checks are gated by the interval.
func TestGovernorCheckInterval(t *testing.T) {
	fps := &adjustableFPS{fps: 20}
	g := testGovernor(t, fps)
	parasites := spawnSwarm(t, 10)

	g.Check(0, parasites)
	require.Equal(t, LevelAggressive, g.Level())

	// Recovery signal inside the interval is ignored.
	fps.fps = 60
	g.Check(1.0, parasites)
	assert.Equal(t, LevelAggressive, g.Level())

	g.Check(2.5, parasites)
	assert.Equal(t, LevelNone, g.Level())
}

// TestGovernorCapAdaptsMonotonically verifies the visible cap moves one
// step per check and respects its bounds.
func TestGovernorCapAdaptsMonotonically(t *testing.T) {
	cfg := DefaultGovernorConfig()
	fps := &adjustableFPS{fps: 10}
	g, err := NewGovernor(fps, FixedViewpoint{}, cfg)
	require.NoError(t, err)
	parasites := spawnSwarm(t, 30)

	prev := g.VisibleCap()
	assert.Equal(t, cfg.MaxVisible, prev)

	// Sustained low FPS walks the cap down to MinVisible, one per check.
	for i := 0; i < cfg.MaxVisible; i++ {
		g.Check(float64(i)*cfg.CheckInterval, parasites)
		cur := g.VisibleCap()
		assert.GreaterOrEqual(t, prev, cur, "cap must not rise under low FPS")
		assert.GreaterOrEqual(t, cur, cfg.MinVisible)
		assert.LessOrEqual(t, prev-cur, 1, "cap moves at most one step per check")
		prev = cur
	}
	assert.Equal(t, cfg.MinVisible, g.VisibleCap())

	// Sustained recovery walks it back up to MaxVisible.
	fps.fps = 60
	for i := 0; i < cfg.MaxVisible+5; i++ {
		g.Check(1000+float64(i)*cfg.CheckInterval, parasites)
	}
	assert.Equal(t, cfg.MaxVisible, g.VisibleCap())
}

// TestGovernorDistanceBands verifies level-1 fidelity follows the
// distance bands.
func TestGovernorDistanceBands(t *testing.T) {
	fps := &adjustableFPS{fps: 30} // mid band, small swarm -> level 1
	g := testGovernor(t, fps)

	mk := func(id uint64, dist float64) *Parasite {
		p, err := NewParasite(id, VariantBasic, 0, Vec3{}, 200)
		require.NoError(t, err)
		p.Pos = Vec3{X: dist}
		return p
	}
	parasites := []*Parasite{
		mk(1, 10),  // full
		mk(2, 45),  // reduced
		mk(3, 80),  // minimal
		mk(4, 150), // hidden
	}

	g.Check(0, parasites)
	require.Equal(t, LevelBasic, g.Level())

	assert.Equal(t, FidelityFull, g.Tier(1))
	assert.Equal(t, FidelityReduced, g.Tier(2))
	assert.Equal(t, FidelityMinimal, g.Tier(3))
	assert.Equal(t, FidelityHidden, g.Tier(4))
}

// TestGovernorAggressiveCap verifies level-2 ranking hides everything
// beyond the visible cap and prioritizes tactical parasites.
func TestGovernorAggressiveCap(t *testing.T) {
	cfg := DefaultGovernorConfig()
	fps := &adjustableFPS{fps: 10}
	g, err := NewGovernor(fps, FixedViewpoint{}, cfg)
	require.NoError(t, err)

	parasites := spawnSwarm(t, 40)
	// An agent just outside the plain distance cut is tactical: the
	// priority bonus must pull it inside the visible set.
	far := parasites[25]
	far.Variant = VariantTactical

	g.Check(0, parasites)
	require.Equal(t, LevelAggressive, g.Level())

	visible := 0
	for _, p := range parasites {
		if g.Tier(p.ID) != FidelityHidden {
			visible++
		}
	}
	assert.Equal(t, g.VisibleCap(), visible)
	assert.NotEqual(t, FidelityHidden, g.Tier(far.ID),
		fmt.Sprintf("tactical parasite at distance %.0f should stay visible", far.Pos.X))
}

// TestGovernorNilCollaborators verifies missing fps/viewpoint make the
// pass a harmless no-op.
func TestGovernorNilCollaborators(t *testing.T) {
	g, err := NewGovernor(nil, nil, DefaultGovernorConfig())
	require.NoError(t, err)

	parasites := spawnSwarm(t, 10)
	g.Check(0, parasites)

	assert.Equal(t, LevelNone, g.Level())
	assert.Equal(t, FidelityFull, g.Tier(parasites[0].ID))
}

// TestTierCounts verifies the per-tier aggregation used by stats.
func TestTierCounts(t *testing.T) {
	fps := &adjustableFPS{fps: 30}
	g := testGovernor(t, fps)
	parasites := spawnSwarm(t, 4)

	counts := g.TierCounts(parasites)
	assert.Equal(t, 4, counts["full"])
}
