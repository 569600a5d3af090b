package sim

import (
	"math/rand"
	"testing"

	"swarm-sim/internal/sim/spatial"
)

// TestSchedulerLinearFallback verifies a scheduler without an index
// simulates everyone and gathers candidates by linear scan.
func TestSchedulerLinearFallback(t *testing.T) {
	s := NewScheduler(nil, nil, 200)

	p, _ := NewParasite(1, VariantBasic, 0, Vec3{}, 20)
	p.State = StatePatrolling
	worker := NewWorker(10, Vec3{X: 1, Z: 0}, 50)

	ctx := &TickContext{Delta: 0.1, Now: 1, RNG: rand.New(rand.NewSource(1))}
	s.Tick(ctx, []*Parasite{p}, []*Worker{worker}, nil)

	if p.State != StateHunting {
		t.Errorf("Expected worker found via linear scan, state=%s", p.State)
	}
	if p.TargetID != worker.ID {
		t.Errorf("Expected lock on worker %d, got %d", worker.ID, p.TargetID)
	}
}

// TestSchedulerCandidateRange verifies candidates beyond the search
// radius are never offered.
func TestSchedulerCandidateRange(t *testing.T) {
	s := NewScheduler(nil, nil, 200)

	p, _ := NewParasite(1, VariantBasic, 0, Vec3{}, 20)
	p.State = StatePatrolling
	farWorker := NewWorker(10, Vec3{X: 40, Z: 0}, 50) // beyond 20 * 1.5

	ctx := &TickContext{Delta: 0.1, Now: 1, RNG: rand.New(rand.NewSource(1))}
	s.Tick(ctx, []*Parasite{p}, []*Worker{farWorker}, nil)

	if p.TargetID != 0 {
		t.Errorf("Expected no lock on out-of-range worker, got %d", p.TargetID)
	}
}

// TestSchedulerWorkingSetCulling verifies only parasites near the
// viewpoint are simulated when an index and viewpoint are present.
func TestSchedulerWorkingSetCulling(t *testing.T) {
	grid := spatial.NewGrid(-500, -500, 1000, 1000, 50)
	s := NewScheduler(grid, FixedViewpoint{}, 100)

	near, _ := NewParasite(1, VariantBasic, 0, Vec3{X: 10}, 20)
	near.State = StatePatrolling
	near.Waypoint = Vec3{X: 20} // distant waypoint so a simulated tick moves it
	far, _ := NewParasite(2, VariantBasic, 0, Vec3{X: 400}, 20)
	far.State = StatePatrolling
	far.Waypoint = Vec3{X: 410}

	grid.Insert(near.ID, uint8(ClassParasite), near.Pos.X, near.Pos.Z)
	grid.Insert(far.ID, uint8(ClassParasite), far.Pos.X, far.Pos.Z)

	nearBefore := near.Pos
	farBefore := far.Pos

	ctx := &TickContext{Delta: 0.1, Now: 1, RNG: rand.New(rand.NewSource(1))}
	s.Tick(ctx, []*Parasite{near, far}, nil, nil)

	if near.Pos == nearBefore {
		t.Error("Expected near parasite to be simulated (patrol movement)")
	}
	if far.Pos != farBefore {
		t.Error("Expected far parasite to be frozen outside the working set")
	}
}

// TestSchedulerWritesBackPositions verifies updated positions land in
// the index after the tick.
func TestSchedulerWritesBackPositions(t *testing.T) {
	grid := spatial.NewGrid(-500, -500, 1000, 1000, 50)
	s := NewScheduler(grid, FixedViewpoint{}, 100)

	p, _ := NewParasite(1, VariantBasic, 0, Vec3{X: 10}, 20)
	p.State = StateReturning // deterministic movement toward the center
	p.Pos = Vec3{X: 30}
	grid.Insert(p.ID, uint8(ClassParasite), p.Pos.X, p.Pos.Z)

	ctx := &TickContext{Delta: 0.1, Now: 1, RNG: rand.New(rand.NewSource(1))}
	s.Tick(ctx, []*Parasite{p}, nil, nil)

	ids := grid.QueryRadius(p.Pos.X, p.Pos.Z, 0.01, []uint8{uint8(ClassParasite)})
	if len(ids) != 1 || ids[0] != p.ID {
		t.Errorf("Expected index to hold the updated position, got %v", ids)
	}
}

// TestSchedulerSkipsDead verifies dead parasites are not updated.
func TestSchedulerSkipsDead(t *testing.T) {
	s := NewScheduler(nil, nil, 200)

	p, _ := NewParasite(1, VariantBasic, 0, Vec3{}, 20)
	p.State = StateReturning
	p.Pos = Vec3{X: 10}
	p.HP = 0
	before := p.Pos

	ctx := &TickContext{Delta: 0.1, Now: 1, RNG: rand.New(rand.NewSource(1))}
	s.Tick(ctx, []*Parasite{p}, nil, nil)

	if p.Pos != before {
		t.Error("Dead parasite moved")
	}
}

// TestTickContextLookup verifies destroyed and unknown units read as
// absent through the tick maps.
func TestTickContextLookup(t *testing.T) {
	worker := NewWorker(10, Vec3{}, 50)
	defender := NewDefender(20, Vec3{}, 100)
	ctx := newTestContext(0.1, 0, []*Worker{worker}, []*Defender{defender})

	if _, ok := ctx.Lookup(ClassWorker, 10); !ok {
		t.Error("Expected worker lookup to succeed")
	}
	if _, ok := ctx.Lookup(ClassDefender, 20); !ok {
		t.Error("Expected defender lookup to succeed")
	}
	if _, ok := ctx.Lookup(ClassWorker, 999); ok {
		t.Error("Expected unknown id to be absent")
	}
	if _, ok := ctx.Lookup(ClassUnknown, 10); ok {
		t.Error("Expected unknown class to be absent")
	}
}
