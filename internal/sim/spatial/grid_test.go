package spatial

import (
	"sort"
	"testing"
)

func sorted(ids []uint64) []uint64 {
	out := append([]uint64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TestInsertAndQuery verifies basic radius queries with the precise
// narrow phase.
func TestInsertAndQuery(t *testing.T) {
	g := NewGrid(-100, -100, 200, 200, 10)

	g.Insert(1, 0, 0, 0)
	g.Insert(2, 0, 5, 0)
	g.Insert(3, 0, 50, 50)

	got := sorted(g.QueryRadius(0, 0, 10, nil))
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Expected [1 2], got %v", got)
	}

	// Entity 2 is exactly at distance 5; a radius of 4.9 excludes it.
	got = g.QueryRadius(0, 0, 4.9, nil)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("Expected [1], got %v", got)
	}
}

// TestQueryClassFilter verifies class tag filtering.
func TestQueryClassFilter(t *testing.T) {
	g := NewGrid(-100, -100, 200, 200, 10)

	g.Insert(1, 1, 0, 0)
	g.Insert(2, 2, 1, 0)
	g.Insert(3, 1, 2, 0)

	got := sorted(g.QueryRadius(0, 0, 10, []uint8{1}))
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Expected [1 3], got %v", got)
	}

	got = g.QueryRadius(0, 0, 10, []uint8{2})
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("Expected [2], got %v", got)
	}

	// Empty filter matches everything.
	got = g.QueryRadius(0, 0, 10, nil)
	if len(got) != 3 {
		t.Errorf("Expected all 3, got %v", got)
	}
}

// TestUpdatePosition verifies entities move between cells and stale ids
// are tolerated.
func TestUpdatePosition(t *testing.T) {
	g := NewGrid(-100, -100, 200, 200, 10)

	g.Insert(1, 0, 0, 0)
	g.UpdatePosition(1, 80, 80)

	if got := g.QueryRadius(0, 0, 10, nil); len(got) != 0 {
		t.Errorf("Expected empty at old position, got %v", got)
	}
	got := g.QueryRadius(80, 80, 5, nil)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("Expected [1] at new position, got %v", got)
	}

	// Unknown id is a no-op.
	g.UpdatePosition(999, 0, 0)
	if g.Len() != 1 {
		t.Errorf("Expected 1 entity, got %d", g.Len())
	}
}

// TestRemove verifies removal and double-remove safety.
func TestRemove(t *testing.T) {
	g := NewGrid(-100, -100, 200, 200, 10)

	g.Insert(1, 0, 0, 0)
	g.Remove(1)
	g.Remove(1)

	if g.Len() != 0 {
		t.Errorf("Expected empty grid, got %d", g.Len())
	}
	if got := g.QueryRadius(0, 0, 100, nil); len(got) != 0 {
		t.Errorf("Expected no results, got %v", got)
	}
}

// TestReinsertMoves verifies re-inserting an id relocates it instead of
// duplicating.
func TestReinsertMoves(t *testing.T) {
	g := NewGrid(-100, -100, 200, 200, 10)

	g.Insert(1, 0, 0, 0)
	g.Insert(1, 0, 50, 50)

	if g.Len() != 1 {
		t.Fatalf("Expected 1 entity after re-insert, got %d", g.Len())
	}
	if got := g.QueryRadius(0, 0, 10, nil); len(got) != 0 {
		t.Errorf("Expected old cell empty, got %v", got)
	}
	if got := g.QueryRadius(50, 50, 5, nil); len(got) != 1 {
		t.Errorf("Expected [1] at new cell, got %v", got)
	}
}

// TestOutOfBoundsClamping verifies positions outside the bounds land in
// edge cells and remain queryable.
func TestOutOfBoundsClamping(t *testing.T) {
	g := NewGrid(-100, -100, 200, 200, 10)

	g.Insert(1, 0, -500, -500)
	g.Insert(2, 0, 500, 500)

	if g.Len() != 2 {
		t.Fatalf("Expected 2 entities, got %d", g.Len())
	}

	// Precise positions are kept even when the cell clamps: a large
	// radius from inside the bounds still reaches the real position.
	got := g.QueryRadius(-100, -100, 600, nil)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("Expected [1] via clamped edge cell, got %v", got)
	}
}

// TestGridStats verifies occupancy accounting.
func TestGridStats(t *testing.T) {
	g := NewGrid(0, 0, 100, 100, 10)

	g.Insert(1, 0, 5, 5)
	g.Insert(2, 0, 6, 5)
	g.Insert(3, 0, 95, 95)

	stats := g.Stats()
	if stats.TotalEntities != 3 {
		t.Errorf("Expected 3 entities, got %d", stats.TotalEntities)
	}
	if stats.NonEmptyCells != 2 {
		t.Errorf("Expected 2 non-empty cells, got %d", stats.NonEmptyCells)
	}
	if stats.MaxInCell != 2 {
		t.Errorf("Expected max 2 in a cell, got %d", stats.MaxInCell)
	}
}
