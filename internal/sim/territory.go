package sim

import (
	"fmt"
	"math"
)

// ControlStatus is a territory's control state as seen by the core.
type ControlStatus uint8

const (
	StatusContested ControlStatus = iota
	StatusQueenOwned
	StatusLiberated
)

// String returns a human-readable status name.
func (s ControlStatus) String() string {
	switch s {
	case StatusContested:
		return "contested"
	case StatusQueenOwned:
		return "queen_owned"
	case StatusLiberated:
		return "liberated"
	default:
		return "unknown"
	}
}

// Territory is a spatial region with an ownership status. Lifetime is
// owned by the territory authority; the core reads control fields and
// maintains the attribution count.
type Territory struct {
	ID            uint64        `json:"id"`
	Center        Vec3          `json:"center"`
	Radius        float64       `json:"radius"`
	Status        ControlStatus `json:"status"`
	QueenID       uint64        `json:"queenId"` // 0 = no controlling queen
	ParasiteCount int           `json:"parasiteCount"`
}

// Contains reports whether (x, z) lies inside the territory.
func (t *Territory) Contains(x, z float64) bool {
	dx := x - t.Center.X
	dz := z - t.Center.Z
	return math.Sqrt(dx*dx+dz*dz) <= t.Radius
}

// Queen is a territory-owning controller. Its controlled set has pure
// membership semantics; the core enforces that a live parasite appears
// in at most one queen's set.
type Queen struct {
	ID         uint64          `json:"id"`
	Controlled map[uint64]bool `json:"-"`
	Active     bool            `json:"active"`
	Vulnerable bool            `json:"vulnerable"`
}

// NewQueen creates an active queen with an empty controlled set.
func NewQueen(id uint64) *Queen {
	return &Queen{
		ID:         id,
		Controlled: make(map[uint64]bool),
		Active:     true,
	}
}

// Controls reports whether the queen claims the given parasite.
func (q *Queen) Controls(parasiteID uint64) bool {
	return q.Controlled[parasiteID]
}

// Claim adds a parasite to the controlled set.
func (q *Queen) Claim(parasiteID uint64) {
	q.Controlled[parasiteID] = true
}

// Release removes a parasite from the controlled set.
func (q *Queen) Release(parasiteID uint64) {
	delete(q.Controlled, parasiteID)
}

// ControlledCount returns the controlled set size.
func (q *Queen) ControlledCount() int {
	return len(q.Controlled)
}

// TerritoryMap is the in-memory territory authority used by the engine
// and tests. TerritoryAt resolves by planar containment; overlapping
// territories resolve to the closest center.
type TerritoryMap struct {
	territories []*Territory
}

// NewTerritoryMap validates and indexes the given territories.
// A non-positive radius is a programming error and fails fast.
func NewTerritoryMap(territories []*Territory) (*TerritoryMap, error) {
	for _, t := range territories {
		if t.Radius <= 0 {
			return nil, fmt.Errorf("territory %d: non-positive radius %v", t.ID, t.Radius)
		}
	}
	return &TerritoryMap{territories: territories}, nil
}

// TerritoryAt returns the territory containing (x, z), or nil.
func (tm *TerritoryMap) TerritoryAt(x, z float64) *Territory {
	var best *Territory
	bestDist := math.MaxFloat64
	for _, t := range tm.territories {
		dx := x - t.Center.X
		dz := z - t.Center.Z
		dist := math.Sqrt(dx*dx + dz*dz)
		if dist <= t.Radius && dist < bestDist {
			bestDist = dist
			best = t
		}
	}
	return best
}

// Territories returns all known territories.
func (tm *TerritoryMap) Territories() []*Territory {
	return tm.territories
}

// Territory returns a territory by id, or nil.
func (tm *TerritoryMap) Territory(id uint64) *Territory {
	for _, t := range tm.territories {
		if t.ID == id {
			return t
		}
	}
	return nil
}
