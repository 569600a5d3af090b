package sim

// StatsSnapshot is a read-only aggregate over the current population.
// Collecting it has no behavioral influence on the simulation.
type StatsSnapshot struct {
	TotalParasites int `json:"totalParasites"`
	Alive          int `json:"alive"`
	Dead           int `json:"dead"`

	ByVariant   map[string]int `json:"byVariant"`
	ByState     map[string]int `json:"byState"`
	ByTerritory map[uint64]int `json:"byTerritory"`

	Queens       int `json:"queens"`
	ActiveQueens int `json:"activeQueens"`
	Workers      int `json:"workers"`
	Defenders    int `json:"defenders"`

	OptimizationLevel int            `json:"optimizationLevel"`
	VisibleCap        int            `json:"visibleCap"`
	FidelityTiers     map[string]int `json:"fidelityTiers"`

	TickCount uint64  `json:"tickCount"`
	SimTime   float64 `json:"simTime"`
}

// collectStats aggregates counts by variant, state and owning
// territory. Called under the engine lock.
func collectStats(parasites []*Parasite, queens []*Queen, authority TerritoryAuthority, governor *Governor) StatsSnapshot {
	snap := StatsSnapshot{
		ByVariant:   make(map[string]int),
		ByState:     make(map[string]int),
		ByTerritory: make(map[uint64]int),
	}

	for _, p := range parasites {
		snap.TotalParasites++
		if !p.Alive() {
			snap.Dead++
			continue
		}
		snap.Alive++
		snap.ByVariant[p.Variant.String()]++
		snap.ByState[p.State.String()]++
		if t := authority.TerritoryAt(p.Pos.X, p.Pos.Z); t != nil {
			snap.ByTerritory[t.ID]++
		}
	}

	snap.Queens = len(queens)
	for _, q := range queens {
		if q.Active {
			snap.ActiveQueens++
		}
	}

	if governor != nil {
		snap.OptimizationLevel = governor.Level()
		snap.VisibleCap = governor.VisibleCap()
		snap.FidelityTiers = governor.TierCounts(parasites)
	}

	return snap
}
