package sim

import (
	"fmt"
	"sort"
)

// WrongControl describes a parasite registered under one queen while
// physically inside another queen's territory.
type WrongControl struct {
	ParasiteID      uint64 `json:"parasiteId"`
	RegisteredQueen uint64 `json:"registeredQueen"`
	ActualQueen     uint64 `json:"actualQueen"`
}

// ConsistencyReport holds the three disjoint findings of a validation
// pass. It is a structured report for the caller to log or act on,
// never an error.
type ConsistencyReport struct {
	Orphaned          []uint64       `json:"orphaned"`
	WronglyControlled []WrongControl `json:"wronglyControlled"`
	Duplicates        []uint64       `json:"duplicates"`
}

// Clean reports whether the validation found nothing wrong.
func (r ConsistencyReport) Clean() bool {
	return len(r.Orphaned) == 0 && len(r.WronglyControlled) == 0 && len(r.Duplicates) == 0
}

// Reconciler keeps queen controlled-sets consistent with the territory
// each parasite physically occupies. Reconciliation is an eventually
// consistent batch operation; transient mismatches between movement and
// reconciliation runs are expected and tolerated.
type Reconciler struct {
	authority TerritoryAuthority
	queens    map[uint64]*Queen
}

// NewReconciler creates a reconciler bound to a territory authority.
func NewReconciler(authority TerritoryAuthority) (*Reconciler, error) {
	if authority == nil {
		return nil, fmt.Errorf("reconciler: nil territory authority")
	}
	return &Reconciler{
		authority: authority,
		queens:    make(map[uint64]*Queen),
	}, nil
}

// RegisterQueen adds a queen to the reconciler's view.
func (r *Reconciler) RegisterQueen(q *Queen) {
	r.queens[q.ID] = q
}

// UnregisterQueen removes a queen from the reconciler's view.
func (r *Reconciler) UnregisterQueen(id uint64) {
	delete(r.queens, id)
}

// Queen returns a registered queen by id, or nil.
func (r *Reconciler) Queen(id uint64) *Queen {
	return r.queens[id]
}

// Queens returns registered queens in id order.
func (r *Reconciler) Queens() []*Queen {
	out := make([]*Queen, 0, len(r.queens))
	for _, q := range r.queens {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ValidateConsistency cross-checks controlled-sets against physical
// positions and returns three disjoint findings:
//
//   - orphaned: controlled by someone, but not inside any queen-owned
//     territory
//   - wrongly controlled: inside queen X's territory but registered
//     under queen Y
//   - duplicates: registered under more than one queen at once
//
// Duplicated parasites are reported only as duplicates; their placement
// is meaningless until the duplication is resolved.
func (r *Reconciler) ValidateConsistency(parasites []*Parasite) ConsistencyReport {
	var report ConsistencyReport

	for _, p := range parasites {
		if !p.Alive() {
			continue
		}

		var holders []uint64
		for _, q := range r.queens {
			if q.Controls(p.ID) {
				holders = append(holders, q.ID)
			}
		}

		if len(holders) > 1 {
			report.Duplicates = append(report.Duplicates, p.ID)
			continue
		}
		if len(holders) == 0 {
			continue // unclaimed is not an inconsistency
		}

		registered := holders[0]
		expected := r.expectedQueenAt(p.Pos.X, p.Pos.Z)
		switch {
		case expected == 0:
			report.Orphaned = append(report.Orphaned, p.ID)
		case expected != registered:
			report.WronglyControlled = append(report.WronglyControlled, WrongControl{
				ParasiteID:      p.ID,
				RegisteredQueen: registered,
				ActualQueen:     expected,
			})
		}
	}

	sort.Slice(report.Orphaned, func(i, j int) bool { return report.Orphaned[i] < report.Orphaned[j] })
	sort.Slice(report.Duplicates, func(i, j int) bool { return report.Duplicates[i] < report.Duplicates[j] })
	sort.Slice(report.WronglyControlled, func(i, j int) bool {
		return report.WronglyControlled[i].ParasiteID < report.WronglyControlled[j].ParasiteID
	})
	return report
}

// Recalculate performs a full rebuild: every controlled-set is cleared,
// then each live parasite is attributed to the active queen of the
// territory it currently occupies. Running it twice with no movement in
// between yields identical controlled-sets.
func (r *Reconciler) Recalculate(parasites []*Parasite) {
	for _, q := range r.queens {
		for id := range q.Controlled {
			delete(q.Controlled, id)
		}
	}
	for _, t := range r.authority.Territories() {
		t.ParasiteCount = 0
	}

	for _, p := range parasites {
		if !p.Alive() {
			continue
		}

		expected := r.expectedQueenAt(p.Pos.X, p.Pos.Z)
		if expected == 0 {
			p.QueenID = 0
			continue
		}

		q := r.queens[expected]
		if q == nil || !q.Active {
			p.QueenID = 0
			continue
		}

		q.Claim(p.ID)
		p.QueenID = expected
		if t := r.authority.TerritoryAt(p.Pos.X, p.Pos.Z); t != nil {
			t.ParasiteCount++
		}
	}
}

// expectedQueenAt resolves the queen that should control a parasite at
// (x, z): the active queen of the queen-owned territory containing the
// point, or 0.
func (r *Reconciler) expectedQueenAt(x, z float64) uint64 {
	t := r.authority.TerritoryAt(x, z)
	if t == nil || t.Status != StatusQueenOwned || t.QueenID == 0 {
		return 0
	}
	q := r.queens[t.QueenID]
	if q == nil || !q.Active {
		return 0
	}
	return t.QueenID
}
