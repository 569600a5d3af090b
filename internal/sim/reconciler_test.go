package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoQueenWorld builds two queen-owned territories side by side plus a
// neutral gap between them.
func twoQueenWorld(t *testing.T) (*TerritoryMap, *Reconciler, *Queen, *Queen) {
	t.Helper()

	territories := []*Territory{
		{ID: 1, Center: Vec3{X: -100, Z: 0}, Radius: 30, Status: StatusQueenOwned, QueenID: 1},
		{ID: 2, Center: Vec3{X: 100, Z: 0}, Radius: 30, Status: StatusQueenOwned, QueenID: 2},
	}
	authority, err := NewTerritoryMap(territories)
	require.NoError(t, err)

	rec, err := NewReconciler(authority)
	require.NoError(t, err)

	q1 := NewQueen(1)
	q2 := NewQueen(2)
	rec.RegisterQueen(q1)
	rec.RegisterQueen(q2)
	return authority, rec, q1, q2
}

func parasiteAt(t *testing.T, id uint64, queenID uint64, pos Vec3) *Parasite {
	t.Helper()
	p, err := NewParasite(id, VariantBasic, queenID, pos, 30)
	require.NoError(t, err)
	p.Pos = pos
	return p
}

// TestNewReconcilerValidation verifies the nil-authority fail-fast.
func TestNewReconcilerValidation(t *testing.T) {
	_, err := NewReconciler(nil)
	assert.Error(t, err)
}

// TestValidateCleanWorld verifies a consistent world reports clean.
func TestValidateCleanWorld(t *testing.T) {
	_, rec, q1, _ := twoQueenWorld(t)

	p := parasiteAt(t, 10, 1, Vec3{X: -100, Z: 0})
	q1.Claim(p.ID)

	report := rec.ValidateConsistency([]*Parasite{p})
	assert.True(t, report.Clean())
}

// TestValidateOrphaned verifies a controlled parasite outside every
// queen-owned territory is flagged orphaned.
func TestValidateOrphaned(t *testing.T) {
	_, rec, q1, _ := twoQueenWorld(t)

	p := parasiteAt(t, 10, 1, Vec3{X: 0, Z: 0}) // neutral gap
	q1.Claim(p.ID)

	report := rec.ValidateConsistency([]*Parasite{p})
	assert.Equal(t, []uint64{10}, report.Orphaned)
	assert.Empty(t, report.WronglyControlled)
	assert.Empty(t, report.Duplicates)
}

// TestValidateWronglyControlled verifies cross-territory registration is
// flagged with both queens identified.
func TestValidateWronglyControlled(t *testing.T) {
	_, rec, q1, _ := twoQueenWorld(t)

	p := parasiteAt(t, 10, 1, Vec3{X: 100, Z: 0}) // inside queen 2's land
	q1.Claim(p.ID)

	report := rec.ValidateConsistency([]*Parasite{p})
	require.Len(t, report.WronglyControlled, 1)
	assert.Equal(t, WrongControl{ParasiteID: 10, RegisteredQueen: 1, ActualQueen: 2}, report.WronglyControlled[0])
	assert.Empty(t, report.Orphaned)
}

// TestValidateDuplicates verifies a parasite in two controlled-sets is
// reported only as a duplicate.
func TestValidateDuplicates(t *testing.T) {
	_, rec, q1, q2 := twoQueenWorld(t)

	p := parasiteAt(t, 10, 1, Vec3{X: 0, Z: 0}) // would also be orphaned
	q1.Claim(p.ID)
	q2.Claim(p.ID)

	report := rec.ValidateConsistency([]*Parasite{p})
	assert.Equal(t, []uint64{10}, report.Duplicates)
	assert.Empty(t, report.Orphaned, "duplicates must not double-report")
	assert.Empty(t, report.WronglyControlled)
}

// TestValidateSkipsDead verifies dead parasites are ignored entirely.
func TestValidateSkipsDead(t *testing.T) {
	_, rec, q1, _ := twoQueenWorld(t)

	p := parasiteAt(t, 10, 1, Vec3{X: 0, Z: 0})
	q1.Claim(p.ID)
	p.HP = 0

	report := rec.ValidateConsistency([]*Parasite{p})
	assert.True(t, report.Clean())
}

// TestValidateUnclaimedIsFine verifies an unclaimed parasite inside a
// queen's territory is not an inconsistency.
func TestValidateUnclaimedIsFine(t *testing.T) {
	_, rec, _, _ := twoQueenWorld(t)

	p := parasiteAt(t, 10, 0, Vec3{X: -100, Z: 0})
	report := rec.ValidateConsistency([]*Parasite{p})
	assert.True(t, report.Clean())
}

// TestRecalculateRepairsControl verifies a full rebuild attributes every
// live parasite by physical occupancy.
func TestRecalculateRepairsControl(t *testing.T) {
	authority, rec, q1, q2 := twoQueenWorld(t)

	inQ1 := parasiteAt(t, 10, 2, Vec3{X: -100, Z: 0}) // wrongly registered
	inQ2 := parasiteAt(t, 11, 0, Vec3{X: 100, Z: 0})  // unclaimed
	inGap := parasiteAt(t, 12, 1, Vec3{X: 0, Z: 0})   // orphaned
	dead := parasiteAt(t, 13, 1, Vec3{X: -100, Z: 0})
	dead.HP = 0
	q2.Claim(inQ1.ID)
	q1.Claim(inGap.ID)
	q1.Claim(dead.ID)

	all := []*Parasite{inQ1, inQ2, inGap, dead}
	rec.Recalculate(all)

	assert.True(t, q1.Controls(10))
	assert.Equal(t, uint64(1), inQ1.QueenID)
	assert.True(t, q2.Controls(11))
	assert.Equal(t, uint64(2), inQ2.QueenID)
	assert.False(t, q1.Controls(12))
	assert.Equal(t, uint64(0), inGap.QueenID)
	assert.False(t, q1.Controls(13), "dead parasites are never attributed")

	assert.Equal(t, 1, authority.Territory(1).ParasiteCount)
	assert.Equal(t, 1, authority.Territory(2).ParasiteCount)

	// The repaired world validates clean.
	assert.True(t, rec.ValidateConsistency(all).Clean())
}

// TestRecalculateIdempotent verifies running the rebuild twice with no
// movement yields identical controlled-sets.
func TestRecalculateIdempotent(t *testing.T) {
	_, rec, q1, q2 := twoQueenWorld(t)

	parasites := []*Parasite{
		parasiteAt(t, 10, 0, Vec3{X: -100, Z: 0}),
		parasiteAt(t, 11, 0, Vec3{X: -90, Z: 5}),
		parasiteAt(t, 12, 0, Vec3{X: 100, Z: 0}),
		parasiteAt(t, 13, 0, Vec3{X: 0, Z: 0}),
	}

	rec.Recalculate(parasites)
	first1 := make(map[uint64]bool, len(q1.Controlled))
	for id := range q1.Controlled {
		first1[id] = true
	}
	first2 := make(map[uint64]bool, len(q2.Controlled))
	for id := range q2.Controlled {
		first2[id] = true
	}

	rec.Recalculate(parasites)
	assert.Equal(t, first1, q1.Controlled)
	assert.Equal(t, first2, q2.Controlled)
}

// TestRecalculateInactiveQueen verifies territory of an inactive queen
// yields no attribution.
func TestRecalculateInactiveQueen(t *testing.T) {
	_, rec, q1, _ := twoQueenWorld(t)
	q1.Active = false

	p := parasiteAt(t, 10, 1, Vec3{X: -100, Z: 0})
	rec.Recalculate([]*Parasite{p})

	assert.False(t, q1.Controls(10))
	assert.Equal(t, uint64(0), p.QueenID)
}
