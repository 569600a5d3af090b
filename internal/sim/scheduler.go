package sim

import (
	"math/rand"

	"github.com/kamstrup/intmap"
)

// TickContext is the tick-scoped working storage handed to every agent
// update. The lookup maps belong to the scheduler, are fully rebuilt
// before use each tick, and carry no cross-tick meaning.
type TickContext struct {
	Delta float64
	Now   float64
	Tick  uint64
	RNG   *rand.Rand

	Height HeightProvider // nil tolerated
	Events EventSink      // nil tolerated

	workers   *intmap.Map[uint64, *Worker]
	defenders *intmap.Map[uint64, *Defender]
}

// Lookup resolves a unit id through this tick's maps. Destroyed or
// unknown units read as absent.
func (c *TickContext) Lookup(class UnitClass, id uint64) (Unit, bool) {
	switch class {
	case ClassWorker:
		if c.workers == nil {
			return nil, false
		}
		if w, ok := c.workers.Get(id); ok {
			return w, true
		}
	case ClassDefender:
		if c.defenders == nil {
			return nil, false
		}
		if d, ok := c.defenders.Get(id); ok {
			return d, true
		}
	}
	return nil, false
}

// GroundHeight samples terrain height, defaulting when no provider is
// wired.
func (c *TickContext) GroundHeight(x, z float64) float64 {
	if c.Height == nil {
		return DefaultGroundHeight
	}
	return c.Height.HeightAt(x, z)
}

// Scheduler decides which parasites to simulate each tick and supplies
// each with a bounded-radius view of nearby candidates. All of its
// buffers are reused across ticks purely as an allocation optimization.
type Scheduler struct {
	index     SpatialIndex      // nil tolerated -> linear scans, all-agents working set
	viewpoint ViewpointProvider // nil tolerated -> all-agents working set
	simRadius float64

	workersByID   *intmap.Map[uint64, *Worker]
	defendersByID *intmap.Map[uint64, *Defender]
	inWorkingSet  map[uint64]bool

	workingBuf   []*Parasite
	candidateBuf []Unit
}

// NewScheduler creates a scheduler. simRadius bounds the working set
// around the viewpoint when a spatial index is available.
func NewScheduler(index SpatialIndex, viewpoint ViewpointProvider, simRadius float64) *Scheduler {
	return &Scheduler{
		index:         index,
		viewpoint:     viewpoint,
		simRadius:     simRadius,
		workersByID:   intmap.New[uint64, *Worker](256),
		defendersByID: intmap.New[uint64, *Defender](256),
		inWorkingSet:  make(map[uint64]bool),
		candidateBuf:  make([]Unit, 0, 64),
	}
}

// Tick runs one scheduling pass: rebuild lookup maps, determine the
// working set, feed each live working-set parasite its localized
// candidate view, and push updated positions back into the index.
func (s *Scheduler) Tick(ctx *TickContext, parasites []*Parasite, workers []*Worker, defenders []*Defender) {
	if len(parasites) == 0 {
		return
	}

	// Fresh maps every tick; cheap O(n) and tolerant of unit churn.
	s.workersByID.Clear()
	for _, w := range workers {
		s.workersByID.Put(w.ID, w)
	}
	s.defendersByID.Clear()
	for _, d := range defenders {
		s.defendersByID.Put(d.ID, d)
	}
	ctx.workers = s.workersByID
	ctx.defenders = s.defendersByID

	working := s.workingSet(parasites)

	for _, p := range working {
		if !p.Alive() {
			continue
		}
		candidates := s.gatherCandidates(p, workers, defenders)
		p.Update(ctx, candidates)
		if s.index != nil {
			s.index.UpdatePosition(p.ID, p.Pos.X, p.Pos.Z)
		}
	}
}

// workingSet restricts simulation to parasites near the viewpoint when
// both a spatial index and a viewpoint are available; otherwise every
// parasite is simulated.
func (s *Scheduler) workingSet(parasites []*Parasite) []*Parasite {
	if s.index == nil || s.viewpoint == nil {
		return parasites
	}
	vp, ok := s.viewpoint.Viewpoint()
	if !ok {
		return parasites
	}

	ids := s.index.QueryRadius(vp.X, vp.Z, s.simRadius, []uint8{uint8(ClassParasite)})
	for id := range s.inWorkingSet {
		delete(s.inWorkingSet, id)
	}
	for _, id := range ids {
		s.inWorkingSet[id] = true
	}

	s.workingBuf = s.workingBuf[:0]
	for _, p := range parasites {
		if s.inWorkingSet[p.ID] {
			s.workingBuf = append(s.workingBuf, p)
		}
	}
	return s.workingBuf
}

// gatherCandidates collects units of the parasite's permitted target
// classes within its search radius, via the index when present or a
// linear distance scan otherwise. The returned slice is valid only
// until the next call.
func (s *Scheduler) gatherCandidates(p *Parasite, workers []*Worker, defenders []*Defender) []Unit {
	s.candidateBuf = s.candidateBuf[:0]
	radius := p.SearchRadius()
	center := p.TerritoryCenter

	for _, class := range p.Strategy().TargetClasses() {
		if s.index != nil {
			ids := s.index.QueryRadius(center.X, center.Z, radius, []uint8{uint8(class)})
			for _, id := range ids {
				switch class {
				case ClassWorker:
					if w, ok := s.workersByID.Get(id); ok {
						s.candidateBuf = append(s.candidateBuf, w)
					}
				case ClassDefender:
					if d, ok := s.defendersByID.Get(id); ok {
						s.candidateBuf = append(s.candidateBuf, d)
					}
				}
			}
			continue
		}

		switch class {
		case ClassWorker:
			for _, w := range workers {
				if w.Pos.PlanarDistance(center) <= radius {
					s.candidateBuf = append(s.candidateBuf, w)
				}
			}
		case ClassDefender:
			for _, d := range defenders {
				if d.Pos.PlanarDistance(center) <= radius {
					s.candidateBuf = append(s.candidateBuf, d)
				}
			}
		}
	}
	return s.candidateBuf
}
