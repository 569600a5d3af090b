package sim

// Strategy parameterizes the shared state machine with a targeting
// policy. One FSM engine, two strategies - no subclass hierarchy.
type Strategy interface {
	// TargetClasses returns the permitted target classes in priority order.
	TargetClasses() []UnitClass
	// SelectTarget picks a fresh target from the candidate set, or nil.
	// Candidates are already range-filtered by the scheduler; strategies
	// additionally restrict to the parasite's territory.
	SelectTarget(p *Parasite, candidates []Unit, ctx *TickContext) Unit
	// MaintainTarget re-evaluates an existing lock and returns the unit
	// to keep hunting (possibly the current one).
	MaintainTarget(p *Parasite, current Unit, candidates []Unit, ctx *TickContext) Unit
	// Speed returns the current movement speed.
	Speed(p *Parasite) float64
	// PatrolRadiusFraction bounds patrol waypoints as a fraction of the
	// territory radius.
	PatrolRadiusFraction(p *Parasite) float64
	// Tick runs once per agent update, before the state machine step.
	Tick(p *Parasite, candidates []Unit, ctx *TickContext)
	// OnLock notifies the strategy that a lock was acquired.
	OnLock(p *Parasite, target Unit, now float64)
}

// Basic variant tuning.
const (
	basicSpeed          = 2.0
	basicPatrolFraction = 0.7
)

// BasicStrategy targets a single class and takes the first eligible
// in-territory candidate it sees. No distance comparison, no switching.
type BasicStrategy struct{}

// NewBasicStrategy returns the basic (worker-drain) targeting policy.
func NewBasicStrategy() *BasicStrategy { return &BasicStrategy{} }

func (s *BasicStrategy) TargetClasses() []UnitClass { return []UnitClass{ClassWorker} }

func (s *BasicStrategy) SelectTarget(p *Parasite, candidates []Unit, _ *TickContext) Unit {
	for _, u := range candidates {
		if u.Class() != ClassWorker || !u.Eligible() {
			continue
		}
		if u.Position().PlanarDistance(p.TerritoryCenter) > p.TerritoryRadius {
			continue
		}
		return u
	}
	return nil
}

func (s *BasicStrategy) MaintainTarget(_ *Parasite, current Unit, _ []Unit, _ *TickContext) Unit {
	return current
}

func (s *BasicStrategy) Speed(_ *Parasite) float64                { return basicSpeed }
func (s *BasicStrategy) PatrolRadiusFraction(_ *Parasite) float64 { return basicPatrolFraction }
func (s *BasicStrategy) Tick(_ *Parasite, _ []Unit, _ *TickContext) {}
func (s *BasicStrategy) OnLock(_ *Parasite, _ Unit, _ float64)      {}

// Tactical variant tuning.
const (
	tacticalBaseSpeed = 2.6

	AggressionInterval  = 0.5 // seconds between aggression recomputes
	AggressionBlend     = 0.2 // weight of the freshly computed value
	SecondaryClassGate  = 0.55
	LockStabilityWindow = 2.0

	SwitchCooldown      = 1.5 // seconds between target re-evaluations
	TargetLockDuration  = 3.0 // minimum lock age before same-class switching
	SwitchThresholdBase = 0.25

	MinSpeedMultiplier = 0.85
	MaxSpeedMultiplier = 1.35
)

// TacticalStrategy prefers defenders over workers, picks the nearest
// candidate of the preferred class, and re-evaluates its lock on a
// cooldown using a tactical score. A smoothed aggression scalar gates
// secondary-class engagement and modulates patrol radius, speed and
// switch sensitivity.
type TacticalStrategy struct {
	Aggression float64

	lastAggressionAt  float64
	lastSwitchCheckAt float64
	lockedAt          float64
}

// NewTacticalStrategy returns the tactical (defender-priority) policy
// with neutral aggression.
func NewTacticalStrategy() *TacticalStrategy {
	return &TacticalStrategy{Aggression: 0.5}
}

func (s *TacticalStrategy) TargetClasses() []UnitClass {
	return []UnitClass{ClassDefender, ClassWorker}
}

func (s *TacticalStrategy) SelectTarget(p *Parasite, candidates []Unit, _ *TickContext) Unit {
	if u := s.nearestOfClass(p, candidates, ClassDefender); u != nil {
		return u
	}
	if s.Aggression >= SecondaryClassGate {
		return s.nearestOfClass(p, candidates, ClassWorker)
	}
	return nil
}

func (s *TacticalStrategy) MaintainTarget(p *Parasite, current Unit, candidates []Unit, ctx *TickContext) Unit {
	if ctx.Now-s.lastSwitchCheckAt < SwitchCooldown {
		return current
	}
	s.lastSwitchCheckAt = ctx.Now

	if current.Class() == ClassWorker {
		// Engaged with the secondary class: a priority-class candidate
		// preempts immediately.
		if u := s.nearestOfClass(p, candidates, ClassDefender); u != nil {
			return u
		}
		return current
	}

	// Engaged with the priority class: only switch to a clearly better
	// same-class candidate, and only once the lock has matured.
	if ctx.Now-s.lockedAt < TargetLockDuration {
		return current
	}

	currentScore := s.tacticalScore(p, current)
	best := current
	bestScore := currentScore
	for _, u := range candidates {
		if u.Class() != ClassDefender || !u.Eligible() || u.UnitID() == current.UnitID() {
			continue
		}
		if score := s.tacticalScore(p, u); score > bestScore {
			best = u
			bestScore = score
		}
	}

	// The margin shrinks as aggression rises, making switches easier.
	threshold := SwitchThresholdBase * (1.0 - 0.5*s.Aggression)
	if best != current && bestScore-currentScore > threshold {
		return best
	}
	return current
}

// tacticalScore rates a candidate: normalized closeness, a bonus for the
// priority class, and a weighted preference for already-damaged targets.
func (s *TacticalStrategy) tacticalScore(p *Parasite, u Unit) float64 {
	dist := p.Pos.PlanarDistance(u.Position())
	closeness := 1.0 - dist/p.SearchRadius()
	if closeness < 0 {
		closeness = 0
	}

	score := closeness
	if u.Class() == ClassDefender {
		score += 0.5
	}
	score += (1.0 - healthFraction(u)) * 0.35
	return score
}

func (s *TacticalStrategy) nearestOfClass(p *Parasite, candidates []Unit, class UnitClass) Unit {
	var best Unit
	bestDist := 0.0
	for _, u := range candidates {
		if u.Class() != class || !u.Eligible() {
			continue
		}
		if u.Position().PlanarDistance(p.TerritoryCenter) > p.TerritoryRadius {
			continue
		}
		dist := p.Pos.PlanarDistance(u.Position())
		if best == nil || dist < bestDist {
			best = u
			bestDist = dist
		}
	}
	return best
}

func (s *TacticalStrategy) Speed(_ *Parasite) float64 {
	mult := MinSpeedMultiplier + (MaxSpeedMultiplier-MinSpeedMultiplier)*s.Aggression
	return tacticalBaseSpeed * mult
}

func (s *TacticalStrategy) PatrolRadiusFraction(_ *Parasite) float64 {
	// More aggressive parasites patrol wider.
	return 0.5 + 0.4*s.Aggression
}

// Tick recomputes aggression on a fixed cadence and blends it with the
// previous value to avoid oscillation.
func (s *TacticalStrategy) Tick(p *Parasite, candidates []Unit, ctx *TickContext) {
	if ctx.Now-s.lastAggressionAt < AggressionInterval {
		return
	}
	s.lastAggressionAt = ctx.Now

	raw := 0.5

	// Wounded parasites pick their fights.
	if p.MaxHP > 0 {
		healthFrac := float64(p.HP) / float64(p.MaxHP)
		raw -= (1.0 - healthFrac) * 0.3
	}

	// Abundant prey emboldens, capped so a swarm of workers doesn't
	// saturate the scalar.
	eligible := 0
	priorityPresent := false
	for _, u := range candidates {
		if !u.Eligible() {
			continue
		}
		eligible++
		if u.Class() == ClassDefender {
			priorityPresent = true
		}
	}
	abundance := float64(eligible) * 0.05
	if abundance > 0.3 {
		abundance = 0.3
	}
	raw += abundance
	if priorityPresent {
		raw += 0.15
	}

	// Slight damper while freshly locked, so aggression doesn't spike
	// mid-engagement.
	if p.TargetID != 0 && ctx.Now-s.lockedAt < LockStabilityWindow {
		raw -= 0.05
	}

	if raw < 0 {
		raw = 0
	} else if raw > 1 {
		raw = 1
	}

	s.Aggression = (1.0-AggressionBlend)*s.Aggression + AggressionBlend*raw
}

func (s *TacticalStrategy) OnLock(_ *Parasite, _ Unit, now float64) {
	s.lockedAt = now
}
