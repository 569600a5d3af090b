package sim

import (
	"fmt"
	"math"
	"math/rand"
)

// ParasiteState is the behavior state machine state.
type ParasiteState uint8

const (
	StateSpawning ParasiteState = iota
	StatePatrolling
	StateHunting
	StateFeeding
	StateReturning
)

// String returns a human-readable state name.
func (s ParasiteState) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StatePatrolling:
		return "patrolling"
	case StateHunting:
		return "hunting"
	case StateFeeding:
		return "feeding"
	case StateReturning:
		return "returning"
	default:
		return "unknown"
	}
}

// Variant selects the targeting strategy a parasite runs.
type Variant uint8

const (
	VariantBasic Variant = iota
	VariantTactical
)

// String returns a human-readable variant name.
func (v Variant) String() string {
	switch v {
	case VariantBasic:
		return "basic"
	case VariantTactical:
		return "tactical"
	default:
		return "unknown"
	}
}

// Behavior tuning. These are the only knobs the two variants are allowed
// to diverge on beyond their strategy objects.
const (
	SpawnDelay         = 1.0  // seconds in StateSpawning before patrol
	WaypointArriveDist = 0.5  // patrol waypoint arrival threshold
	EngageDistance     = 2.0  // close enough to start feeding
	DisengageDistance  = 6.0  // feeding target escaped beyond this
	PursuitFactor      = 1.25 // pursuit limit as multiple of territory radius
	ReturnFactor       = 0.5  // returning completes inside radius * this
	SearchRadiusFactor = 1.5  // local candidate search as multiple of territory radius
	MovementEpsilon    = 1e-4 // below this step length, no movement occurred

	FeedDrainRate  = 4.0 // worker energy drained per second
	FeedDamageRate = 6.0 // defender damage applied per second

	DefaultGroundHeight = 0.0
)

// Parasite is one behavior state machine instance. It owns its position,
// health, territory bounds and movement state. It never holds a target
// object - only the target's id, resolved through the tick's lookup maps.
type Parasite struct {
	ID      uint64  `json:"id"`
	Variant Variant `json:"variant"`
	QueenID uint64  `json:"queenId"` // attributed controller, 0 = unclaimed

	Pos    Vec3    `json:"pos"`
	Facing float64 `json:"facing"` // radians, atan2(dx, dz)

	HP    int `json:"hp"`
	MaxHP int `json:"maxHp"`

	State       ParasiteState `json:"state"`
	TargetID    uint64        `json:"-"` // 0 = no lock
	TargetClass UnitClass     `json:"-"`

	TerritoryCenter Vec3    `json:"territoryCenter"`
	TerritoryRadius float64 `json:"territoryRadius"`
	Waypoint        Vec3    `json:"-"`

	StateChangedAt float64 `json:"-"` // sim time of last transition
	LastFedAt      float64 `json:"-"` // sim time of last successful feed

	spawnTimer float64
	feedCarry  float64 // fractional damage accumulator for fight feeding
	strategy   Strategy
}

// NewParasite creates a parasite in StateSpawning inside the given
// territory. Non-positive territory radius is a programming error and
// fails fast.
func NewParasite(id uint64, variant Variant, queenID uint64, center Vec3, radius float64) (*Parasite, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("parasite %d: non-positive territory radius %v", id, radius)
	}

	maxHP := 80
	var strategy Strategy
	switch variant {
	case VariantTactical:
		maxHP = 140
		strategy = NewTacticalStrategy()
	default:
		strategy = NewBasicStrategy()
	}

	return &Parasite{
		ID:              id,
		Variant:         variant,
		QueenID:         queenID,
		Pos:             center,
		HP:              maxHP,
		MaxHP:           maxHP,
		State:           StateSpawning,
		TerritoryCenter: center,
		TerritoryRadius: radius,
		Waypoint:        center,
		spawnTimer:      SpawnDelay,
		strategy:        strategy,
	}, nil
}

// Alive reports whether the parasite is logically alive. A dead parasite
// stays in the engine's map until the owner reaps it.
func (p *Parasite) Alive() bool { return p.HP > 0 }

// Strategy exposes the targeting strategy, mainly for stats and tests.
func (p *Parasite) Strategy() Strategy { return p.strategy }

// SearchRadius is the local candidate search radius the scheduler uses
// for this parasite.
func (p *Parasite) SearchRadius() float64 {
	return p.TerritoryRadius * SearchRadiusFactor
}

// Update advances the state machine by one tick. candidates is the
// tick-local, range-filtered view of nearby units; it is only valid for
// the duration of the call.
func (p *Parasite) Update(ctx *TickContext, candidates []Unit) {
	if !p.Alive() {
		return
	}

	p.strategy.Tick(p, candidates, ctx)

	switch p.State {
	case StateSpawning:
		p.spawnTimer -= ctx.Delta
		if p.spawnTimer <= 0 {
			p.Waypoint = p.nextWaypoint(ctx)
			p.transition(StatePatrolling, ctx)
		}
	case StatePatrolling:
		p.updatePatrolling(ctx, candidates)
	case StateHunting:
		p.updateHunting(ctx, candidates)
	case StateFeeding:
		p.updateFeeding(ctx)
	case StateReturning:
		p.updateReturning(ctx)
	}
}

func (p *Parasite) updatePatrolling(ctx *TickContext, candidates []Unit) {
	if target := p.strategy.SelectTarget(p, candidates, ctx); target != nil {
		p.lock(target, ctx.Now)
		p.transition(StateHunting, ctx)
		return
	}

	p.MoveToward(p.Waypoint, p.strategy.Speed(p), ctx)
	if p.Pos.PlanarDistance(p.Waypoint) < WaypointArriveDist {
		p.Waypoint = p.nextWaypoint(ctx)
	}
}

func (p *Parasite) updateHunting(ctx *TickContext, candidates []Unit) {
	target, ok := p.resolveTarget(ctx)
	if !ok || !target.Eligible() {
		p.clearTarget()
		p.transition(StatePatrolling, ctx)
		return
	}

	tpos := target.Position()
	if p.Pos.PlanarDistance(tpos) > p.SearchRadius() {
		// Target slipped out of range; self-healing revert.
		p.clearTarget()
		p.transition(StatePatrolling, ctx)
		return
	}

	if tpos.PlanarDistance(p.TerritoryCenter) > p.TerritoryRadius*PursuitFactor {
		// Target led us too far from home. Retarget inside the
		// territory or give up and head back.
		p.clearTarget()
		if alt := p.strategy.SelectTarget(p, candidates, ctx); alt != nil {
			p.lock(alt, ctx.Now)
			return
		}
		p.transition(StateReturning, ctx)
		return
	}

	if alt := p.strategy.MaintainTarget(p, target, candidates, ctx); alt != nil && alt.UnitID() != target.UnitID() {
		p.lock(alt, ctx.Now)
		target = alt
		tpos = target.Position()
	}

	if p.Pos.PlanarDistance(tpos) <= EngageDistance {
		p.transition(StateFeeding, ctx)
		return
	}

	p.MoveToward(tpos, p.strategy.Speed(p), ctx)
}

func (p *Parasite) updateFeeding(ctx *TickContext) {
	target, ok := p.resolveTarget(ctx)
	if !ok || !target.Eligible() {
		p.clearTarget()
		p.transition(StatePatrolling, ctx)
		return
	}

	if p.Pos.PlanarDistance(target.Position()) > DisengageDistance {
		p.clearTarget()
		p.transition(StatePatrolling, ctx)
		return
	}

	switch target.Class() {
	case ClassWorker:
		es, ok := target.(EnergySource)
		if !ok {
			p.clearTarget()
			p.transition(StatePatrolling, ctx)
			return
		}
		if drained := es.Drain(FeedDrainRate * ctx.Delta); drained > 0 {
			p.LastFedAt = ctx.Now
			p.emitFeed(ctx, target, drained)
		}
		if !es.Eligible() {
			// Drain crossed the flee threshold; the worker runs.
			p.clearTarget()
			p.transition(StatePatrolling, ctx)
		}
	case ClassDefender:
		c, ok := target.(Combatant)
		if !ok {
			p.clearTarget()
			p.transition(StatePatrolling, ctx)
			return
		}
		p.feedCarry += FeedDamageRate * ctx.Delta
		if dmg := int(p.feedCarry); dmg > 0 {
			p.feedCarry -= float64(dmg)
			c.ApplyDamage(dmg)
			p.LastFedAt = ctx.Now
			p.emitFeed(ctx, target, float64(dmg))
		}
		if c.Health() <= 0 {
			p.clearTarget()
			p.transition(StatePatrolling, ctx)
		}
	default:
		p.clearTarget()
		p.transition(StatePatrolling, ctx)
	}
}

func (p *Parasite) updateReturning(ctx *TickContext) {
	p.MoveToward(p.TerritoryCenter, p.strategy.Speed(p), ctx)
	if p.Pos.PlanarDistance(p.TerritoryCenter) <= p.TerritoryRadius*ReturnFactor {
		p.Waypoint = p.nextWaypoint(ctx)
		p.transition(StatePatrolling, ctx)
	}
}

// MoveToward advances the parasite toward dest by speed * delta along
// the straight planar line, clamped to not overshoot. Facing and ground
// height only update when the step exceeds the movement epsilon, which
// avoids facing/height jitter while effectively stationary.
// Returns whether movement occurred.
func (p *Parasite) MoveToward(dest Vec3, speed float64, ctx *TickContext) bool {
	dx := dest.X - p.Pos.X
	dz := dest.Z - p.Pos.Z
	dist := math.Sqrt(dx*dx + dz*dz)
	if dist == 0 {
		return false
	}

	step := speed * ctx.Delta
	if step > dist {
		step = dist
	}
	if step <= MovementEpsilon {
		return false
	}

	p.Pos.X += dx / dist * step
	p.Pos.Z += dz / dist * step
	p.Facing = math.Atan2(dx, dz)
	p.Pos.Y = ctx.GroundHeight(p.Pos.X, p.Pos.Z)
	return true
}

// nextWaypoint picks a randomized patrol waypoint: uniform angle, radius
// bounded by the strategy's patrol fraction of the territory radius.
func (p *Parasite) nextWaypoint(ctx *TickContext) Vec3 {
	maxRadius := p.TerritoryRadius * p.strategy.PatrolRadiusFraction(p)
	angle := ctx.RNG.Float64() * 2 * math.Pi
	radius := ctx.RNG.Float64() * maxRadius
	x := p.TerritoryCenter.X + math.Sin(angle)*radius
	z := p.TerritoryCenter.Z + math.Cos(angle)*radius
	return Vec3{X: x, Y: ctx.GroundHeight(x, z), Z: z}
}

// emitFeed records one successful drain or damage application. The log
// rate-limits under swarm pressure, so per-tick emission is safe.
func (p *Parasite) emitFeed(ctx *TickContext, target Unit, amount float64) {
	if ctx.Events == nil {
		return
	}
	ctx.Events.EmitSimple(EventTypeFeed, ctx.Tick, p.ID, FeedPayload{
		ParasiteID:  p.ID,
		TargetID:    target.UnitID(),
		TargetClass: target.Class().String(),
		Amount:      amount,
	})
}

// resolveTarget re-resolves the locked target through the tick's lookup
// maps. A destroyed or absent target reads as not ok.
func (p *Parasite) resolveTarget(ctx *TickContext) (Unit, bool) {
	if p.TargetID == 0 {
		return nil, false
	}
	return ctx.Lookup(p.TargetClass, p.TargetID)
}

func (p *Parasite) lock(target Unit, now float64) {
	p.TargetID = target.UnitID()
	p.TargetClass = target.Class()
	p.strategy.OnLock(p, target, now)
}

func (p *Parasite) clearTarget() {
	p.TargetID = 0
	p.TargetClass = ClassUnknown
	p.feedCarry = 0
}

func (p *Parasite) transition(state ParasiteState, ctx *TickContext) {
	if p.State == state {
		return
	}
	prev := p.State
	p.State = state
	p.StateChangedAt = ctx.Now

	if ctx.Events != nil {
		ctx.Events.EmitSimple(EventTypeStateChange, ctx.Tick, p.ID, StateChangePayload{
			ParasiteID: p.ID,
			From:       prev.String(),
			To:         state.String(),
		})
	}
}

// TakeDamage applies damage from an external source and reports whether
// the parasite was destroyed. Health never drops below zero.
func (p *Parasite) TakeDamage(amount int) bool {
	if amount <= 0 || !p.Alive() {
		return !p.Alive()
	}
	p.HP -= amount
	if p.HP <= 0 {
		p.HP = 0
		p.clearTarget()
		return true
	}
	return false
}

// seedWaypoint initializes the patrol waypoint with an explicit RNG.
// Used by spawn paths that run outside a tick.
func (p *Parasite) seedWaypoint(rng *rand.Rand) {
	ctx := &TickContext{RNG: rng}
	p.Waypoint = p.nextWaypoint(ctx)
}
