package sim

// UnitClass tags the closed set of targetable unit kinds. Dispatch is
// by tag, never by runtime type inspection.
type UnitClass uint8

const (
	ClassUnknown UnitClass = iota
	ClassWorker
	ClassDefender
	ClassParasite
)

// String returns a human-readable class name.
func (c UnitClass) String() string {
	switch c {
	case ClassWorker:
		return "worker"
	case ClassDefender:
		return "defender"
	case ClassParasite:
		return "parasite"
	default:
		return "unknown"
	}
}

// Unit is the uniform capability surface every target candidate exposes.
// A parasite never owns a unit's lifetime: it holds the unit's id and
// re-resolves it through the tick's lookup maps, so destroyed units are
// naturally seen as absent next tick.
type Unit interface {
	UnitID() uint64
	Class() UnitClass
	Position() Vec3
	// Eligible reports whether the unit can currently be targeted.
	Eligible() bool
}

// EnergySource is the consumption surface for drain-class targets.
type EnergySource interface {
	Unit
	Energy() float64
	EnergyCapacity() float64
	// Drain removes up to amount of energy and returns the amount
	// actually drained.
	Drain(amount float64) float64
}

// Combatant is the consumption surface for fight-class targets.
type Combatant interface {
	Unit
	Health() int
	MaxHealth() int
	ApplyDamage(amount int)
}

// healthFraction returns remaining resource as a fraction of capacity,
// dispatched by class tag. Units without a health notion read as full.
func healthFraction(u Unit) float64 {
	switch u.Class() {
	case ClassWorker:
		if es, ok := u.(EnergySource); ok && es.EnergyCapacity() > 0 {
			return es.Energy() / es.EnergyCapacity()
		}
	case ClassDefender:
		if c, ok := u.(Combatant); ok && c.MaxHealth() > 0 {
			return float64(c.Health()) / float64(c.MaxHealth())
		}
	}
	return 1.0
}

const (
	// WorkerFleeFraction is the energy fraction below which a drained
	// worker flees and becomes ineligible.
	WorkerFleeFraction = 0.25
	// WorkerRecoverFraction is the energy fraction at which a fleeing
	// worker calms down and becomes targetable again.
	WorkerRecoverFraction = 0.6
	// WorkerRegenRate is energy regained per second while not being fed on.
	WorkerRegenRate = 1.5
)

// Worker is a drain-class unit: parasites feed on its energy reserve.
type Worker struct {
	ID       uint64  `json:"id"`
	Pos      Vec3    `json:"pos"`
	Reserve  float64 `json:"energy"`
	Capacity float64 `json:"capacity"`
	Fleeing  bool    `json:"fleeing"`
}

// NewWorker creates a worker with a full energy reserve.
func NewWorker(id uint64, pos Vec3, capacity float64) *Worker {
	return &Worker{ID: id, Pos: pos, Reserve: capacity, Capacity: capacity}
}

func (w *Worker) UnitID() uint64          { return w.ID }
func (w *Worker) Class() UnitClass        { return ClassWorker }
func (w *Worker) Position() Vec3          { return w.Pos }
func (w *Worker) Energy() float64         { return w.Reserve }
func (w *Worker) EnergyCapacity() float64 { return w.Capacity }

// Eligible reports whether the worker can be fed on. Fleeing workers
// and empty workers are off the menu.
func (w *Worker) Eligible() bool {
	return !w.Fleeing && w.Reserve > 0
}

// Drain removes up to amount of energy and returns the amount actually
// drained. Crossing the flee threshold flips the worker to fleeing.
func (w *Worker) Drain(amount float64) float64 {
	if amount <= 0 || w.Reserve <= 0 {
		return 0
	}
	drained := amount
	if drained > w.Reserve {
		drained = w.Reserve
	}
	w.Reserve -= drained
	if w.Reserve < w.Capacity*WorkerFleeFraction {
		w.Fleeing = true
	}
	return drained
}

// Regen restores energy over time. A fleeing worker that recovers past
// the recover threshold becomes targetable again.
func (w *Worker) Regen(deltaTime float64) {
	if w.Reserve >= w.Capacity {
		return
	}
	w.Reserve += WorkerRegenRate * deltaTime
	if w.Reserve > w.Capacity {
		w.Reserve = w.Capacity
	}
	if w.Fleeing && w.Reserve >= w.Capacity*WorkerRecoverFraction {
		w.Fleeing = false
	}
}

// Defender is a fight-class unit: parasites apply damage instead of
// draining energy.
type Defender struct {
	ID    uint64 `json:"id"`
	Pos   Vec3   `json:"pos"`
	HP    int    `json:"hp"`
	MaxHP int    `json:"maxHp"`
}

// NewDefender creates a defender at full health.
func NewDefender(id uint64, pos Vec3, maxHP int) *Defender {
	return &Defender{ID: id, Pos: pos, HP: maxHP, MaxHP: maxHP}
}

func (d *Defender) UnitID() uint64   { return d.ID }
func (d *Defender) Class() UnitClass { return ClassDefender }
func (d *Defender) Position() Vec3   { return d.Pos }
func (d *Defender) Health() int      { return d.HP }
func (d *Defender) MaxHealth() int   { return d.MaxHP }

// Eligible reports whether the defender is still standing.
func (d *Defender) Eligible() bool { return d.HP > 0 }

// ApplyDamage reduces health, floored at zero.
func (d *Defender) ApplyDamage(amount int) {
	if amount <= 0 || d.HP <= 0 {
		return
	}
	d.HP -= amount
	if d.HP < 0 {
		d.HP = 0
	}
}
