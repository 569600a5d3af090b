package sim

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// EngineConfig wires the engine to its collaborators. Authority and
// TickRate are required; every other collaborator is optional and its
// absence degrades gracefully.
type EngineConfig struct {
	TickRate  int
	Authority TerritoryAuthority

	Index     SpatialIndex
	Viewpoint ViewpointProvider
	FrameRate FrameRateSource
	Height    HeightProvider
	Reporter  DeathReporter

	Governor GovernorConfig

	// SimulationRadius bounds the working set around the viewpoint.
	SimulationRadius float64
	// ReconcileInterval is the cadence of control reconciliation, in
	// sim seconds.
	ReconcileInterval float64

	// Seed makes runs reproducible; 0 seeds from the clock.
	Seed int64
}

// Engine owns the parasite population and drives the tick loop. All
// per-tick work - agent updates, reconciliation, governor passes - runs
// sequentially under one lock; nothing in the core blocks.
type Engine struct {
	mu sync.RWMutex

	parasites    map[uint64]*Parasite
	parasiteList []*Parasite // cached slice, rebuilt each tick
	workers      []*Worker
	defenders    []*Defender

	authority  TerritoryAuthority
	index      SpatialIndex
	height     HeightProvider
	reporter   DeathReporter
	scheduler  *Scheduler
	reconciler *Reconciler
	governor   *Governor
	eventLog   *EventLog

	rng     *rand.Rand
	rngSeed int64

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	tickCount uint64
	simTime   float64

	reconcileInterval float64
	lastReconcileAt   float64

	nextID uint64

	// OnTick runs after each tick with the tick duration. Used by the
	// server to feed the frame meter and metrics.
	OnTick func(tick uint64, duration time.Duration)
}

// NewEngine validates the configuration and builds an engine.
// Misconfiguration fails fast; it indicates a programming error, not a
// runtime condition.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("engine: non-positive tick rate %d", cfg.TickRate)
	}
	if cfg.Authority == nil {
		return nil, fmt.Errorf("engine: nil territory authority")
	}
	if cfg.SimulationRadius <= 0 {
		cfg.SimulationRadius = 200
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 5.0
	}
	if cfg.Governor == (GovernorConfig{}) {
		cfg.Governor = DefaultGovernorConfig()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	reconciler, err := NewReconciler(cfg.Authority)
	if err != nil {
		return nil, err
	}
	governor, err := NewGovernor(cfg.FrameRate, cfg.Viewpoint, cfg.Governor)
	if err != nil {
		return nil, err
	}

	return &Engine{
		parasites:         make(map[uint64]*Parasite),
		parasiteList:      make([]*Parasite, 0, 64),
		authority:         cfg.Authority,
		index:             cfg.Index,
		height:            cfg.Height,
		reporter:          cfg.Reporter,
		scheduler:         NewScheduler(cfg.Index, cfg.Viewpoint, cfg.SimulationRadius),
		reconciler:        reconciler,
		governor:          governor,
		eventLog:          NewEventLog(),
		rng:               rand.New(rand.NewSource(seed)),
		rngSeed:           seed,
		tickRate:          cfg.TickRate,
		stopChan:          make(chan struct{}),
		reconcileInterval: cfg.ReconcileInterval,
		nextID:            1,
	}, nil
}

// Start begins the tick loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))

	go func() {
		for {
			select {
			case <-e.ticker.C:
				start := time.Now()
				e.Step(1.0 / float64(e.tickRate))
				if e.OnTick != nil {
					e.OnTick(e.TickCount(), time.Since(start))
				}
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🦠 Swarm engine started at %d TPS", e.tickRate)
}

// Stop halts the tick loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Swarm engine stopped")
}

// Step advances the simulation by deltaTime. Exposed so tests and
// headless drivers can tick deterministically without the wall clock.
func (e *Engine) Step(deltaTime float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tickCount++
	e.simTime += deltaTime

	e.eventLog.EmitSimple(EventTypeTick, e.tickCount, 0, TickPayload{
		RNGSeed:       e.rngSeed,
		ParasiteCount: len(e.parasites),
		DeltaTime:     deltaTime,
	})

	// Advance the RNG seed deterministically so the event log supports
	// replay.
	e.rngSeed = e.rng.Int63()
	e.rng.Seed(e.rngSeed)

	// Rebuild the cached slice; the map is the source of truth.
	e.parasiteList = e.parasiteList[:0]
	for _, p := range e.parasites {
		e.parasiteList = append(e.parasiteList, p)
	}
	sort.Slice(e.parasiteList, func(i, j int) bool {
		return e.parasiteList[i].ID < e.parasiteList[j].ID
	})

	for _, w := range e.workers {
		w.Regen(deltaTime)
	}

	ctx := &TickContext{
		Delta:  deltaTime,
		Now:    e.simTime,
		Tick:   e.tickCount,
		RNG:    e.rng,
		Height: e.height,
		Events: e.eventLog,
	}
	e.scheduler.Tick(ctx, e.parasiteList, e.workers, e.defenders)

	if e.simTime-e.lastReconcileAt >= e.reconcileInterval {
		e.lastReconcileAt = e.simTime
		e.runReconciliation()
	}

	e.governor.Check(e.simTime, e.parasiteList)
}

// runReconciliation validates, rebuilds attribution and logs the pass.
// Called under the engine lock.
func (e *Engine) runReconciliation() {
	report := e.reconciler.ValidateConsistency(e.parasiteList)
	e.reconciler.Recalculate(e.parasiteList)

	attributed := 0
	for _, q := range e.reconciler.Queens() {
		attributed += q.ControlledCount()
	}
	e.eventLog.EmitSimple(EventTypeReconcile, e.tickCount, 0, ReconcilePayload{
		Orphaned:          len(report.Orphaned),
		WronglyControlled: len(report.WronglyControlled),
		Duplicates:        len(report.Duplicates),
		Attributed:        attributed,
	})

	if !report.Clean() {
		log.Printf("⚠️ Control inconsistency: %d orphaned, %d wrongly controlled, %d duplicates (auto-corrected)",
			len(report.Orphaned), len(report.WronglyControlled), len(report.Duplicates))
	}
}

func (e *Engine) allocID() uint64 {
	id := e.nextID
	e.nextID++
	return id
}

// AddQueen installs an active queen as controller of the given
// territory and registers it for reconciliation.
func (e *Engine) AddQueen(territoryID uint64) (*Queen, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var territory *Territory
	for _, t := range e.authority.Territories() {
		if t.ID == territoryID {
			territory = t
			break
		}
	}
	if territory == nil {
		return nil, fmt.Errorf("engine: unknown territory %d", territoryID)
	}
	if territory.QueenID != 0 {
		return nil, fmt.Errorf("engine: territory %d already has queen %d", territoryID, territory.QueenID)
	}

	q := NewQueen(e.allocID())
	territory.QueenID = q.ID
	territory.Status = StatusQueenOwned
	e.reconciler.RegisterQueen(q)

	log.Printf("👑 Queen %d now controls territory %d", q.ID, territoryID)
	return q, nil
}

// SpawnParasite creates a parasite in the given territory, attributed
// to the territory's queen when one is active.
func (e *Engine) SpawnParasite(variant Variant, territoryID uint64) (*Parasite, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var territory *Territory
	for _, t := range e.authority.Territories() {
		if t.ID == territoryID {
			territory = t
			break
		}
	}
	if territory == nil {
		return nil, fmt.Errorf("engine: unknown territory %d", territoryID)
	}

	p, err := NewParasite(e.allocID(), variant, territory.QueenID, territory.Center, territory.Radius)
	if err != nil {
		return nil, err
	}
	p.seedWaypoint(e.rng)

	e.parasites[p.ID] = p
	if e.index != nil {
		e.index.Insert(p.ID, uint8(ClassParasite), p.Pos.X, p.Pos.Z)
	}

	if q := e.reconciler.Queen(territory.QueenID); q != nil && q.Active {
		q.Claim(p.ID)
		territory.ParasiteCount++
	}

	e.eventLog.EmitSimple(EventTypeSpawn, e.tickCount, p.ID, SpawnPayload{
		ParasiteID: p.ID,
		Variant:    p.Variant.String(),
		QueenID:    p.QueenID,
		X:          p.Pos.X,
		Z:          p.Pos.Z,
	})
	return p, nil
}

// AddWorker seeds a drain-class unit into the world.
func (e *Engine) AddWorker(pos Vec3, capacity float64) *Worker {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := NewWorker(e.allocID(), pos, capacity)
	e.workers = append(e.workers, w)
	if e.index != nil {
		e.index.Insert(w.ID, uint8(ClassWorker), pos.X, pos.Z)
	}
	return w
}

// AddDefender seeds a fight-class unit into the world.
func (e *Engine) AddDefender(pos Vec3, maxHP int) *Defender {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := NewDefender(e.allocID(), pos, maxHP)
	e.defenders = append(e.defenders, d)
	if e.index != nil {
		e.index.Insert(d.ID, uint8(ClassDefender), pos.X, pos.Z)
	}
	return d
}

// GetParasite returns a parasite by id, or nil.
func (e *Engine) GetParasite(id uint64) *Parasite {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parasites[id]
}

// DamageParasite applies external damage. A destroyed parasite is
// reaped immediately: removed from the engine, released from its queen
// and reported through the death reporter.
func (e *Engine) DamageParasite(id uint64, amount int) (destroyed, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, exists := e.parasites[id]
	if !exists {
		return false, false
	}

	if !p.TakeDamage(amount) {
		return false, true
	}

	e.reapLocked(p)
	return true, true
}

// reapLocked removes a dead parasite. Caller holds the engine lock.
func (e *Engine) reapLocked(p *Parasite) {
	delete(e.parasites, p.ID)
	if q := e.reconciler.Queen(p.QueenID); q != nil {
		q.Release(p.ID)
	}
	if e.index != nil {
		e.index.Remove(p.ID)
	}

	e.eventLog.EmitSimple(EventTypeDeath, e.tickCount, p.ID, DeathPayload{
		ParasiteID: p.ID,
		Variant:    p.Variant.String(),
		QueenID:    p.QueenID,
	})
	if e.reporter != nil {
		e.reporter.ReportParasiteDeath(p.ID, p.QueenID, p.Variant)
	}
	log.Printf("💀 Parasite %d (%s) destroyed", p.ID, p.Variant)
}

// KillQueen deactivates a queen, releases its controlled set and marks
// its territories liberated. The death is reported through the death
// reporter feed.
func (e *Engine) KillQueen(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	q := e.reconciler.Queen(id)
	if q == nil || !q.Active {
		return false
	}

	controlled := q.ControlledCount()
	q.Active = false
	for pid := range q.Controlled {
		delete(q.Controlled, pid)
		if p := e.parasites[pid]; p != nil {
			p.QueenID = 0
		}
	}
	for _, t := range e.authority.Territories() {
		if t.QueenID == id {
			t.QueenID = 0
			t.Status = StatusLiberated
		}
	}

	e.eventLog.EmitSimple(EventTypeQueenDeath, e.tickCount, id, QueenDeathPayload{
		QueenID:    id,
		Controlled: controlled,
	})
	if e.reporter != nil {
		e.reporter.ReportQueenDeath(id, controlled)
	}
	log.Printf("👑💀 Queen %d destroyed, %d parasites released", id, controlled)
	return true
}

// ValidateConsistency runs a validation pass without mutating anything.
func (e *Engine) ValidateConsistency() ConsistencyReport {
	e.mu.RLock()
	defer e.mu.RUnlock()

	list := make([]*Parasite, 0, len(e.parasites))
	for _, p := range e.parasites {
		list = append(list, p)
	}
	return e.reconciler.ValidateConsistency(list)
}

// Recalculate forces a full attribution rebuild.
func (e *Engine) Recalculate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.parasiteList = e.parasiteList[:0]
	for _, p := range e.parasites {
		e.parasiteList = append(e.parasiteList, p)
	}
	e.reconciler.Recalculate(e.parasiteList)
}

// Stats collects a read-only population snapshot.
func (e *Engine) Stats() StatsSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	list := make([]*Parasite, 0, len(e.parasites))
	for _, p := range e.parasites {
		list = append(list, p)
	}
	snap := collectStats(list, e.reconciler.Queens(), e.authority, e.governor)
	snap.Workers = len(e.workers)
	snap.Defenders = len(e.defenders)
	snap.TickCount = e.tickCount
	snap.SimTime = e.simTime
	return snap
}

// TickCount returns the number of completed ticks.
func (e *Engine) TickCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCount
}

// Governor exposes the performance governor for fidelity queries.
func (e *Engine) Governor() *Governor { return e.governor }

// ParasiteView is a value snapshot of one parasite for API and render
// consumers.
type ParasiteView struct {
	ID       uint64  `json:"id"`
	Variant  string  `json:"variant"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	HP       int     `json:"hp"`
	MaxHP    int     `json:"maxHp"`
	State    string  `json:"state"`
	QueenID  uint64  `json:"queenId"`
	TargetID uint64  `json:"targetId"`
	Fidelity string  `json:"fidelity"`
}

// QueenView is a value snapshot of one queen.
type QueenView struct {
	ID         uint64 `json:"id"`
	Controlled int    `json:"controlled"`
	Active     bool   `json:"active"`
	Vulnerable bool   `json:"vulnerable"`
}

// WorldState is the full value snapshot handed to the API and the
// debug renderer.
type WorldState struct {
	Parasites   []ParasiteView `json:"parasites"`
	Workers     []Worker       `json:"workers"`
	Defenders   []Defender     `json:"defenders"`
	Territories []Territory    `json:"territories"`
	Queens      []QueenView    `json:"queens"`
	TickCount   uint64         `json:"tickCount"`
	SimTime     float64        `json:"simTime"`
}

// GetState copies the current world state for external consumers.
func (e *Engine) GetState() WorldState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state := WorldState{
		Parasites: make([]ParasiteView, 0, len(e.parasites)),
		TickCount: e.tickCount,
		SimTime:   e.simTime,
	}

	for _, p := range e.parasites {
		state.Parasites = append(state.Parasites, ParasiteView{
			ID:       p.ID,
			Variant:  p.Variant.String(),
			X:        p.Pos.X,
			Y:        p.Pos.Y,
			Z:        p.Pos.Z,
			HP:       p.HP,
			MaxHP:    p.MaxHP,
			State:    p.State.String(),
			QueenID:  p.QueenID,
			TargetID: p.TargetID,
			Fidelity: e.governor.Tier(p.ID).String(),
		})
	}
	sort.Slice(state.Parasites, func(i, j int) bool {
		return state.Parasites[i].ID < state.Parasites[j].ID
	})

	for _, w := range e.workers {
		state.Workers = append(state.Workers, *w)
	}
	for _, d := range e.defenders {
		state.Defenders = append(state.Defenders, *d)
	}
	for _, t := range e.authority.Territories() {
		state.Territories = append(state.Territories, *t)
	}
	for _, q := range e.reconciler.Queens() {
		state.Queens = append(state.Queens, QueenView{
			ID:         q.ID,
			Controlled: q.ControlledCount(),
			Active:     q.Active,
			Vulnerable: q.Vulnerable,
		})
	}
	return state
}

// StartEventLog begins persisting events to the given path.
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog flushes and stops the event log.
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log counters for monitoring.
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}
