package sim

import (
	"encoding/json"
	"time"
)

// EventType classifies simulation events.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // tick boundary with RNG seed
	EventTypeSpawn
	EventTypeDeath
	EventTypeQueenDeath
	EventTypeFeed
	EventTypeStateChange
	EventTypeReconcile
)

// EventVersion allows the replay reader to handle schema changes.
const EventVersion uint8 = 1

// Event is one entry in the append-only event log.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // unix nano
	Sequence  uint64    `json:"sequence"`  // monotonic
	TickNum   uint64    `json:"tickNum"`
	SourceID  uint64    `json:"sourceId"` // emitting parasite/queen, 0 for system
	Payload   []byte    `json:"payload"`  // JSON-encoded payload
}

// String returns a human-readable event type.
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeSpawn:
		return "spawn"
	case EventTypeDeath:
		return "death"
	case EventTypeQueenDeath:
		return "queen_death"
	case EventTypeFeed:
		return "feed"
	case EventTypeStateChange:
		return "state_change"
	case EventTypeReconcile:
		return "reconcile"
	default:
		return "unknown"
	}
}

// TickPayload records the tick boundary for deterministic replay.
type TickPayload struct {
	RNGSeed       int64   `json:"rngSeed"`
	ParasiteCount int     `json:"parasiteCount"`
	DeltaTime     float64 `json:"deltaTime"`
}

// SpawnPayload records a parasite spawn.
type SpawnPayload struct {
	ParasiteID uint64  `json:"parasiteId"`
	Variant    string  `json:"variant"`
	QueenID    uint64  `json:"queenId"`
	X          float64 `json:"x"`
	Z          float64 `json:"z"`
}

// DeathPayload records a parasite death.
type DeathPayload struct {
	ParasiteID uint64 `json:"parasiteId"`
	Variant    string `json:"variant"`
	QueenID    uint64 `json:"queenId"`
}

// QueenDeathPayload records a controller death and the size of the
// controlled set it released.
type QueenDeathPayload struct {
	QueenID    uint64 `json:"queenId"`
	Controlled int    `json:"controlled"`
}

// FeedPayload records one successful drain or damage application.
type FeedPayload struct {
	ParasiteID  uint64  `json:"parasiteId"`
	TargetID    uint64  `json:"targetId"`
	TargetClass string  `json:"targetClass"`
	Amount      float64 `json:"amount"`
}

// StateChangePayload records a behavior state transition.
type StateChangePayload struct {
	ParasiteID uint64 `json:"parasiteId"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// ReconcilePayload summarizes a reconciliation pass.
type ReconcilePayload struct {
	Orphaned          int `json:"orphaned"`
	WronglyControlled int `json:"wronglyControlled"`
	Duplicates        int `json:"duplicates"`
	Attributed        int `json:"attributed"`
}

// EventSink receives events raised from inside a tick. *EventLog
// satisfies it; a nil sink in the tick context silences emission.
type EventSink interface {
	EmitSimple(eventType EventType, tickNum, sourceID uint64, payload interface{}) bool
}

// EncodePayload marshals a payload to JSON bytes.
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates an event stamped with the current wall clock.
func NewEvent(eventType EventType, tickNum, sourceID uint64, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		SourceID:  sourceID,
		Payload:   EncodePayload(payload),
	}
}
