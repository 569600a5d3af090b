package sim

// Collaborator contracts consumed by the core. Every one of them is
// optional at runtime: a missing collaborator degrades the relevant pass
// (linear scan, tick no-op) instead of failing.

// SpatialIndex answers bounded-radius queries by class tag and accepts
// position write-backs after each agent update. Absence falls back to
// linear distance scans in the scheduler.
type SpatialIndex interface {
	// Insert registers an entity under a class tag; re-inserting an
	// existing id moves it.
	Insert(id uint64, class uint8, x, z float64)

	// Remove drops an entity from the index.
	Remove(id uint64)

	// QueryRadius returns ids of entities within radius of (cx, cz)
	// restricted to the given class tags. The returned slice may be
	// reused on subsequent calls.
	QueryRadius(cx, cz, radius float64, classes []uint8) []uint64

	// UpdatePosition moves an entity inside the index.
	UpdatePosition(id uint64, x, z float64)
}

// HeightProvider samples terrain height. Agents default to a fixed
// height when unavailable.
type HeightProvider interface {
	HeightAt(x, z float64) float64
}

// TerritoryAuthority owns territory lifetimes; the core only reads
// control-relevant fields and updates attribution counts.
type TerritoryAuthority interface {
	// TerritoryAt returns the territory containing (x, z), or nil.
	TerritoryAt(x, z float64) *Territory
	// Territories returns all known territories.
	Territories() []*Territory
}

// ViewpointProvider supplies the camera/player focal point used for
// distance culling. ok == false makes scheduler culling and governor
// passes no-op for the tick.
type ViewpointProvider interface {
	Viewpoint() (pos Vec3, ok bool)
}

// FrameRateSource reports the current measured frames per second,
// polled by the performance governor.
type FrameRateSource interface {
	FPS() float64
}

// DeathReporter receives parasite and queen death notifications. The
// transport behind it (websocket feed, chat bot, log sink) is outside
// the core.
type DeathReporter interface {
	ReportParasiteDeath(parasiteID, queenID uint64, variant Variant)
	ReportQueenDeath(queenID uint64, controlled int)
}
