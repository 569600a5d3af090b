package sim

import (
	"sync"
	"time"
)

// TickMeter measures achieved ticks per second with exponential
// smoothing and implements FrameRateSource. The engine marks a frame
// per tick; anything else that renders can mark its own meter.
type TickMeter struct {
	mu       sync.Mutex
	last     time.Time
	smoothed float64
}

// NewTickMeter creates a meter primed at the expected rate so the
// governor doesn't see a cold-start zero.
func NewTickMeter(expected float64) *TickMeter {
	return &TickMeter{smoothed: expected}
}

// Frame records one completed frame/tick.
func (m *TickMeter) Frame() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if !m.last.IsZero() {
		if dt := now.Sub(m.last).Seconds(); dt > 0 {
			instant := 1.0 / dt
			m.smoothed = m.smoothed*0.9 + instant*0.1
		}
	}
	m.last = now
}

// FPS returns the smoothed frame rate.
func (m *TickMeter) FPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.smoothed
}

// StaticFPS is a fixed-rate FrameRateSource, handy for tests and for
// headless runs without a real render loop.
type StaticFPS float64

// FPS returns the fixed rate.
func (s StaticFPS) FPS() float64 { return float64(s) }

// FixedViewpoint is a ViewpointProvider pinned to one position.
type FixedViewpoint Vec3

// Viewpoint returns the fixed position.
func (v FixedViewpoint) Viewpoint() (Vec3, bool) { return Vec3(v), true }
