package core

import (
	"time"

	"github.com/signalsfoundry/surface-sampler/model"
)

const (
	// DefaultCaptureRadius is the distance within which a target's foreign
	// body counts as in range.
	DefaultCaptureRadius = 200.0
	// DefaultScanInterval is the minimum simulated time between scans.
	DefaultScanInterval = 500 * time.Millisecond
	// DefaultMaxWarp caps the time-acceleration factor applied to scans.
	DefaultMaxWarp = 10.0
)

// Attachment is a foreign body attached to a vehicle, with its position.
type Attachment struct {
	Body     model.ForeignBody
	Position Vec3
}

// InRange reports whether a foreign body can be captured: any body
// attached to the owning vehicle counts, otherwise a body attached to the
// target must lie within radius of position.
func InRange(own, target []Attachment, position Vec3, radius float64) bool {
	if len(own) > 0 {
		return true
	}
	if radius <= 0 {
		radius = DefaultCaptureRadius
	}
	for _, a := range target {
		if a.Position.DistanceTo(position) < radius {
			return true
		}
	}
	return false
}

// Throttle limits how often the proximity scan runs.
type Throttle struct {
	Interval time.Duration
	MaxWarp  float64

	last    time.Time
	started bool
}

// NewThrottle returns a throttle with the default cadence.
func NewThrottle() *Throttle {
	return &Throttle{Interval: DefaultScanInterval, MaxWarp: DefaultMaxWarp}
}

// Due reports whether a scan should run at now given the current warp
// factor, and records now as the last scan when it does. Elapsed time is
// multiplied by warp clamped to [1, MaxWarp]. The first call is always due.
func (t *Throttle) Due(now time.Time, warp float64) bool {
	if !t.started {
		t.started = true
		t.last = now
		return true
	}
	maxWarp := t.MaxWarp
	if maxWarp < 1 {
		maxWarp = DefaultMaxWarp
	}
	if warp < 1 || !isFinite(warp) {
		warp = 1
	}
	if warp > maxWarp {
		warp = maxWarp
	}
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultScanInterval
	}

	elapsed := float64(now.Sub(t.last)) * warp
	if elapsed <= float64(interval) {
		return false
	}
	t.last = now
	return true
}

// Reset forgets the last scan time.
func (t *Throttle) Reset() {
	t.started = false
	t.last = time.Time{}
}
