package timectrl

import (
	"sync"
	"time"
)

// SimClock is an interface for accessing simulation time so the
// scheduler and the instrument can depend on a clock abstraction rather
// than a concrete time controller.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// WarpClock is a SimClock that also reports the current time-acceleration
// factor.
type WarpClock interface {
	SimClock
	Warp() float64
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime advances according to wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still stepping by Tick.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// TimeController drives simulation time and notifies registered listeners.
// Each tick advances simulation time by Tick multiplied by the warp factor.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time
	warp        float64

	listeners []func(time.Time)
}

// NewTimeController constructs a controller at warp 1.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
		warp:        1,
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime jumps simulation time without notifying listeners.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// Warp returns the current time-acceleration factor. Implements WarpClock.
func (tc *TimeController) Warp() float64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.warp
}

// SetWarp changes the time-acceleration factor. Values below 1 are
// treated as 1.
func (tc *TimeController) SetWarp(w float64) {
	if w < 1 {
		w = 1
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.warp = w
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Step advances simulation time by one warped tick and notifies listeners
// synchronously. It returns the new simulation time.
func (tc *TimeController) Step() time.Time {
	tc.mu.Lock()
	step := time.Duration(float64(tc.Tick) * tc.warp)
	tc.currentTime = tc.currentTime.Add(step)
	now := tc.currentTime
	listeners := append([]func(time.Time){}, tc.listeners...)
	tc.mu.Unlock()

	// Notify outside the lock so listeners may query the clock.
	for _, fn := range listeners {
		fn(now)
	}
	return now
}

// Start runs the controller for the specified wall-clock duration in a
// separate goroutine. In RealTime mode each tick waits for the ticker; in
// Accelerated mode ticks run back to back. It returns a channel that is
// closed when the controller finishes.
func (tc *TimeController) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		tc.mu.Lock()
		tc.currentTime = tc.StartTime
		tc.mu.Unlock()

		elapsed := time.Duration(0)

		var ticker *time.Ticker
		if tc.Mode == RealTime {
			ticker = time.NewTicker(tc.Tick)
			defer ticker.Stop()
		}

		for {
			if duration > 0 && elapsed >= duration {
				return
			}
			if ticker != nil {
				<-ticker.C
			}
			tc.Step()
			elapsed += tc.Tick
		}
	}()
	return done
}
