package host

import (
	"sync"
	"time"

	"github.com/signalsfoundry/surface-sampler/internal/instrument"
	"github.com/signalsfoundry/surface-sampler/timectrl"
)

// Animations plays named cues of fixed length on the simulation clock.
type Animations struct {
	clock   timectrl.SimClock
	lengths map[string]time.Duration

	mu    sync.Mutex
	until map[string]time.Time
}

var _ instrument.Animator = (*Animations)(nil)

// NewAnimations creates an animator with the given cue lengths.
func NewAnimations(clock timectrl.SimClock, lengths map[string]time.Duration) *Animations {
	return &Animations{clock: clock, lengths: lengths, until: make(map[string]time.Time)}
}

func (a *Animations) HasCue(name string) bool {
	_, ok := a.lengths[name]
	return ok
}

func (a *Animations) Play(name string) {
	length, ok := a.lengths[name]
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.until[name] = a.clock.Now().Add(length)
}

func (a *Animations) IsPlaying(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	end, ok := a.until[name]
	return ok && a.clock.Now().Before(end)
}

func (a *Animations) LengthOf(name string) time.Duration { return a.lengths[name] }

// Sound is a single audio clip of fixed length.
type Sound struct {
	clock  timectrl.SimClock
	length time.Duration

	mu    sync.Mutex
	until time.Time
	plays int
}

var _ instrument.AudioCue = (*Sound)(nil)

// NewSound creates a clip of the given length.
func NewSound(clock timectrl.SimClock, length time.Duration) *Sound {
	return &Sound{clock: clock, length: length}
}

func (s *Sound) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.until = s.clock.Now().Add(s.length)
	s.plays++
}

func (s *Sound) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Now().Before(s.until)
}

// Plays returns how many times the clip started.
func (s *Sound) Plays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays
}
