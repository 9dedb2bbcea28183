package scheduler

import (
	"sync"
	"time"
)

// FakeEventScheduler keeps its own notion of simulation time so tests can
// advance it explicitly and fire timers deterministically.
type FakeEventScheduler struct {
	mu  sync.Mutex
	now time.Time
	q   queue
}

// NewFakeEventScheduler creates a fake scheduler starting at start.
func NewFakeEventScheduler(start time.Time) *FakeEventScheduler {
	return &FakeEventScheduler{now: start, q: newQueue("fake-timer")}
}

func (s *FakeEventScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *FakeEventScheduler) Schedule(at time.Time, f func()) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.push(at, f)
}

func (s *FakeEventScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.q.cancel(id)
}

func (s *FakeEventScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.len()
}

func (s *FakeEventScheduler) RunDue() {
	for {
		s.mu.Lock()
		t := s.q.pop(s.now)
		s.mu.Unlock()
		if t == nil {
			return
		}
		if t.f != nil {
			t.f()
		}
	}
}

// AdvanceTo moves fake time to t and runs every due timer. Time never goes
// backwards.
func (s *FakeEventScheduler) AdvanceTo(t time.Time) {
	s.mu.Lock()
	if t.After(s.now) {
		s.now = t
	}
	s.mu.Unlock()
	s.RunDue()
}

// Advance moves fake time forward by d and runs every due timer.
func (s *FakeEventScheduler) Advance(d time.Duration) {
	s.AdvanceTo(s.Now().Add(d))
}
