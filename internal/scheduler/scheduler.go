package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/surface-sampler/timectrl"
)

// EventScheduler runs callbacks at simulation times. The host loop advances
// the clock and calls RunDue after every tick; instruments use Schedule and
// Cancel for their deploy timers.
type EventScheduler interface {
	// Schedule registers f to run at simulation time at and returns an
	// opaque id usable with Cancel.
	Schedule(at time.Time, f func()) (id string)

	// Cancel drops a scheduled event. Unknown or already-run ids are ignored.
	Cancel(id string)

	// Now returns the current simulation time.
	Now() time.Time

	// RunDue executes every event scheduled at or before Now(). Events
	// never run twice.
	RunDue()

	// Len returns the number of events still waiting to run.
	Len() int
}

// AfterFunc schedules f to run d after the scheduler's current time.
func AfterFunc(s EventScheduler, d time.Duration, f func()) string {
	return s.Schedule(s.Now().Add(d), f)
}

type timer struct {
	id        string
	when      time.Time
	f         func()
	cancelled bool
}

// queue keeps timers ordered by time; timers scheduled for the same instant
// keep their insertion order.
type queue struct {
	counter uint64
	prefix  string
	timers  []*timer
	index   map[string]*timer
}

func newQueue(prefix string) queue {
	return queue{prefix: prefix, index: make(map[string]*timer)}
}

func (q *queue) push(at time.Time, f func()) string {
	q.counter++
	t := &timer{
		id:   fmt.Sprintf("%s-%d", q.prefix, q.counter),
		when: at,
		f:    f,
	}
	idx := sort.Search(len(q.timers), func(i int) bool {
		return q.timers[i].when.After(at)
	})
	q.timers = append(q.timers, nil)
	copy(q.timers[idx+1:], q.timers[idx:])
	q.timers[idx] = t
	q.index[t.id] = t
	return t.id
}

func (q *queue) cancel(id string) {
	t, ok := q.index[id]
	if !ok {
		return
	}
	// Removal from the slice is lazy; pop skips cancelled timers.
	t.cancelled = true
	delete(q.index, id)
}

// pop removes and returns the earliest live timer due at now, or nil.
func (q *queue) pop(now time.Time) *timer {
	for len(q.timers) > 0 {
		t := q.timers[0]
		if t.cancelled {
			q.timers = q.timers[1:]
			continue
		}
		if t.when.After(now) {
			return nil
		}
		q.timers = q.timers[1:]
		delete(q.index, t.id)
		return t
	}
	return nil
}

func (q *queue) len() int {
	return len(q.index)
}

type eventScheduler struct {
	clock timectrl.SimClock

	mu sync.Mutex
	q  queue
}

// NewEventScheduler creates a scheduler driven by clock, normally the
// simulator's TimeController.
func NewEventScheduler(clock timectrl.SimClock) EventScheduler {
	return &eventScheduler{clock: clock, q: newQueue("timer")}
}

func (s *eventScheduler) Schedule(at time.Time, f func()) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.push(at, f)
}

func (s *eventScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.q.cancel(id)
}

func (s *eventScheduler) Now() time.Time {
	return s.clock.Now()
}

func (s *eventScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.len()
}

func (s *eventScheduler) RunDue() {
	for {
		now := s.clock.Now()
		s.mu.Lock()
		t := s.q.pop(now)
		s.mu.Unlock()
		if t == nil {
			return
		}
		// Run outside the lock so callbacks can schedule or cancel.
		if t.f != nil {
			t.f()
		}
	}
}
