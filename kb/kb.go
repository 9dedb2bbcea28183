package kb

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/signalsfoundry/surface-sampler/model"
)

var (
	// ErrExperimentExists indicates an experiment id is already registered.
	ErrExperimentExists = errors.New("experiment already exists")
	// ErrSubjectNotFound indicates a subject id is unknown.
	ErrSubjectNotFound = errors.New("subject not found")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventSubjectCreated EventType = iota
	EventScienceSubmitted
)

// Event is emitted to subscribers when a subject changes.
type Event struct {
	Type    EventType
	Subject model.Subject
	Amount  float64
}

// KnowledgeBase is an in-memory, thread-safe registry of experiment
// definitions, science subjects and biome maps.
type KnowledgeBase struct {
	mu sync.RWMutex

	experiments map[string]*model.ExperimentDefinition
	subjects    map[string]*model.Subject
	biomes      map[string][]biomeRegion

	subs   []subscription
	nextID int
}

type subscription struct {
	id int
	fn func(Event)
}

type biomeRegion struct {
	name           string
	latMin, latMax float64
	lonMin, lonMax float64
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		experiments: make(map[string]*model.ExperimentDefinition),
		subjects:    make(map[string]*model.Subject),
		biomes:      make(map[string][]biomeRegion),
	}
}

// AddExperiment registers an experiment definition.
func (kb *KnowledgeBase) AddExperiment(e *model.ExperimentDefinition) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("experiment id is required")
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if _, exists := kb.experiments[e.ID]; exists {
		return fmt.Errorf("%w: %q", ErrExperimentExists, e.ID)
	}
	kb.experiments[e.ID] = e
	return nil
}

// Experiment returns the definition registered under id.
func (kb *KnowledgeBase) Experiment(id string) (*model.ExperimentDefinition, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	e, ok := kb.experiments[id]
	return e, ok
}

// AddBiome registers a rectangular latitude/longitude region on body.
// Regions are checked in registration order.
func (kb *KnowledgeBase) AddBiome(body, name string, latMin, latMax, lonMin, lonMax float64) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.biomes[body] = append(kb.biomes[body], biomeRegion{
		name:   name,
		latMin: latMin,
		latMax: latMax,
		lonMin: lonMin,
		lonMax: lonMax,
	})
}

// BiomeAt returns the biome containing the coordinates, or "" if body has
// no matching region.
func (kb *KnowledgeBase) BiomeAt(body string, lat, lon float64) string {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	for _, r := range kb.biomes[body] {
		if lat >= r.latMin && lat <= r.latMax && lon >= r.lonMin && lon <= r.lonMax {
			return r.name
		}
	}
	return ""
}

// ResolveSubject returns the subject for an experiment run, creating it on
// first use. Foreign-body runs pass a non-empty bodyKey, which replaces the
// locale in the subject id. It returns false when exp is nil or there is
// nothing to file the subject under.
func (kb *KnowledgeBase) ResolveSubject(exp *model.ExperimentDefinition, sit model.Situation, bodyKey, bodyTitle, locale, biome string) (*model.Subject, bool) {
	if exp == nil {
		return nil, false
	}
	where, whereTitle := locale, locale
	if bodyKey != "" {
		where = bodyKey
		whereTitle = bodyTitle
		if whereTitle == "" {
			whereTitle = bodyKey
		}
	}
	if where == "" {
		return nil, false
	}

	id := exp.ID + "@" + where + sit.String() + strings.ReplaceAll(biome, " ", "")

	kb.mu.Lock()
	if s, ok := kb.subjects[id]; ok {
		cp := *s
		kb.mu.Unlock()
		return &cp, true
	}
	title := exp.Title + " from " + whereTitle
	if biome != "" {
		title += " (" + biome + ")"
	}
	s := &model.Subject{ID: id, Title: title, ScienceCap: exp.ScienceCap}
	kb.subjects[id] = s
	event := Event{Type: EventSubjectCreated, Subject: *s}
	subs := kb.callbacksLocked()
	kb.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}
	cp := *s
	return &cp, true
}

// Subject returns a copy of the subject registered under id.
func (kb *KnowledgeBase) Subject(id string) (model.Subject, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	s, ok := kb.subjects[id]
	if !ok {
		return model.Subject{}, false
	}
	return *s, true
}

// SubmitScience credits amount to a subject, capped at its science cap, and
// notifies subscribers. It returns the amount actually credited.
func (kb *KnowledgeBase) SubmitScience(id string, amount float64) (float64, error) {
	kb.mu.Lock()
	s, ok := kb.subjects[id]
	if !ok {
		kb.mu.Unlock()
		return 0, fmt.Errorf("%w: %q", ErrSubjectNotFound, id)
	}
	credited := amount
	if s.ScienceCap > 0 && s.Science+credited > s.ScienceCap {
		credited = s.ScienceCap - s.Science
	}
	if credited < 0 {
		credited = 0
	}
	s.Science += credited
	event := Event{Type: EventScienceSubmitted, Subject: *s, Amount: credited}
	subs := kb.callbacksLocked()
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, fn := range subs {
		fn(event)
	}
	return credited, nil
}

// Subscribe registers a callback for KB events. It returns an unsubscribe
// function; calling it more than once is harmless.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.nextID++
	id := kb.nextID
	kb.subs = append(kb.subs, subscription{id: id, fn: fn})

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		for i, sub := range kb.subs {
			if sub.id == id {
				kb.subs = append(kb.subs[:i], kb.subs[i+1:]...)
				return
			}
		}
	}
}

func (kb *KnowledgeBase) callbacksLocked() []func(Event) {
	fns := make([]func(Event), len(kb.subs))
	for i, sub := range kb.subs {
		fns[i] = sub.fn
	}
	return fns
}
