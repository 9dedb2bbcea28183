package kb

import (
	"errors"
	"sync"
	"testing"

	"github.com/signalsfoundry/surface-sampler/model"
)

func surfaceSample() *model.ExperimentDefinition {
	return &model.ExperimentDefinition{
		ID:            "surfaceSample",
		Title:         "Surface Sample",
		BaseValue:     30,
		DataScale:     1,
		ScienceCap:    40,
		SituationMask: model.SrfLanded | model.SrfSplashed,
		BiomeMask:     model.SrfLanded | model.SrfSplashed,
	}
}

func TestAddExperimentDuplicate(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.AddExperiment(surfaceSample()); err != nil {
		t.Fatalf("first AddExperiment error: %v", err)
	}
	if err := store.AddExperiment(surfaceSample()); !errors.Is(err, ErrExperimentExists) {
		t.Fatalf("duplicate AddExperiment error = %v, want ErrExperimentExists", err)
	}
	if _, ok := store.Experiment("surfaceSample"); !ok {
		t.Fatalf("Experiment() not found after add")
	}
}

func TestResolveSubjectLocale(t *testing.T) {
	store := NewKnowledgeBase()
	exp := surfaceSample()

	s, ok := store.ResolveSubject(exp, model.SrfLanded, "", "", "Mun", "East Crater")
	if !ok {
		t.Fatalf("ResolveSubject() returned no subject")
	}
	if s.ID != "surfaceSample@MunSrfLandedEastCrater" {
		t.Fatalf("subject id = %q", s.ID)
	}
	if s.Title != "Surface Sample from Mun (East Crater)" {
		t.Fatalf("subject title = %q", s.Title)
	}

	again, _ := store.ResolveSubject(exp, model.SrfLanded, "", "", "Mun", "East Crater")
	if again.ID != s.ID {
		t.Fatalf("second resolve id = %q, want %q", again.ID, s.ID)
	}
}

func TestResolveSubjectForeignBody(t *testing.T) {
	store := NewKnowledgeBase()
	exp := &model.ExperimentDefinition{ID: "asteroidSample", Title: "Asteroid Sample"}
	s, ok := store.ResolveSubject(exp, model.InSpaceLow, "PotatoRoid42", "Class C Asteroid", "Kerbin", "")
	if !ok {
		t.Fatalf("ResolveSubject() returned no subject")
	}
	if s.ID != "asteroidSample@PotatoRoid42InSpaceLow" {
		t.Fatalf("subject id = %q", s.ID)
	}
	if s.Title != "Asteroid Sample from Class C Asteroid" {
		t.Fatalf("subject title = %q", s.Title)
	}
}

func TestResolveSubjectNothingToFileUnder(t *testing.T) {
	store := NewKnowledgeBase()
	if _, ok := store.ResolveSubject(surfaceSample(), model.SrfLanded, "", "", "", ""); ok {
		t.Fatalf("expected no subject without locale or body key")
	}
	if _, ok := store.ResolveSubject(nil, model.SrfLanded, "", "", "Mun", ""); ok {
		t.Fatalf("expected no subject for nil experiment")
	}
}

func TestSubmitScienceCapsAndNotifies(t *testing.T) {
	store := NewKnowledgeBase()
	s, _ := store.ResolveSubject(surfaceSample(), model.SrfLanded, "", "", "Mun", "")

	var mu sync.Mutex
	var events []Event
	unsubscribe := store.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})

	got, err := store.SubmitScience(s.ID, 30)
	if err != nil || got != 30 {
		t.Fatalf("SubmitScience() = (%v, %v), want (30, nil)", got, err)
	}
	got, _ = store.SubmitScience(s.ID, 30)
	if got != 10 {
		t.Fatalf("capped SubmitScience() = %v, want 10", got)
	}
	unsubscribe()
	store.SubmitScience(s.ID, 1)

	if len(events) != 2 || events[1].Amount != 10 || events[1].Subject.Science != 40 {
		t.Fatalf("events = %+v", events)
	}
	if _, err := store.SubmitScience("missing", 1); !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("SubmitScience(missing) error = %v", err)
	}
}

func TestUnsubscribeRemovesOnlyItsCallback(t *testing.T) {
	store := NewKnowledgeBase()
	counts := map[string]int{}
	subscribe := func(name string) func() {
		return store.Subscribe(func(Event) { counts[name]++ })
	}
	unsubA := subscribe("a")
	unsubB := subscribe("b")
	subscribe("c")

	unsubA()
	unsubB()
	unsubA()
	store.ResolveSubject(surfaceSample(), model.SrfLanded, "", "", "Mun", "")

	if counts["a"] != 0 || counts["b"] != 0 || counts["c"] != 1 {
		t.Fatalf("notifications = %v, want only c once", counts)
	}
}

func TestBiomeAt(t *testing.T) {
	store := NewKnowledgeBase()
	store.AddBiome("Mun", "Midlands", -30, 30, -180, 180)
	store.AddBiome("Mun", "Poles", -90, 90, -180, 180)

	if got := store.BiomeAt("Mun", 10, 45); got != "Midlands" {
		t.Fatalf("BiomeAt(10,45) = %q, want Midlands", got)
	}
	if got := store.BiomeAt("Mun", 80, 0); got != "Poles" {
		t.Fatalf("BiomeAt(80,0) = %q, want Poles", got)
	}
	if got := store.BiomeAt("Minmus", 0, 0); got != "" {
		t.Fatalf("BiomeAt(Minmus) = %q, want empty", got)
	}
}
