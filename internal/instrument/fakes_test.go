package instrument

import (
	"context"
	"testing"
	"time"

	"github.com/signalsfoundry/surface-sampler/core"
	"github.com/signalsfoundry/surface-sampler/internal/config"
	"github.com/signalsfoundry/surface-sampler/internal/scheduler"
	"github.com/signalsfoundry/surface-sampler/kb"
	"github.com/signalsfoundry/surface-sampler/model"
)

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakePart struct {
	id        uint32
	transform string
	origin    core.Vec3
	forward   core.Vec3
	scale     float64
	pos       core.Vec3
}

func (p *fakePart) FlightID() uint32 { return p.id }

func (p *fakePart) Transform(name string) (core.Vec3, core.Vec3, bool) {
	if name != p.transform {
		return core.Vec3{}, core.Vec3{}, false
	}
	return p.origin, p.forward, true
}

func (p *fakePart) RescaleFactor() float64 { return p.scale }
func (p *fakePart) Position() core.Vec3    { return p.pos }

type fakeVehicle struct {
	situation    model.VehicleSituation
	expSituation model.Situation
	body         string
	landedAt     string
	lat, lon     float64
	foreign      []core.Attachment
	transmitters []Transmitter
	labs         []Lab
}

func (v *fakeVehicle) Situation() model.VehicleSituation    { return v.situation }
func (v *fakeVehicle) ExperimentSituation() model.Situation { return v.expSituation }
func (v *fakeVehicle) MainBody() string                     { return v.body }
func (v *fakeVehicle) LandedAt() string                     { return v.landedAt }
func (v *fakeVehicle) Coordinates() (float64, float64)      { return v.lat, v.lon }
func (v *fakeVehicle) ForeignBodies() []core.Attachment     { return v.foreign }
func (v *fakeVehicle) Transmitters() []Transmitter          { return v.transmitters }
func (v *fakeVehicle) Labs() []Lab                          { return v.labs }

type fakeTransmitter struct {
	score float64
	sent  []model.SampleRecord
}

func (t *fakeTransmitter) Score() float64 { return t.score }
func (t *fakeTransmitter) Transmit(records []model.SampleRecord) {
	t.sent = append(t.sent, records...)
}

type fakeLab struct {
	operational bool
	score       float64
	processed   []model.SampleRecord
	done        []func()
}

func (l *fakeLab) Operational() bool { return l.operational }
func (l *fakeLab) Score() float64    { return l.score }
func (l *fakeLab) Process(rec model.SampleRecord, done func()) {
	l.processed = append(l.processed, rec)
	l.done = append(l.done, done)
}

type fakePresenter struct {
	pages  []ResultPage
	hidden int
	shown  int
}

func (p *fakePresenter) PresentResult(page ResultPage) { p.pages = append(p.pages, page) }
func (p *fakePresenter) Hide()                         { p.hidden++ }
func (p *fakePresenter) Show()                         { p.shown++ }

type fakeMessenger struct {
	posts []string
}

func (m *fakeMessenger) Post(text string, _ time.Duration) { m.posts = append(m.posts, text) }

type fakeConfirmer struct {
	answer  bool
	err     error
	prompts []string
}

func (c *fakeConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.answer, c.err
}

type fakeContainer struct {
	accept bool
	stored []model.SampleRecord
}

func (c *fakeContainer) StoreRecords(records []model.SampleRecord) bool {
	if !c.accept {
		return false
	}
	c.stored = append(c.stored, records...)
	return true
}

type fakeObserver struct {
	deployed []model.SampleRecord
}

func (o *fakeObserver) ExperimentDeployed(rec model.SampleRecord) {
	o.deployed = append(o.deployed, rec)
}

type fakeAnimator struct {
	cues   map[string]time.Duration
	played []string
}

func (a *fakeAnimator) HasCue(name string) bool {
	_, ok := a.cues[name]
	return ok
}

func (a *fakeAnimator) Play(name string)      { a.played = append(a.played, name) }
func (a *fakeAnimator) IsPlaying(string) bool { return false }
func (a *fakeAnimator) LengthOf(name string) time.Duration {
	return a.cues[name]
}

type fakeAudio struct {
	playing bool
	plays   int
}

func (a *fakeAudio) Play()           { a.plays++ }
func (a *fakeAudio) IsPlaying() bool { return a.playing }

type fakeOperator struct{ ok bool }

func (o fakeOperator) MeetsUsageRequirements(Part) bool { return o.ok }

type fakeTarget struct {
	bodies []core.Attachment
	ok     bool
}

func (t *fakeTarget) TargetForeignBodies() ([]core.Attachment, bool) { return t.bodies, t.ok }

type recordingMetrics struct {
	deploys []string
	ops     []string
	timers  []time.Duration
	held    int
}

func (m *recordingMetrics) ObserveDeploy(outcome string) { m.deploys = append(m.deploys, outcome) }
func (m *recordingMetrics) ObserveOperation(op, outcome string) {
	m.ops = append(m.ops, op+":"+outcome)
}
func (m *recordingMetrics) ObserveTimer(d time.Duration) { m.timers = append(m.timers, d) }
func (m *recordingMetrics) SetRecordsHeld(n int)         { m.held = n }

// countingWorld records how often the world was queried.
type countingWorld struct {
	core.Raycaster
	calls int
}

func (w *countingWorld) Raycast(ray core.Ray, maxDistance float64) (core.HitReport, bool) {
	w.calls++
	return w.Raycaster.Raycast(ray, maxDistance)
}

type fixture struct {
	sampler   *Sampler
	cfg       *config.Instrument
	sched     *scheduler.FakeEventScheduler
	scene     *core.Scene
	world     *countingWorld
	kb        *kb.KnowledgeBase
	part      *fakePart
	vehicle   *fakeVehicle
	presenter *fakePresenter
	messenger *fakeMessenger
	observer  *fakeObserver
	metrics   *recordingMetrics
}

const (
	surfaceSubjectID  = "surfaceSample@MunSrfLandedMidlands"
	surfaceRecordData = 25.0
)

// newFixture builds a Sampler on the Mun surface: the probe points straight
// down at terrain three units away.
func newFixture(t *testing.T, mutate func(*config.Instrument), opts ...Option) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Name = "IR Surface Sampler"
	cfg.Probe = config.ProbeConfig{Transform: "drillTransform", Distance: 5}
	if mutate != nil {
		mutate(cfg)
	}

	knowledge := kb.NewKnowledgeBase()
	mustAddExperiment(t, knowledge, &model.ExperimentDefinition{
		ID:            "surfaceSample",
		Title:         "Surface Sample",
		BaseValue:     10,
		DataScale:     2.5,
		ScienceCap:    40,
		SituationMask: model.SrfLanded | model.SrfSplashed,
		BiomeMask:     model.SrfLanded,
	})
	mustAddExperiment(t, knowledge, &model.ExperimentDefinition{
		ID:            "asteroidSample",
		Title:         "Asteroid Sample",
		BaseValue:     20,
		DataScale:     1.5,
		ScienceCap:    60,
		SituationMask: model.SrfLanded | model.SrfSplashed | model.FlyingLow | model.FlyingHigh | model.InSpaceLow | model.InSpaceHigh,
	})
	knowledge.AddBiome("Mun", "Midlands", -90, 90, -180, 180)

	scene := core.NewScene()
	scene.Put("mun", core.SphereCollider{
		Center: core.Vec3{Z: -103},
		Radius: 100,
		Layer:  core.LayerLocalScenery,
		Node:   &core.Node{Name: "Mun"},
	})
	world := &countingWorld{Raycaster: scene}

	part := &fakePart{
		id:        42,
		transform: "drillTransform",
		forward:   core.Vec3{Z: -1},
		scale:     1,
	}
	vehicle := &fakeVehicle{
		situation:    model.VehicleLanded,
		expSituation: model.SrfLanded,
		body:         "Mun",
	}

	f := &fixture{
		cfg:       cfg,
		sched:     scheduler.NewFakeEventScheduler(testStart),
		scene:     scene,
		world:     world,
		kb:        knowledge,
		part:      part,
		vehicle:   vehicle,
		presenter: &fakePresenter{},
		messenger: &fakeMessenger{},
		observer:  &fakeObserver{},
		metrics:   &recordingMetrics{},
	}

	base := []Option{
		WithBiomeMap(knowledge),
		WithPresenter(f.presenter),
		WithMessenger(f.messenger),
		WithObserver(f.observer),
		WithMetricsRecorder(f.metrics),
	}
	s, err := New(cfg, Host{
		Part:        part,
		Vehicle:     vehicle,
		World:       world,
		Scheduler:   f.sched,
		Experiments: knowledge,
		Subjects:    knowledge,
	}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.sampler = s
	return f
}

func mustAddExperiment(t *testing.T, knowledge *kb.KnowledgeBase, exp *model.ExperimentDefinition) {
	t.Helper()
	if err := knowledge.AddExperiment(exp); err != nil {
		t.Fatalf("AddExperiment(%s) error = %v", exp.ID, err)
	}
}

// deployAndComplete runs a full acquisition and returns the held record.
func (f *fixture) deployAndComplete(t *testing.T) model.SampleRecord {
	t.Helper()
	if err := f.sampler.Deploy(context.Background()); err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	f.sched.Advance(10 * time.Second)
	records := f.sampler.GetRecords()
	if len(records) != 1 {
		t.Fatalf("GetRecords() len = %d, want 1", len(records))
	}
	return records[0]
}
