// Package instrument implements the surface sampling instrument: the deploy
// state machine and the lifecycle of the single record it holds.
package instrument

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/surface-sampler/core"
	"github.com/signalsfoundry/surface-sampler/internal/config"
	"github.com/signalsfoundry/surface-sampler/internal/logging"
	"github.com/signalsfoundry/surface-sampler/internal/scheduler"
	"github.com/signalsfoundry/surface-sampler/model"
)

const tracerName = "github.com/signalsfoundry/surface-sampler/internal/instrument"

// Host bundles the collaborators a Sampler cannot run without.
type Host struct {
	Part        Part
	Vehicle     Vehicle
	World       core.Raycaster
	Scheduler   scheduler.EventScheduler
	Experiments ExperimentRegistry
	Subjects    SubjectRegistry
}

// Actions is a snapshot of which operations are currently offered to the
// user.
type Actions struct {
	Deploy  bool
	Reset   bool
	Review  bool
	Collect bool
	Cleanup bool
}

// Status is a point-in-time view of a Sampler.
type Status struct {
	State      model.InstrumentState
	Pending    *model.DeployRequest
	Records    int
	Actions    Actions
	InRange    bool
	Rerunnable bool
}

// Sampler is one sampling instrument. All methods are safe for concurrent
// use; collaborators that may call back into the Sampler (presenter, labs,
// confirmer, containers, observer) are invoked without the lock held.
type Sampler struct {
	mu sync.Mutex

	cfg        *config.Instrument
	classifier *core.Classifier
	throttle   *core.Throttle

	part        Part
	vehicle     Vehicle
	world       core.Raycaster
	sched       scheduler.EventScheduler
	experiments ExperimentRegistry
	subjects    SubjectRegistry

	biomes    BiomeMap
	animator  Animator
	audio     AudioCue
	target    TargetTracker
	presenter Presenter
	messenger Messenger
	confirmer Confirmer
	observer  Observer
	metrics   MetricsRecorder
	log       logging.Logger
	tracer    trace.Tracer

	state   model.InstrumentState
	records []model.SampleRecord
	pending *model.DeployRequest
	timerID string
	inRange bool
	paused  bool
	closed  bool
}

// Option customises Sampler construction.
type Option func(*Sampler)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetricsRecorder attaches a metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Sampler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithBiomeMap enables coordinate-derived biomes.
func WithBiomeMap(b BiomeMap) Option {
	return func(s *Sampler) { s.biomes = b }
}

// WithAnimator sets the animation player; its cue length drives the deploy
// timer.
func WithAnimator(a Animator) Option {
	return func(s *Sampler) { s.animator = a }
}

// WithAudioCue sets the sound played on deploy.
func WithAudioCue(a AudioCue) Option {
	return func(s *Sampler) { s.audio = a }
}

// WithTargetTracker lets the proximity scan consider the targeted vessel.
func WithTargetTracker(t TargetTracker) Option {
	return func(s *Sampler) { s.target = t }
}

// WithPresenter sets the result page presenter.
func WithPresenter(p Presenter) Option {
	return func(s *Sampler) { s.presenter = p }
}

// WithMessenger sets the sink for user-visible messages.
func WithMessenger(m Messenger) Option {
	return func(s *Sampler) { s.messenger = m }
}

// WithConfirmer sets the yes/no collaborator used before a transfer out of
// a non-rerunnable instrument. Without one such transfers are declined.
func WithConfirmer(c Confirmer) Option {
	return func(s *Sampler) { s.confirmer = c }
}

// WithObserver registers the deployment-completed observer.
func WithObserver(o Observer) Option {
	return func(s *Sampler) { s.observer = o }
}

// New constructs an idle Sampler.
func New(cfg *config.Instrument, host Host, opts ...Option) (*Sampler, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	switch {
	case host.Part == nil:
		return nil, errors.New("instrument: part is required")
	case host.Vehicle == nil:
		return nil, errors.New("instrument: vehicle is required")
	case host.World == nil:
		return nil, errors.New("instrument: world is required")
	case host.Scheduler == nil:
		return nil, errors.New("instrument: scheduler is required")
	case host.Experiments == nil || host.Subjects == nil:
		return nil, errors.New("instrument: experiment and subject registries are required")
	}

	classifier, err := cfg.Classifier()
	if err != nil {
		return nil, fmt.Errorf("instrument: %w", err)
	}

	s := &Sampler{
		cfg:         cfg,
		classifier:  classifier,
		throttle:    &core.Throttle{Interval: cfg.ScanInterval, MaxWarp: cfg.MaxWarp},
		part:        host.Part,
		vehicle:     host.Vehicle,
		world:       host.World,
		sched:       host.Scheduler,
		experiments: host.Experiments,
		subjects:    host.Subjects,
		metrics:     noopMetrics{},
		log:         logging.Noop(),
		tracer:      otel.Tracer(tracerName),
		state:       model.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(
		logging.String("instrument", cfg.Name),
		logging.Int("flight_id", int(host.Part.FlightID())),
	)
	return s, nil
}

// Name returns the configured instrument name.
func (s *Sampler) Name() string { return s.cfg.Name }

// State returns the current instrument state. A pending deploy reports
// StateIdle; see Status for the pending request.
func (s *Sampler) State() model.InstrumentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a consistent snapshot of the instrument.
func (s *Sampler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:      s.state,
		Records:    len(s.records),
		Actions:    s.actionsLocked(),
		InRange:    s.inRange,
		Rerunnable: s.cfg.Rerunnable,
	}
	if s.pending != nil {
		req := *s.pending
		st.Pending = &req
	}
	return st
}

// IsRerunnable reports whether the instrument can be used again once its
// record is consumed.
func (s *Sampler) IsRerunnable() bool { return s.cfg.Rerunnable }

// GetRecords returns a copy of the held records.
func (s *Sampler) GetRecords() []model.SampleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SampleRecord(nil), s.records...)
}

// RecordCount returns the number of held records.
func (s *Sampler) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Tick runs the throttled proximity scan. now is simulation time and warp
// the current time-acceleration factor.
func (s *Sampler) Tick(now time.Time, warp float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.throttle.Due(now, warp) {
		return
	}

	inRange := s.vehicle.Situation().Stationary()
	if !inRange {
		var target []core.Attachment
		if s.target != nil {
			if bodies, ok := s.target.TargetForeignBodies(); ok {
				target = bodies
			}
		}
		inRange = core.InRange(s.vehicle.ForeignBodies(), target, s.part.Position(), s.cfg.CaptureRadius)
	}
	if inRange != s.inRange {
		s.log.Debug(context.Background(), "deploy availability changed", logging.Bool("available", inRange))
	}
	s.inRange = inRange
}

// Actions reports which operations are currently offered.
func (s *Sampler) Actions() Actions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actionsLocked()
}

func (s *Sampler) actionsLocked() Actions {
	held := len(s.records) > 0
	return Actions{
		Deploy:  s.inRange && !s.closed && s.pending == nil && s.state == model.StateIdle,
		Reset:   held,
		Review:  held,
		Collect: held,
		Cleanup: s.state == model.StateInoperable,
	}
}

// Pause hides any open result page.
func (s *Sampler) Pause() {
	s.mu.Lock()
	s.paused = true
	p := s.presenter
	s.mu.Unlock()
	if p != nil {
		p.Hide()
	}
}

// Unpause shows the result page hidden by Pause.
func (s *Sampler) Unpause() {
	s.mu.Lock()
	wasPaused := s.paused
	s.paused = false
	p := s.presenter
	s.mu.Unlock()
	if p != nil && wasPaused {
		p.Show()
	}
}

// Close tears the instrument down. A pending deploy is cancelled and any
// completion that still fires is ignored.
func (s *Sampler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timerID != "" {
		s.sched.Cancel(s.timerID)
		s.timerID = ""
	}
	if s.pending != nil {
		s.log.Info(context.Background(), "pending deploy abandoned on close",
			logging.String("request_id", s.pending.ID))
		s.pending = nil
	}
}

func (s *Sampler) startSpan(ctx context.Context, name string, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs := append([]attribute.KeyValue{
		attribute.String("instrument.name", s.cfg.Name),
		attribute.Int64("instrument.flight_id", int64(s.part.FlightID())),
	}, extra...)
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Sampler) post(text string) {
	if s.messenger != nil {
		s.messenger.Post(text, s.cfg.MessageDuration)
	}
}

func (s *Sampler) situationContext() model.SituationContext {
	lat, lon := s.vehicle.Coordinates()
	return model.SituationContext{
		Situation: s.vehicle.ExperimentSituation(),
		Body:      s.vehicle.MainBody(),
		LandedAt:  s.vehicle.LandedAt(),
		Latitude:  lat,
		Longitude: lon,
	}
}

func indexOf(records []model.SampleRecord, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// outcome maps an operation error onto a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConfigurationFault):
		return "configuration_fault"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ErrCapacity):
		return "capacity"
	case errors.Is(err, ErrExperimentUnavailable):
		return "experiment_unavailable"
	case errors.Is(err, ErrNoSubject):
		return "no_subject"
	case errors.Is(err, ErrNoTransmitter):
		return "no_transmitter"
	case errors.Is(err, ErrNoLab):
		return "no_lab"
	case errors.Is(err, ErrNothingToReset):
		return "nothing_to_reset"
	case errors.Is(err, ErrRecordNotHeld):
		return "not_held"
	case errors.Is(err, ErrTransferDeclined):
		return "declined"
	case errors.Is(err, ErrTransferRejected):
		return "rejected"
	case errors.Is(err, ErrUsageRequirements):
		return "usage_requirements"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "error"
	}
}
