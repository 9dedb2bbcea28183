package instrument

import (
	"context"
	"time"

	"github.com/signalsfoundry/surface-sampler/core"
	"github.com/signalsfoundry/surface-sampler/model"
)

// Animator plays named animation cues on the instrument part.
type Animator interface {
	HasCue(name string) bool
	Play(name string)
	IsPlaying(name string) bool
	LengthOf(name string) time.Duration
}

// AudioCue is a fire-and-forget sound.
type AudioCue interface {
	Play()
	IsPlaying() bool
}

// ExperimentRegistry looks up experiment definitions by id.
type ExperimentRegistry interface {
	Experiment(id string) (*model.ExperimentDefinition, bool)
}

// SubjectRegistry resolves the subject a record is filed under. bodyKey and
// bodyTitle are empty for surface samples.
type SubjectRegistry interface {
	ResolveSubject(exp *model.ExperimentDefinition, sit model.Situation, bodyKey, bodyTitle, locale, biome string) (*model.Subject, bool)
}

// BiomeMap resolves a biome from coordinates.
type BiomeMap interface {
	BiomeAt(body string, lat, lon float64) string
}

// Part is the physical part the instrument is mounted on.
type Part interface {
	FlightID() uint32
	// Transform returns the world origin and forward direction of the named
	// transform.
	Transform(name string) (origin, forward core.Vec3, ok bool)
	RescaleFactor() float64
	Position() core.Vec3
}

// Transmitter hands records off for transmission. Lower scores are
// preferred.
type Transmitter interface {
	Score() float64
	Transmit(records []model.SampleRecord)
}

// Lab processes a record asynchronously and calls done when finished.
// Lower scores are preferred.
type Lab interface {
	Operational() bool
	Score() float64
	Process(rec model.SampleRecord, done func())
}

// Vehicle is the query surface of the vessel carrying the instrument.
type Vehicle interface {
	Situation() model.VehicleSituation
	ExperimentSituation() model.Situation
	MainBody() string
	// LandedAt names a fixed location, e.g. a launch site. Empty when the
	// vehicle is not at one.
	LandedAt() string
	Coordinates() (lat, lon float64)
	ForeignBodies() []core.Attachment
	Transmitters() []Transmitter
	// Labs lists the labs reachable by the vessel's search policy.
	Labs() []Lab
}

// TargetTracker reports the foreign bodies attached to the current target
// vessel. ok is false when nothing is targeted.
type TargetTracker interface {
	TargetForeignBodies() (bodies []core.Attachment, ok bool)
}

// ResultPage is shown to the user after an acquisition or on Inspect.
type ResultPage struct {
	Record     model.SampleRecord
	Rerunnable bool

	OnDiscard  func(model.SampleRecord)
	OnKeep     func(model.SampleRecord)
	OnTransmit func(model.SampleRecord)
	OnAnalyze  func(model.SampleRecord)
}

// Presenter shows result pages and hides them while the game is paused.
type Presenter interface {
	PresentResult(page ResultPage)
	Hide()
	Show()
}

// Messenger posts transient on-screen messages.
type Messenger interface {
	Post(text string, d time.Duration)
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Container is the destination of a record transfer. It reports whether
// it accepted the records.
type Container interface {
	StoreRecords(records []model.SampleRecord) bool
}

// Observer is notified when an acquisition completes.
type Observer interface {
	ExperimentDeployed(rec model.SampleRecord)
}

// ExternalOperator is a crew member operating the instrument from outside
// the vessel.
type ExternalOperator interface {
	MeetsUsageRequirements(part Part) bool
}

// MetricsRecorder receives instrument metrics.
type MetricsRecorder interface {
	ObserveDeploy(outcome string)
	ObserveOperation(op, outcome string)
	ObserveTimer(d time.Duration)
	SetRecordsHeld(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveDeploy(string)            {}
func (noopMetrics) ObserveOperation(string, string) {}
func (noopMetrics) ObserveTimer(time.Duration)      {}
func (noopMetrics) SetRecordsHeld(int)              {}
