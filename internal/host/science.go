package host

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/surface-sampler/internal/instrument"
	"github.com/signalsfoundry/surface-sampler/internal/logging"
	"github.com/signalsfoundry/surface-sampler/internal/scheduler"
	"github.com/signalsfoundry/surface-sampler/model"
)

// ScienceSink credits recovered science to a subject.
type ScienceSink interface {
	SubmitScience(subjectID string, amount float64) (float64, error)
}

// Antenna transmits records and credits their transmit value.
type Antenna struct {
	name string
	cost float64
	sink ScienceSink
	log  logging.Logger

	mu   sync.Mutex
	sent int
}

var _ instrument.Transmitter = (*Antenna)(nil)

// NewAntenna creates an antenna. Lower cost antennas are preferred.
func NewAntenna(name string, cost float64, sink ScienceSink, log logging.Logger) *Antenna {
	if log == nil {
		log = logging.Noop()
	}
	return &Antenna{name: name, cost: cost, sink: sink, log: log}
}

func (a *Antenna) Score() float64 { return a.cost }

func (a *Antenna) Transmit(records []model.SampleRecord) {
	ctx := context.Background()
	for _, rec := range records {
		credited, err := a.sink.SubmitScience(rec.SubjectID, rec.DataAmount*rec.TransmitValue)
		if err != nil {
			a.log.Warn(ctx, "transmission lost",
				logging.String("antenna", a.name),
				logging.String("subject_id", rec.SubjectID),
				logging.Err(err),
			)
			continue
		}
		a.log.Info(ctx, "record transmitted",
			logging.String("antenna", a.name),
			logging.String("subject_id", rec.SubjectID),
			logging.Float("science", credited),
		)
	}
	a.mu.Lock()
	a.sent += len(records)
	a.mu.Unlock()
}

// Sent returns how many records were handed to the antenna.
func (a *Antenna) Sent() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sent
}

// Lab analyses one record at a time on the simulation clock and credits a
// share of its data when done.
type Lab struct {
	name     string
	cost     float64
	duration time.Duration
	share    float64
	sched    scheduler.EventScheduler
	sink     ScienceSink
	log      logging.Logger

	mu          sync.Mutex
	operational bool
	processed   int
}

var _ instrument.Lab = (*Lab)(nil)

// LabConfig describes a lab.
type LabConfig struct {
	Name     string
	Cost     float64
	Duration time.Duration
	// Share is the fraction of the record's data credited on completion.
	Share float64
}

// NewLab creates an operational lab.
func NewLab(cfg LabConfig, sched scheduler.EventScheduler, sink ScienceSink, log logging.Logger) *Lab {
	if log == nil {
		log = logging.Noop()
	}
	return &Lab{
		name:        cfg.Name,
		cost:        cfg.Cost,
		duration:    cfg.Duration,
		share:       cfg.Share,
		sched:       sched,
		sink:        sink,
		log:         log,
		operational: true,
	}
}

// SetOperational toggles whether the lab accepts work, e.g. when it is
// unmanned.
func (l *Lab) SetOperational(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.operational = on
}

func (l *Lab) Operational() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.operational
}

func (l *Lab) Score() float64 { return l.cost }

func (l *Lab) Process(rec model.SampleRecord, done func()) {
	scheduler.AfterFunc(l.sched, l.duration, func() {
		ctx := context.Background()
		credited, err := l.sink.SubmitScience(rec.SubjectID, rec.DataAmount*l.share)
		if err != nil {
			l.log.Warn(ctx, "analysis failed",
				logging.String("lab", l.name),
				logging.String("subject_id", rec.SubjectID),
				logging.Err(err),
			)
		} else {
			l.log.Info(ctx, "record analysed",
				logging.String("lab", l.name),
				logging.String("subject_id", rec.SubjectID),
				logging.Float("science", credited),
			)
		}
		l.mu.Lock()
		l.processed++
		l.mu.Unlock()
		if done != nil {
			done()
		}
	})
}

// Processed returns how many analyses have completed.
func (l *Lab) Processed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processed
}
