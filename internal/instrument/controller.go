package instrument

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/surface-sampler/core"
	"github.com/signalsfoundry/surface-sampler/internal/logging"
	"github.com/signalsfoundry/surface-sampler/internal/scheduler"
	"github.com/signalsfoundry/surface-sampler/model"
)

// Deploy starts an acquisition. The probe and classifier run immediately;
// the record is generated when the deploy timer fires, from the
// classification captured now.
func (s *Sampler) Deploy(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Sampler.Deploy")
	defer span.End()

	req, err := s.deploy(ctx)
	s.metrics.ObserveDeploy(outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return err
	}
	span.SetAttributes(
		attribute.String("deploy.request_id", req.ID),
		attribute.String("deploy.classification", req.Classification.String()),
		attribute.Float64("deploy.duration_s", req.Duration.Seconds()),
	)
	return nil
}

// DeployExternal deploys on behalf of a crew member outside the vessel.
func (s *Sampler) DeployExternal(ctx context.Context, op ExternalOperator) error {
	if op == nil || !op.MeetsUsageRequirements(s.part) {
		s.post(fmt.Sprintf(msgUsageRequirements, s.cfg.Name))
		s.metrics.ObserveDeploy(outcome(ErrUsageRequirements))
		return ErrUsageRequirements
	}
	return s.Deploy(ctx)
}

func (s *Sampler) deploy(ctx context.Context) (model.DeployRequest, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.DeployRequest{}, ErrClosed
	}
	if s.pending != nil || s.state != model.StateIdle || len(s.records) > 0 {
		state, pending := s.state, s.pending != nil
		s.mu.Unlock()
		s.post(msgCapacity)
		s.log.Debug(ctx, "deploy rejected",
			logging.String("state", state.String()),
			logging.Bool("pending", pending),
		)
		return model.DeployRequest{}, ErrCapacity
	}

	classification, err := s.probeLocked()
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, ErrConfigurationFault) {
			s.log.Error(ctx, "sampler probe misconfigured", logging.Err(err),
				logging.String("transform", s.cfg.Probe.Transform),
				logging.Float("distance", s.cfg.Probe.Distance),
			)
		}
		return model.DeployRequest{}, err
	}
	if !classification.Usable() {
		s.mu.Unlock()
		s.post(fmt.Sprintf(msgOutOfRange, s.cfg.Name))
		return model.DeployRequest{}, ErrOutOfRange
	}

	req := model.DeployRequest{
		ID:             uuid.NewString(),
		StartedAt:      s.sched.Now(),
		Duration:       s.deployDuration(),
		Classification: classification,
	}
	s.pending = &req
	id := req.ID
	s.timerID = scheduler.AfterFunc(s.sched, req.Duration, func() { s.complete(id) })
	s.mu.Unlock()

	s.playCues()
	s.log.Info(ctx, "sampler deployed",
		logging.String("request_id", req.ID),
		logging.String("classification", classification.String()),
		logging.Duration("timer", req.Duration),
	)
	return req, nil
}

// probeLocked casts the probe from the configured transform. The range is
// the configured distance scaled by the part's rescale factor.
func (s *Sampler) probeLocked() (model.Classification, error) {
	origin, forward, ok := s.part.Transform(s.cfg.Probe.Transform)
	if !ok {
		return model.Classification{}, fmt.Errorf("%w: transform %q not found", ErrConfigurationFault, s.cfg.Probe.Transform)
	}
	maxDistance := s.cfg.Probe.Distance * s.part.RescaleFactor()
	report, err := core.Probe(s.world, origin, forward, maxDistance)
	if err != nil {
		return model.Classification{}, fmt.Errorf("%w: %v", ErrConfigurationFault, err)
	}
	return s.classifier.Classify(report, s.vehicle.MainBody()), nil
}

func (s *Sampler) deployDuration() time.Duration {
	cue := s.cfg.AnimationCue
	if s.animator != nil && cue != "" && s.animator.HasCue(cue) {
		if d := s.animator.LengthOf(cue); d > 0 {
			return d
		}
	}
	return s.cfg.DefaultDeployTime
}

func (s *Sampler) playCues() {
	if cue := s.cfg.AnimationCue; s.animator != nil && cue != "" && s.animator.HasCue(cue) {
		s.animator.Play(cue)
	}
	if s.audio != nil && !s.audio.IsPlaying() {
		s.audio.Play()
	}
}

// complete is the deploy timer callback. It is a no-op unless id is still
// the pending request, which covers Close and any stale timer. The record
// is generated without holding the lock because subject registries may
// notify subscribers that call back into the Sampler; the request stays
// pending until the result is applied.
func (s *Sampler) complete(id string) {
	ctx := logging.ContextWithOperationID(context.Background(), id)
	ctx, span := s.startSpan(ctx, "Sampler.CompleteDeploy", attribute.String("deploy.request_id", id))
	defer span.End()

	s.mu.Lock()
	if !s.pendingLocked(id) {
		s.mu.Unlock()
		s.log.Debug(ctx, "ignoring stale deploy completion", logging.String("request_id", id))
		return
	}
	req := *s.pending
	sc := s.situationContext()
	s.mu.Unlock()

	rec, err := s.Generate(req.Classification, sc)

	s.mu.Lock()
	if !s.pendingLocked(id) {
		s.mu.Unlock()
		s.log.Debug(ctx, "deploy cancelled during generation", logging.String("request_id", id))
		return
	}
	s.pending = nil
	s.timerID = ""
	s.metrics.ObserveTimer(req.Duration)
	if err != nil {
		s.mu.Unlock()
		span.RecordError(err)
		s.metrics.ObserveOperation("generate", outcome(err))
		s.log.Warn(ctx, "sample generation failed", logging.Err(err),
			logging.String("classification", req.Classification.String()),
		)
		return
	}
	s.records = append(s.records, rec)
	s.state = model.StateDeployed
	s.metrics.SetRecordsHeld(len(s.records))
	s.metrics.ObserveOperation("generate", outcome(nil))
	page := s.pageLocked(rec)
	observer, presenter := s.observer, s.presenter
	s.mu.Unlock()

	s.log.Info(ctx, "sample acquired",
		logging.String("record_id", rec.ID),
		logging.String("subject", rec.SubjectID),
		logging.Float("data", rec.DataAmount),
	)
	if observer != nil {
		observer.ExperimentDeployed(rec)
	}
	if presenter != nil {
		presenter.PresentResult(page)
	}
}

func (s *Sampler) pendingLocked(id string) bool {
	return !s.closed && s.pending != nil && s.pending.ID == id
}

// Reset clears every held record and the inoperable flag.
func (s *Sampler) Reset(ctx context.Context) error {
	_, span := s.startSpan(ctx, "Sampler.Reset")
	defer span.End()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if len(s.records) == 0 && s.state != model.StateInoperable {
		s.mu.Unlock()
		s.metrics.ObserveOperation("reset", outcome(ErrNothingToReset))
		return ErrNothingToReset
	}
	cleared := len(s.records)
	s.records = nil
	s.state = model.StateIdle
	s.throttle.Reset()
	s.metrics.SetRecordsHeld(0)
	s.mu.Unlock()

	s.metrics.ObserveOperation("reset", outcome(nil))
	s.log.Info(ctx, "sampler reset", logging.Int("cleared", cleared))
	return nil
}

// Dump removes rec as a sink would after consuming it.
func (s *Sampler) Dump(rec model.SampleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dumpLocked(rec.ID) {
		return ErrRecordNotHeld
	}
	return nil
}

// dumpLocked removes the record with id. Removing the last record leaves
// the instrument Inoperable unless it is rerunnable.
func (s *Sampler) dumpLocked(id string) bool {
	i := indexOf(s.records, id)
	if i < 0 {
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	if len(s.records) == 0 {
		if s.cfg.Rerunnable {
			s.state = model.StateIdle
		} else {
			s.state = model.StateInoperable
		}
	}
	s.metrics.SetRecordsHeld(len(s.records))
	return true
}
