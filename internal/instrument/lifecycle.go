package instrument

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/surface-sampler/internal/logging"
	"github.com/signalsfoundry/surface-sampler/model"
)

// Generate builds the record an acquisition with classification c would
// produce in sc. It does not change instrument state.
func (s *Sampler) Generate(c model.Classification, sc model.SituationContext) (model.SampleRecord, error) {
	if !c.Usable() {
		return model.SampleRecord{}, ErrOutOfRange
	}

	expID := s.cfg.Experiments.Surface
	var bodyKey, bodyTitle string
	if c.Kind == model.Asteroid {
		expID = s.cfg.Experiments.Asteroid
		if c.Body != nil {
			bodyKey, bodyTitle = c.Body.Key(), c.Body.Title
		}
	}

	exp, ok := s.experiments.Experiment(expID)
	if !ok {
		return model.SampleRecord{}, fmt.Errorf("%w: experiment %q not registered", ErrExperimentUnavailable, expID)
	}
	if !exp.IsAvailableWhile(sc.Situation, sc.Body) {
		return model.SampleRecord{}, fmt.Errorf("%w: %s while %s at %s", ErrExperimentUnavailable, exp.ID, sc.Situation, sc.Body)
	}

	var biome string
	if exp.BiomeIsRelevantWhile(sc.Situation) {
		switch {
		case sc.LandedAt != "":
			biome = sc.LandedAt
		case s.biomes != nil:
			biome = s.biomes.BiomeAt(sc.Body, sc.Latitude, sc.Longitude)
		}
	}

	subject, ok := s.subjects.ResolveSubject(exp, sc.Situation, bodyKey, bodyTitle, sc.Body, biome)
	if !ok || subject == nil {
		return model.SampleRecord{}, fmt.Errorf("%w: %s at %s", ErrNoSubject, exp.ID, sc.Body)
	}

	return model.SampleRecord{
		ID:            uuid.NewString(),
		SubjectID:     subject.ID,
		Title:         subject.Title,
		DataAmount:    exp.RecordValue(),
		TransmitValue: s.cfg.TransmitScalar,
		InstrumentID:  s.part.FlightID(),
	}, nil
}

func (s *Sampler) pageLocked(rec model.SampleRecord) ResultPage {
	ctx := context.Background()
	return ResultPage{
		Record:     rec,
		Rerunnable: s.cfg.Rerunnable,
		OnDiscard:  func(r model.SampleRecord) { s.callback(ctx, "discard", s.Discard(ctx, r)) },
		OnKeep:     func(r model.SampleRecord) { s.callback(ctx, "keep", s.Keep(r)) },
		OnTransmit: func(r model.SampleRecord) { s.callback(ctx, "transmit", s.Transmit(ctx, r)) },
		OnAnalyze:  func(r model.SampleRecord) { s.callback(ctx, "analyze", s.Analyze(ctx, r)) },
	}
}

func (s *Sampler) callback(ctx context.Context, op string, err error) {
	if err != nil {
		s.log.Debug(ctx, "result page action failed", logging.String("op", op), logging.Err(err))
	}
}

// Inspect presents the first held record for review.
func (s *Sampler) Inspect(ctx context.Context) error {
	s.mu.Lock()
	if len(s.records) == 0 {
		s.mu.Unlock()
		return ErrRecordNotHeld
	}
	page := s.pageLocked(s.records[0])
	presenter := s.presenter
	s.mu.Unlock()

	if presenter != nil {
		presenter.PresentResult(page)
	}
	s.log.Debug(ctx, "record presented", logging.String("record_id", page.Record.ID))
	return nil
}

// Discard drops rec. Discarding never makes the instrument inoperable.
func (s *Sampler) Discard(ctx context.Context, rec model.SampleRecord) error {
	s.mu.Lock()
	i := indexOf(s.records, rec.ID)
	if i < 0 {
		s.mu.Unlock()
		s.metrics.ObserveOperation("discard", outcome(ErrRecordNotHeld))
		return ErrRecordNotHeld
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	if len(s.records) == 0 {
		s.state = model.StateIdle
	}
	s.metrics.SetRecordsHeld(len(s.records))
	s.mu.Unlock()

	s.metrics.ObserveOperation("discard", outcome(nil))
	s.log.Info(ctx, "record discarded", logging.String("record_id", rec.ID))
	return nil
}

// Keep dismisses the result page and leaves rec in place.
func (s *Sampler) Keep(rec model.SampleRecord) error {
	s.mu.Lock()
	held := indexOf(s.records, rec.ID) >= 0
	s.mu.Unlock()
	if !held {
		return ErrRecordNotHeld
	}
	s.metrics.ObserveOperation("keep", outcome(nil))
	return nil
}

// Transmit hands rec to the vessel's preferred transmitter and dumps it.
func (s *Sampler) Transmit(ctx context.Context, rec model.SampleRecord) error {
	ctx, span := s.startSpan(ctx, "Sampler.Transmit", attribute.String("record.id", rec.ID))
	defer span.End()

	s.mu.Lock()
	if indexOf(s.records, rec.ID) < 0 {
		s.mu.Unlock()
		s.metrics.ObserveOperation("transmit", outcome(ErrRecordNotHeld))
		return ErrRecordNotHeld
	}
	var best Transmitter
	for _, t := range s.vehicle.Transmitters() {
		if t == nil {
			continue
		}
		if best == nil || t.Score() < best.Score() {
			best = t
		}
	}
	if best == nil {
		s.mu.Unlock()
		s.post(msgNoTransmitter)
		s.metrics.ObserveOperation("transmit", outcome(ErrNoTransmitter))
		span.RecordError(ErrNoTransmitter)
		return ErrNoTransmitter
	}
	s.dumpLocked(rec.ID)
	state := s.state
	s.mu.Unlock()

	best.Transmit([]model.SampleRecord{rec})
	s.metrics.ObserveOperation("transmit", outcome(nil))
	s.log.Info(ctx, "record transmitted",
		logging.String("record_id", rec.ID),
		logging.String("state", state.String()),
	)
	return nil
}

// Analyze hands rec to the preferred operational lab and dumps it. When
// the lab finishes, the remaining records are presented again.
func (s *Sampler) Analyze(ctx context.Context, rec model.SampleRecord) error {
	ctx, span := s.startSpan(ctx, "Sampler.Analyze", attribute.String("record.id", rec.ID))
	defer span.End()

	s.mu.Lock()
	if indexOf(s.records, rec.ID) < 0 {
		s.mu.Unlock()
		s.metrics.ObserveOperation("analyze", outcome(ErrRecordNotHeld))
		return ErrRecordNotHeld
	}
	var best Lab
	for _, l := range s.vehicle.Labs() {
		if l == nil || !l.Operational() {
			continue
		}
		if best == nil || l.Score() < best.Score() {
			best = l
		}
	}
	if best == nil {
		s.mu.Unlock()
		s.post(msgNoLab)
		s.metrics.ObserveOperation("analyze", outcome(ErrNoLab))
		span.RecordError(ErrNoLab)
		return ErrNoLab
	}
	s.dumpLocked(rec.ID)
	s.mu.Unlock()

	best.Process(rec, func() {
		// Nothing left to present is the common case.
		_ = s.Inspect(context.Background())
	})
	s.metrics.ObserveOperation("analyze", outcome(nil))
	s.log.Info(ctx, "record handed to lab", logging.String("record_id", rec.ID))
	return nil
}

// TransferOut moves every held record into dest. A non-rerunnable
// instrument asks for confirmation first, since it cannot be used again
// afterwards.
func (s *Sampler) TransferOut(ctx context.Context, rec model.SampleRecord, dest Container) error {
	ctx, span := s.startSpan(ctx, "Sampler.TransferOut", attribute.String("record.id", rec.ID))
	defer span.End()

	err := s.transferOut(ctx, rec, dest)
	s.metrics.ObserveOperation("transfer_out", outcome(err))
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *Sampler) transferOut(ctx context.Context, rec model.SampleRecord, dest Container) error {
	if dest == nil {
		return fmt.Errorf("%w: no destination", ErrTransferRejected)
	}
	s.mu.Lock()
	held := indexOf(s.records, rec.ID) >= 0
	confirmer := s.confirmer
	s.mu.Unlock()
	if !held {
		return ErrRecordNotHeld
	}

	if !s.cfg.Rerunnable {
		if confirmer == nil {
			return ErrTransferDeclined
		}
		ok, err := confirmer.Confirm(ctx, fmt.Sprintf(msgTransferPrompt, s.cfg.Name))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransferDeclined, err)
		}
		if !ok {
			return ErrTransferDeclined
		}
	}

	s.mu.Lock()
	if indexOf(s.records, rec.ID) < 0 {
		s.mu.Unlock()
		return ErrRecordNotHeld
	}
	batch := append([]model.SampleRecord(nil), s.records...)
	s.mu.Unlock()

	if !dest.StoreRecords(batch) {
		return ErrTransferRejected
	}

	s.mu.Lock()
	for _, r := range batch {
		s.dumpLocked(r.ID)
	}
	state := s.state
	s.mu.Unlock()

	s.log.Info(ctx, "records transferred",
		logging.Int("count", len(batch)),
		logging.String("state", state.String()),
	)
	return nil
}

// TransferIn accepts a record from another container. Accepting always
// clears the inoperable flag. Only an empty, non-pending instrument
// accepts.
func (s *Sampler) TransferIn(rec model.SampleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.pending != nil || len(s.records) > 0 {
		s.metrics.ObserveOperation("transfer_in", outcome(ErrCapacity))
		return ErrCapacity
	}
	s.records = append(s.records, rec)
	s.state = model.StateDeployed
	s.metrics.SetRecordsHeld(len(s.records))
	s.metrics.ObserveOperation("transfer_in", outcome(nil))
	return nil
}

// AcceptTransfer reports whether rec was taken in.
func (s *Sampler) AcceptTransfer(rec model.SampleRecord) bool {
	return s.TransferIn(rec) == nil
}

// StoreRecords lets a Sampler act as the destination of another
// instrument's TransferOut. It holds one record at most.
func (s *Sampler) StoreRecords(records []model.SampleRecord) bool {
	if len(records) != 1 {
		return false
	}
	return s.AcceptTransfer(records[0])
}
