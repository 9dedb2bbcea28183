package instrument

import (
	"fmt"

	"github.com/signalsfoundry/surface-sampler/internal/persist"
	"github.com/signalsfoundry/surface-sampler/model"
)

const stateKey = "state"

// Save writes the instrument state and held records into node. A pending
// deploy is not persisted; the instrument is saved as it was before the
// deploy started.
func (s *Sampler) Save(node *persist.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node.SetValue(stateKey, s.state.String())
	node.RemoveNodes(persist.RecordNodeName)
	for _, rec := range s.records {
		persist.SaveRecord(rec, node.AddNode(persist.RecordNodeName))
	}
}

// Load restores state and records saved by Save. Records loaded into an
// idle instrument leave it Deployed, and a Deployed state without records
// loads as Idle. Loading is refused while a deploy is pending, and a
// malformed record leaves the instrument untouched.
func (s *Sampler) Load(node *persist.Node) error {
	state := model.StateIdle
	if raw, ok := node.GetValue(stateKey); ok {
		parsed, known := model.ParseInstrumentState(raw)
		if !known {
			return fmt.Errorf("load instrument: unknown state %q", raw)
		}
		state = parsed
	}

	var records []model.SampleRecord
	for _, child := range node.GetNodes(persist.RecordNodeName) {
		rec, err := persist.LoadRecord(child)
		if err != nil {
			return fmt.Errorf("load instrument: %w", err)
		}
		records = append(records, rec)
	}
	switch {
	case len(records) > 0 && state == model.StateIdle:
		state = model.StateDeployed
	case len(records) == 0 && state == model.StateDeployed:
		state = model.StateIdle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return fmt.Errorf("load instrument while deploy pending: %w", ErrCapacity)
	}
	s.state = state
	s.records = records
	s.throttle.Reset()
	s.metrics.SetRecordsHeld(len(records))
	return nil
}
