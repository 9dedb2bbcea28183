package model

import "time"

// DeployRequest is an accepted deploy awaiting its timer.
type DeployRequest struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration

	// Classification is captured when the request is accepted and reused
	// on completion.
	Classification Classification
}

// Deadline is the simulation time at which the request completes.
func (r DeployRequest) Deadline() time.Time {
	return r.StartedAt.Add(r.Duration)
}
