package model

// ExperimentDefinition describes an experiment a record can be generated
// for.
type ExperimentDefinition struct {
	ID    string
	Title string

	BaseValue  float64
	DataScale  float64
	ScienceCap float64

	// SituationMask lists the situations the experiment can run in.
	SituationMask Situation
	// BiomeMask lists the situations in which the biome matters.
	BiomeMask Situation

	// RequireAtmosphere restricts the experiment to bodies listed in
	// AtmosphericBodies.
	RequireAtmosphere bool
	AtmosphericBodies []string
}

// IsAvailableWhile reports whether the experiment can run in sit on body.
func (e *ExperimentDefinition) IsAvailableWhile(sit Situation, body string) bool {
	if e == nil || e.SituationMask&sit == 0 {
		return false
	}
	if !e.RequireAtmosphere {
		return true
	}
	for _, b := range e.AtmosphericBodies {
		if b == body {
			return true
		}
	}
	return false
}

// BiomeIsRelevantWhile reports whether the biome is part of the subject
// in sit.
func (e *ExperimentDefinition) BiomeIsRelevantWhile(sit Situation) bool {
	return e != nil && e.BiomeMask&sit != 0
}

// RecordValue is the data amount of a record produced by this experiment.
func (e *ExperimentDefinition) RecordValue() float64 {
	return e.BaseValue * e.DataScale
}
