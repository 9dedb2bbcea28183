package model

// SampleRecord is one acquired measurement.
type SampleRecord struct {
	ID        string
	SubjectID string
	Title     string

	// DataAmount is the experiment base value times its data scale.
	DataAmount float64
	// TransmitValue is the fraction of science recovered when transmitted.
	TransmitValue float64
	// LabValue is the analysis boost already applied to the record.
	LabValue float64

	// ViaTransfer marks records collected through a container transfer.
	ViaTransfer bool

	// InstrumentID is the flight id of the instrument that produced the
	// record; hosts use it to compute rerun bonuses.
	InstrumentID uint32
}

// Subject is a scientific subject a record is filed under.
type Subject struct {
	ID    string
	Title string

	// ScienceCap is the total science obtainable from this subject.
	ScienceCap float64
	// Science is what has already been recovered.
	Science float64
}
