package instrument

import "errors"

var (
	// ErrConfigurationFault indicates the probe origin or range is unusable.
	// It is a static setup defect, not a transient condition.
	ErrConfigurationFault = errors.New("probe configuration fault")
	// ErrOutOfRange indicates the probe struck nothing usable.
	ErrOutOfRange = errors.New("target out of range")
	// ErrCapacity indicates the instrument is already pending, deployed or
	// inoperable.
	ErrCapacity = errors.New("instrument at capacity")
	// ErrExperimentUnavailable indicates the experiment rejects the current
	// situation.
	ErrExperimentUnavailable = errors.New("experiment unavailable")
	// ErrNoSubject indicates subject resolution yielded nothing.
	ErrNoSubject = errors.New("no science subject")
	// ErrNoTransmitter indicates the vehicle carries no transmitter.
	ErrNoTransmitter = errors.New("no transmitter available")
	// ErrNoLab indicates no operational lab is reachable.
	ErrNoLab = errors.New("no operational lab")
	// ErrNothingToReset indicates reset was requested with nothing to clear.
	ErrNothingToReset = errors.New("nothing to reset")
	// ErrRecordNotHeld indicates the record is not held by this instrument.
	ErrRecordNotHeld = errors.New("record not held")
	// ErrTransferDeclined indicates the operator declined a transfer.
	ErrTransferDeclined = errors.New("transfer declined")
	// ErrTransferRejected indicates the destination container refused the
	// records.
	ErrTransferRejected = errors.New("transfer rejected by destination")
	// ErrUsageRequirements indicates an external operator may not deploy
	// the instrument.
	ErrUsageRequirements = errors.New("usage requirements not met")
	// ErrClosed indicates the instrument has been torn down.
	ErrClosed = errors.New("instrument closed")
)

// User-visible messages posted through the Messenger.
const (
	msgOutOfRange        = "%s is not close enough for sample collection"
	msgCapacity          = "Cannot collect any more samples"
	msgNoTransmitter     = "No Comms Devices on this vessel. Cannot Transmit Data."
	msgNoLab             = "No operational lab modules on this vessel. Cannot analyze data."
	msgUsageRequirements = "%s does not meet the requirements for EVA experiment deployment"
	msgTransferPrompt    = "%s cannot be rerun once its sample is removed. Transfer anyway?"
)
