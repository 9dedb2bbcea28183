package model

// VehicleSituation is the coarse flight state reported by the host.
type VehicleSituation int

const (
	VehicleLanded VehicleSituation = iota
	VehicleSplashed
	VehiclePrelaunch
	VehicleFlying
	VehicleSubOrbital
	VehicleOrbiting
	VehicleEscaping
)

// Stationary reports whether the vehicle is resting on a surface. Deploy
// is always exposed in these situations.
func (s VehicleSituation) Stationary() bool {
	return s == VehicleLanded || s == VehicleSplashed || s == VehiclePrelaunch
}

func (s VehicleSituation) String() string {
	switch s {
	case VehicleLanded:
		return "LANDED"
	case VehicleSplashed:
		return "SPLASHED"
	case VehiclePrelaunch:
		return "PRELAUNCH"
	case VehicleFlying:
		return "FLYING"
	case VehicleSubOrbital:
		return "SUB_ORBITAL"
	case VehicleOrbiting:
		return "ORBITING"
	case VehicleEscaping:
		return "ESCAPING"
	default:
		return "UNKNOWN"
	}
}

// Situation is the experiment situation. Values are bit flags so
// experiment definitions can carry situation masks.
type Situation uint8

const (
	SrfLanded   Situation = 1 << iota // 1
	SrfSplashed                       // 2
	FlyingLow                         // 4
	FlyingHigh                        // 8
	InSpaceLow                        // 16
	InSpaceHigh                       // 32
)

func (s Situation) String() string {
	switch s {
	case SrfLanded:
		return "SrfLanded"
	case SrfSplashed:
		return "SrfSplashed"
	case FlyingLow:
		return "FlyingLow"
	case FlyingHigh:
		return "FlyingHigh"
	case InSpaceLow:
		return "InSpaceLow"
	case InSpaceHigh:
		return "InSpaceHigh"
	default:
		return "Unknown"
	}
}

// BodyThresholds are the altitude boundaries (metres) a locale uses to
// split flying and in-space situations.
type BodyThresholds struct {
	FlyingHigh float64
	SpaceHigh  float64
}

// ExperimentSituationFor maps a vehicle situation and altitude onto an
// experiment situation.
func ExperimentSituationFor(vs VehicleSituation, altitude float64, th BodyThresholds) Situation {
	switch vs {
	case VehicleLanded, VehiclePrelaunch:
		return SrfLanded
	case VehicleSplashed:
		return SrfSplashed
	case VehicleFlying:
		if altitude < th.FlyingHigh {
			return FlyingLow
		}
		return FlyingHigh
	default:
		if altitude < th.SpaceHigh {
			return InSpaceLow
		}
		return InSpaceHigh
	}
}

// SituationContext is everything record generation needs to know about
// where the vehicle is.
type SituationContext struct {
	Situation Situation
	// Body is the main locale name, e.g. "Mun".
	Body string
	// LandedAt names a fixed location ("KSC_LaunchPad"); it overrides the
	// coordinate-derived biome when set.
	LandedAt  string
	Latitude  float64
	Longitude float64
}
