package model

import "strconv"

// ClassificationKind discriminates Classification.
type ClassificationKind int

const (
	Miss ClassificationKind = iota
	Terrain
	Asteroid
)

func (k ClassificationKind) String() string {
	switch k {
	case Terrain:
		return "terrain"
	case Asteroid:
		return "asteroid"
	default:
		return "miss"
	}
}

// ForeignBody identifies a movable attached object such as a captured
// asteroid.
type ForeignBody struct {
	// PartName is the host part name, e.g. "PotatoRoid".
	PartName string
	// Title is the human-readable part title.
	Title    string
	FlightID uint32
}

// Key returns the subject key used for foreign-body experiments: the part
// name immediately followed by the flight id.
func (f ForeignBody) Key() string {
	return f.PartName + strconv.FormatUint(uint64(f.FlightID), 10)
}

// Classification is the result of interpreting a probe hit. Body is only
// set for Kind == Asteroid.
type Classification struct {
	Kind ClassificationKind
	Body *ForeignBody
}

// Usable reports whether the classification permits an acquisition.
func (c Classification) Usable() bool {
	return c.Kind == Terrain || c.Kind == Asteroid
}

func (c Classification) String() string {
	if c.Kind == Asteroid && c.Body != nil {
		return "asteroid(" + c.Body.Key() + ")"
	}
	return c.Kind.String()
}

// MissResult, TerrainResult and AsteroidResult build classifications.
func MissResult() Classification    { return Classification{Kind: Miss} }
func TerrainResult() Classification { return Classification{Kind: Terrain} }

func AsteroidResult(body ForeignBody) Classification {
	b := body
	return Classification{Kind: Asteroid, Body: &b}
}
