package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signalsfoundry/surface-sampler/model"
)

// ErrInvalidProbe is returned when a probe is configured with an unusable
// origin, direction or range. The world is never queried in that case.
var ErrInvalidProbe = errors.New("invalid probe configuration")

// Layer names the collision layer a hit occurred on.
type Layer int

const (
	LayerDefault Layer = iota
	LayerParts
	LayerWater
	LayerLocalScenery
	LayerTerrain
	LayerKerbals
)

var layerNames = map[Layer]string{
	LayerDefault:      "default",
	LayerParts:        "parts",
	LayerWater:        "water",
	LayerLocalScenery: "local_scenery",
	LayerTerrain:      "terrain",
	LayerKerbals:      "kerbals",
}

func (l Layer) String() string {
	if n, ok := layerNames[l]; ok {
		return n
	}
	return fmt.Sprintf("layer(%d)", int(l))
}

// ParseLayer resolves a configured layer name.
func ParseLayer(name string) (Layer, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for l, n := range layerNames {
		if n == want {
			return l, nil
		}
	}
	return LayerDefault, fmt.Errorf("unknown layer %q", name)
}

// Node is one link of a scene transform chain.
type Node struct {
	Name   string
	Parent *Node
}

// AttachedBody is the rigid body a collider belongs to. ForeignBody is
// non-nil only when the body exposes the foreign-body capability.
type AttachedBody struct {
	Name        string
	ForeignBody *model.ForeignBody
}

// HitReport is the nearest intersection returned by the host world.
type HitReport struct {
	Layer    Layer
	Body     *AttachedBody
	Collider *Node
	Point    Vec3
	Distance float64
}

// Raycaster is the host world query surface.
type Raycaster interface {
	Raycast(ray Ray, maxDistance float64) (HitReport, bool)
}

// Probe asks the world for the nearest intersection along direction from
// origin within maxDistance. It returns (nil, nil) when nothing is hit.
func Probe(world Raycaster, origin, direction Vec3, maxDistance float64) (*HitReport, error) {
	if world == nil {
		return nil, fmt.Errorf("%w: no world to probe", ErrInvalidProbe)
	}
	if !isFinite(maxDistance) || maxDistance <= 0 {
		return nil, fmt.Errorf("%w: range %v", ErrInvalidProbe, maxDistance)
	}
	if !origin.IsFinite() || !direction.IsFinite() {
		return nil, fmt.Errorf("%w: non-finite origin or direction", ErrInvalidProbe)
	}
	dir := direction.Unit()
	if dir == (Vec3{}) {
		return nil, fmt.Errorf("%w: zero direction", ErrInvalidProbe)
	}

	hit, ok := world.Raycast(Ray{Origin: origin, Direction: dir}, maxDistance)
	if !ok {
		return nil, nil
	}
	return &hit, nil
}
