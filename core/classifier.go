package core

import (
	"strings"

	"github.com/signalsfoundry/surface-sampler/model"
)

const (
	// DefaultForeignBodyPrefix is the rigid body name prefix used by
	// captured asteroids.
	DefaultForeignBodyPrefix = "PotatoRoid"
	// DefaultMaxAncestorDepth bounds the transform-parent walk.
	DefaultMaxAncestorDepth = 200
)

// Classifier interprets probe hits.
type Classifier struct {
	ForeignBodyPrefix string
	TerrainLayers     []Layer
	MaxAncestorDepth  int
}

// NewClassifier returns a classifier with the default prefix and depth.
func NewClassifier(terrainLayers ...Layer) *Classifier {
	return &Classifier{
		ForeignBodyPrefix: DefaultForeignBodyPrefix,
		TerrainLayers:     terrainLayers,
		MaxAncestorDepth:  DefaultMaxAncestorDepth,
	}
}

// Classify decides what a hit struck. A foreign body always takes
// precedence over terrain.
func (c *Classifier) Classify(report *HitReport, locale string) model.Classification {
	if report == nil {
		return model.MissResult()
	}
	if fb, ok := c.foreignBody(report); ok {
		return model.AsteroidResult(fb)
	}
	if c.isTerrainLayer(report.Layer) || c.ancestorNamed(report.Collider, locale) {
		return model.TerrainResult()
	}
	return model.MissResult()
}

func (c *Classifier) foreignBody(report *HitReport) (model.ForeignBody, bool) {
	body := report.Body
	if body == nil || body.Name == "" {
		return model.ForeignBody{}, false
	}
	prefix := c.ForeignBodyPrefix
	if prefix == "" {
		prefix = DefaultForeignBodyPrefix
	}
	if !strings.HasPrefix(body.Name, prefix) || body.ForeignBody == nil {
		return model.ForeignBody{}, false
	}
	return *body.ForeignBody, true
}

func (c *Classifier) isTerrainLayer(l Layer) bool {
	for _, t := range c.TerrainLayers {
		if t == l {
			return true
		}
	}
	return false
}

// ancestorNamed walks at most MaxAncestorDepth links up from n looking for
// a node whose name contains locale. Cyclic chains stop at the bound.
func (c *Classifier) ancestorNamed(n *Node, locale string) bool {
	if locale == "" {
		return false
	}
	depth := c.MaxAncestorDepth
	if depth <= 0 || depth > DefaultMaxAncestorDepth {
		depth = DefaultMaxAncestorDepth
	}
	for i := 0; n != nil && i < depth; i++ {
		if strings.Contains(n.Name, locale) {
			return true
		}
		n = n.Parent
	}
	return false
}
