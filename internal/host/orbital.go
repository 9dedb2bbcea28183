package host

import (
	"sync"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/surface-sampler/core"
	"github.com/signalsfoundry/surface-sampler/internal/instrument"
	"github.com/signalsfoundry/surface-sampler/model"
	"github.com/signalsfoundry/surface-sampler/timectrl"
)

// Track is an SGP4-propagated orbit.
type Track struct {
	sat satellite.Satellite
}

// NewTrack constructs a track from TLE lines.
func NewTrack(line1, line2 string) *Track {
	return &Track{sat: satellite.TLEToSat(line1, line2, satellite.GravityWGS72)}
}

// PositionAt propagates the orbit to t and returns the ECEF position.
// go-satellite works in kilometres; positions are returned in metres.
func (tr *Track) PositionAt(t time.Time) core.Vec3 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(tr.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	const kmToM = 1000.0
	return core.Vec3{
		X: posECEF.X * kmToM,
		Y: posECEF.Y * kmToM,
		Z: posECEF.Z * kmToM,
	}
}

type carriedBody struct {
	body   model.ForeignBody
	offset core.Vec3
}

// OrbitalTarget is a targeted vessel on its own orbit carrying foreign
// bodies. Positions are reported relative to a reference track, normally
// the sampling vessel's orbit, so they share the instrument's frame.
type OrbitalTarget struct {
	clock     timectrl.SimClock
	target    *Track
	reference *Track

	mu       sync.RWMutex
	bodies   []carriedBody
	targeted bool
}

var _ instrument.TargetTracker = (*OrbitalTarget)(nil)

// NewOrbitalTarget creates a target following target. A nil reference
// reports absolute ECEF positions.
func NewOrbitalTarget(clock timectrl.SimClock, target, reference *Track) *OrbitalTarget {
	return &OrbitalTarget{clock: clock, target: target, reference: reference, targeted: true}
}

// Carry attaches a foreign body at offset from the target's centre.
func (o *OrbitalTarget) Carry(body model.ForeignBody, offset core.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bodies = append(o.bodies, carriedBody{body: body, offset: offset})
}

// SetTargeted selects or clears the target.
func (o *OrbitalTarget) SetTargeted(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.targeted = on
}

// Position returns the target's current position in the reference frame.
func (o *OrbitalTarget) Position() core.Vec3 {
	now := o.clock.Now()
	pos := o.target.PositionAt(now)
	if o.reference != nil {
		pos = pos.Sub(o.reference.PositionAt(now))
	}
	return pos
}

// TargetForeignBodies reports the carried bodies at their current
// positions.
func (o *OrbitalTarget) TargetForeignBodies() ([]core.Attachment, bool) {
	o.mu.RLock()
	targeted := o.targeted
	bodies := append([]carriedBody(nil), o.bodies...)
	o.mu.RUnlock()
	if !targeted {
		return nil, false
	}

	centre := o.Position()
	out := make([]core.Attachment, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, core.Attachment{Body: b.body, Position: centre.Add(b.offset)})
	}
	return out, true
}
