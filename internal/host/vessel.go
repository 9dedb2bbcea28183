// Package host provides a small standalone host for the sampler: a vessel
// resting on a scene, an orbiting target, science sinks and a console UI.
package host

import (
	"sync"

	"github.com/signalsfoundry/surface-sampler/core"
	"github.com/signalsfoundry/surface-sampler/internal/instrument"
	"github.com/signalsfoundry/surface-sampler/model"
)

// Vessel is a mutable vehicle. The zero value is not usable; build one
// with NewVessel.
type Vessel struct {
	mu sync.RWMutex

	situation  model.VehicleSituation
	body       string
	thresholds model.BodyThresholds
	altitude   float64
	landedAt   string
	lat, lon   float64

	foreign      []core.Attachment
	transmitters []instrument.Transmitter
	labs         []instrument.Lab
}

var _ instrument.Vehicle = (*Vessel)(nil)

// NewVessel creates a vessel landed on body.
func NewVessel(body string, th model.BodyThresholds) *Vessel {
	return &Vessel{situation: model.VehicleLanded, body: body, thresholds: th}
}

// SetSituation changes the flight state and altitude in metres.
func (v *Vessel) SetSituation(s model.VehicleSituation, altitude float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.situation = s
	v.altitude = altitude
}

// SetCoordinates moves the vessel. landedAt names a fixed site or is empty.
func (v *Vessel) SetCoordinates(lat, lon float64, landedAt string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lat, v.lon = lat, lon
	v.landedAt = landedAt
}

// Attach docks a foreign body to the vessel.
func (v *Vessel) Attach(a core.Attachment) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.foreign = append(v.foreign, a)
}

// AddTransmitter installs a transmitter.
func (v *Vessel) AddTransmitter(t instrument.Transmitter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.transmitters = append(v.transmitters, t)
}

// AddLab installs a lab.
func (v *Vessel) AddLab(l instrument.Lab) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.labs = append(v.labs, l)
}

func (v *Vessel) Situation() model.VehicleSituation {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.situation
}

func (v *Vessel) ExperimentSituation() model.Situation {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return model.ExperimentSituationFor(v.situation, v.altitude, v.thresholds)
}

func (v *Vessel) MainBody() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.body
}

func (v *Vessel) LandedAt() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.landedAt
}

func (v *Vessel) Coordinates() (float64, float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lat, v.lon
}

func (v *Vessel) ForeignBodies() []core.Attachment {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]core.Attachment(nil), v.foreign...)
}

func (v *Vessel) Transmitters() []instrument.Transmitter {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]instrument.Transmitter(nil), v.transmitters...)
}

func (v *Vessel) Labs() []instrument.Lab {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]instrument.Lab(nil), v.labs...)
}

// Mount is the part carrying the instrument: a single named transform at a
// fixed position.
type Mount struct {
	ID            uint32
	TransformName string
	Origin        core.Vec3
	Forward       core.Vec3
	Scale         float64
}

var _ instrument.Part = (*Mount)(nil)

func (m *Mount) FlightID() uint32 { return m.ID }

func (m *Mount) Transform(name string) (core.Vec3, core.Vec3, bool) {
	if name != m.TransformName {
		return core.Vec3{}, core.Vec3{}, false
	}
	return m.Origin, m.Forward, true
}

func (m *Mount) RescaleFactor() float64 {
	if m.Scale == 0 {
		return 1
	}
	return m.Scale
}

func (m *Mount) Position() core.Vec3 { return m.Origin }
