// Package propagation implements the NORAD orbital models: SGP, SGP4 and
// SGP8 for near-earth bodies, SDP4 and SDP8 for deep-space bodies, plus a
// null model that leaves the last computed state untouched. Element sets
// come from internal/tle; output is earth-centered inertial position and
// velocity in km and km/s.
package propagation

import (
	"fmt"
	"math"
	"time"

	"github.com/star/orbtrack/internal/metrics"
	"github.com/star/orbtrack/internal/tle"
)

// Model names an orbital model. The zero value is ModelAuto, which picks
// SGP4 or SDP4 from the orbit class.
type Model int

const (
	ModelAuto  Model = iota // best available: SGP4 or SDP4
	ModelAuto4              // alias of ModelAuto
	ModelAuto8              // SGP8 or SDP8 by orbit class
	ModelSGP
	ModelSGP4
	ModelSGP8
	ModelSDP4
	ModelSDP8
	ModelNull
)

var modelNames = map[Model]string{
	ModelAuto:  "model",
	ModelAuto4: "model4",
	ModelAuto8: "model8",
	ModelSGP:   "sgp",
	ModelSGP4:  "sgp4",
	ModelSGP8:  "sgp8",
	ModelSDP4:  "sdp4",
	ModelSDP8:  "sdp8",
	ModelNull:  "null",
}

var modelsByName = map[string]Model{
	"model":  ModelAuto,
	"model4": ModelAuto4,
	"model8": ModelAuto8,
	"sgp":    ModelSGP,
	"sgp4":   ModelSGP4,
	"sgp8":   ModelSGP8,
	"sdp4":   ModelSDP4,
	"sdp8":   ModelSDP8,
	"null":   ModelNull,
}

func (m Model) String() string {
	if s, ok := modelNames[m]; ok {
		return s
	}
	return fmt.Sprintf("model(%d)", int(m))
}

// ParseModel resolves a model name. Accepted names are sgp, sgp4, sgp8,
// sdp4, sdp8, null and the aliases model, model4 and model8.
func ParseModel(name string) (Model, error) {
	if m, ok := modelsByName[name]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// PositionVelocity is an earth-centered inertial state vector.
type PositionVelocity struct {
	T          time.Time
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// stateVec is a model's raw output: the osculating orbit plane parameters
// after short-period reconstruction, in canonical units.
type stateVec struct {
	rk     float64 // radius, earth radii
	uk     float64 // argument of latitude, rad
	xnodek float64 // node, rad
	xinck  float64 // inclination, rad
	rdotk  float64 // radial rate, earth radii/min
	rfdotk float64 // transverse rate, earth radii/min
}

// modelState is the per-revision initialized form of a model.
type modelState interface {
	update(tsince float64) (stateVec, error)
}

// Propagator evaluates one model for one element set. Initialization is
// done lazily on first use and cached against the element-set revision:
// mutating a model-relevant field through a tle setter makes the next call
// re-initialize, mutating display metadata does not. A Propagator is not
// safe for concurrent use; the worker pool gives each job its own.
type Propagator struct {
	els   *tle.ElementSet
	model Model // concrete, aliases resolved
	rev   int
	state modelState
	last  PositionVelocity
}

// New builds a propagator for the element set. Aliases resolve against the
// orbit class; an explicit near-earth model on a deep-space body (or the
// reverse) fails with ErrModelMismatch.
func New(els *tle.ElementSet, model Model) (*Propagator, error) {
	resolved, err := resolve(els, model)
	if err != nil {
		return nil, err
	}
	return &Propagator{els: els, model: resolved}, nil
}

// Select returns the default concrete model for the element set's orbit
// class: SDP4 for deep-space bodies, SGP4 otherwise.
func Select(els *tle.ElementSet) Model {
	if els.IsDeep() {
		return ModelSDP4
	}
	return ModelSGP4
}

func resolve(els *tle.ElementSet, model Model) (Model, error) {
	deep := els.IsDeep()
	switch model {
	case ModelAuto, ModelAuto4:
		if deep {
			return ModelSDP4, nil
		}
		return ModelSGP4, nil
	case ModelAuto8:
		if deep {
			return ModelSDP8, nil
		}
		return ModelSGP8, nil
	case ModelSGP, ModelSGP4, ModelSGP8:
		if deep {
			return 0, fmt.Errorf("%w: %s needs a near-earth body, NORAD %d is deep-space", ErrModelMismatch, model, els.NORADID)
		}
		return model, nil
	case ModelSDP4, ModelSDP8:
		if !deep {
			return 0, fmt.Errorf("%w: %s needs a deep-space body, NORAD %d is near-earth", ErrModelMismatch, model, els.NORADID)
		}
		return model, nil
	case ModelNull:
		return model, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownModel, int(model))
}

// Model returns the concrete model the propagator runs.
func (p *Propagator) Model() Model { return p.model }

// Propagate computes the inertial state at t. Errors from the numeric
// domain are *EccentricityError; the propagator stays valid and the same
// call repeats the same result.
func (p *Propagator) Propagate(t time.Time) (PositionVelocity, error) {
	if p.model == ModelNull {
		pv := p.last
		pv.T = t
		return pv, nil
	}

	if p.state == nil || p.rev != p.els.Revision() {
		st, err := p.initState()
		if err != nil {
			return PositionVelocity{}, err
		}
		p.state = st
		p.rev = p.els.Revision()
	}

	tsince := t.Sub(p.els.Epoch()).Minutes()
	sv, err := p.state.update(tsince)
	if err != nil {
		metrics.RecordPropagationError(p.model.String(), errorKind(err))
		return PositionVelocity{}, err
	}
	metrics.RecordPropagation(p.model.String())

	pv := toECI(sv)
	pv.T = t
	p.last = pv
	return pv, nil
}

func (p *Propagator) initState() (modelState, error) {
	switch p.model {
	case ModelSGP:
		return newSGP(p.els), nil
	case ModelSGP4:
		return newSGP4(p.els), nil
	case ModelSGP8:
		return newSGP8(p.els), nil
	case ModelSDP4:
		return newSDP4(p.els), nil
	case ModelSDP8:
		return newSDP8(p.els), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownModel, p.model)
}

// toECI rotates the orbit-plane state into inertial axes and scales from
// canonical units to km and km/s.
func toECI(sv stateVec) PositionVelocity {
	sinuk := math.Sin(sv.uk)
	cosuk := math.Cos(sv.uk)
	sinik := math.Sin(sv.xinck)
	cosik := math.Cos(sv.xinck)
	sinnok := math.Sin(sv.xnodek)
	cosnok := math.Cos(sv.xnodek)
	xmx := -sinnok * cosik
	xmy := cosnok * cosik
	ux := xmx*sinuk + cosnok*cosuk
	uy := xmy*sinuk + sinnok*cosuk
	uz := sinik * sinuk
	vx := xmx*cosuk - cosnok*sinuk
	vy := xmy*cosuk - sinnok*sinuk
	vz := sinik * cosuk

	// km and km/s from earth radii and earth radii per minute.
	const velScale = xkmper / 60.0
	return PositionVelocity{
		X:  sv.rk * ux * xkmper,
		Y:  sv.rk * uy * xkmper,
		Z:  sv.rk * uz * xkmper,
		VX: (sv.rdotk*ux + sv.rfdotk*vx) * velScale,
		VY: (sv.rdotk*uy + sv.rfdotk*vy) * velScale,
		VZ: (sv.rdotk*uz + sv.rfdotk*vz) * velScale,
	}
}
