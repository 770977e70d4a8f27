// Package passes locates the intervals during which an orbiting body is above
// a ground observer's horizon, classifies its illumination, and pins the
// rise, culmination, set, shadow-transition, and appulse instants down to
// sub-second precision by bisection.
package passes

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/star/orbtrack/internal/bodies"
	"github.com/star/orbtrack/internal/metrics"
	"github.com/star/orbtrack/internal/propagation"
	"github.com/star/orbtrack/internal/tle"
	"github.com/star/orbtrack/internal/transform"
)

// ErrBadWindow reports a detection window whose end precedes its start.
var ErrBadWindow = errors.New("pass window end precedes start")

// Illumination classifies what the observer would see at one instant.
type Illumination int

const (
	// IllumDay: the illuminating body is above the twilight threshold at
	// the observer, washing the sky out.
	IllumDay Illumination = iota
	// IllumLit: observer in darkness, body in sunlight.
	IllumLit
	// IllumShadowed: observer in darkness, body inside the earth's shadow.
	IllumShadowed
)

func (i Illumination) String() string {
	switch i {
	case IllumDay:
		return "day"
	case IllumLit:
		return "lit"
	case IllumShadowed:
		return "shadowed"
	}
	return fmt.Sprintf("Illumination(%d)", int(i))
}

// EventKind identifies what happened at a PassEvent instant.
type EventKind int

const (
	EventNone EventKind = iota
	EventRise
	EventMax
	EventSet
	EventShadowed // body entered the earth's shadow
	EventLit      // body left the earth's shadow
	EventDay      // observer crossed the twilight threshold
	EventAppulse  // minimum angular separation from a background body
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventRise:
		return "rise"
	case EventMax:
		return "max"
	case EventSet:
		return "set"
	case EventShadowed:
		return "shadowed"
	case EventLit:
		return "lit"
	case EventDay:
		return "day"
	case EventAppulse:
		return "appulse"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// PassEvent is one instant of interest during a pass.
type PassEvent struct {
	Time         time.Time    `json:"time"`
	AzimuthDeg   float64      `json:"azimuth"`
	ElevationDeg float64      `json:"elevation"`
	RangeKm      float64      `json:"range_km"`
	RangeRateKmS float64      `json:"range_rate"`
	Illumination Illumination `json:"-"`
	Kind         EventKind    `json:"-"`

	// Sub-satellite point.
	Ground transform.Geodetic `json:"ground"`

	// Appulse events only.
	SeparationDeg float64 `json:"separation,omitempty"`
	Body          string  `json:"body,omitempty"`
}

// Pass is one above-horizon interval: its events in time order plus the
// culmination instant.
type Pass struct {
	Events      []PassEvent `json:"events"`
	Culmination time.Time   `json:"culmination"`
}

// Rise returns the first event of the pass.
func (p *Pass) Rise() PassEvent { return p.Events[0] }

// Set returns the last event of the pass.
func (p *Pass) Set() PassEvent { return p.Events[len(p.Events)-1] }

// MaxElevation returns the culmination event's elevation in degrees.
func (p *Pass) MaxElevation() float64 {
	for _, e := range p.Events {
		if e.Kind == EventMax {
			return e.ElevationDeg
		}
	}
	return 0
}

// Source produces inertial position/velocity for a body at an absolute time.
// *propagation.Propagator satisfies it.
type Source interface {
	Propagate(t time.Time) (propagation.PositionVelocity, error)
}

// Illuminator is the light source used for the day/lit/shadowed
// classification. The zero value of Config takes the Sun.
type Illuminator struct {
	Name     string
	Position func(t time.Time) transform.Vec3
	RadiusKm float64
}

// Background is a body checked for appulses: close angular approaches to the
// tracked body as seen from the observer.
type Background struct {
	Name     string
	Position func(t time.Time) transform.Vec3
}

// Config tunes the detector. The zero value means: geometric horizon at 0
// degrees with standard refraction applied, civil twilight, limb illumination
// test, 60 second base sampling, no appulse search, all passes reported.
type Config struct {
	HorizonDeg       float64       // effective horizon elevation
	TwilightDeg      float64       // solar elevation separating day from night; 0 takes civil twilight (-6)
	CenterIllum      bool          // test eclipse at the light source's center instead of its limb
	MaxAppulseDeg    float64       // report appulses at or below this separation; 0 disables
	VisibleOnly      bool          // drop passes with no lit-while-dark moment
	GeometricHorizon bool          // skip the refraction correction at the horizon
	Interval         time.Duration // base sampling step; 0 takes 60 s
	Backdate         bool          // allow windows that start before the element epoch
	Illuminator      *Illuminator  // nil takes the Sun
}

const (
	// Refraction lift at the horizon, degrees.
	horizonRefractionDeg = 34.0 / 60.0
	// Civil twilight, degrees below the horizon.
	civilTwilightDeg = -6.0
	// Elevation margin below which the coarse 5x step applies. Satellites
	// this far below the horizon are distant enough that one coarse step
	// cannot carry them through a whole pass.
	coarseMarginDeg = 20.0

	eventResolution   = time.Second
	appulseResolution = 100 * time.Millisecond

	earthRadiusKm = 6378.135
)

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.TwilightDeg == 0 {
		c.TwilightDeg = civilTwilightDeg
	}
	if c.Illuminator == nil {
		c.Illuminator = &Illuminator{
			Name:     "sun",
			Position: bodies.SunECI,
			RadiusKm: bodies.SolarRadiusKm,
		}
	}
	return c
}

func (c Config) effectiveHorizon() float64 {
	h := c.HorizonDeg
	if !c.GeometricHorizon {
		h -= horizonRefractionDeg
	}
	return h
}

// Detector finds the passes of one body over one observer.
type Detector struct {
	source      Source
	els         *tle.ElementSet // nil when built from a bare Source
	epoch       time.Time
	obs         transform.Observer
	cfg         Config
	backgrounds []Background
}

// New builds a detector for an element set, resolving the model through the
// propagation selector.
func New(els *tle.ElementSet, model propagation.Model, obs transform.Observer, cfg Config) (*Detector, error) {
	prop, err := propagation.New(els, model)
	if err != nil {
		return nil, err
	}
	return &Detector{
		source: prop,
		els:    els,
		epoch:  els.Epoch(),
		obs:    obs,
		cfg:    cfg.withDefaults(),
	}, nil
}

// NewFromSource builds a detector over an arbitrary propagation source.
// A zero epoch disables the backdating check.
func NewFromSource(src Source, epoch time.Time, obs transform.Observer, cfg Config) *Detector {
	return &Detector{source: src, epoch: epoch, obs: obs, cfg: cfg.withDefaults()}
}

// AddBackground registers a body for appulse detection.
func (d *Detector) AddBackground(b Background) {
	d.backgrounds = append(d.backgrounds, b)
}

// WillRise reports whether the body's orbit can put it above the observer's
// geometric horizon at all: the coverage circle at apogee must reach the
// observer's latitude. True when no element set is attached. Used as a cheap
// screen before scanning a window.
func (d *Detector) WillRise() bool {
	if d.els == nil {
		return true
	}
	xno := d.els.MeanMotion()
	if xno < 1e-10 {
		return false
	}
	lin := d.els.Inclination()
	if lin >= math.Pi/2 {
		lin = math.Pi - lin
	}
	apogee := d.els.RecoveredSemimajorAxis() * (1 + d.els.Eccentricity()) * earthRadiusKm
	return math.Acos(earthRadiusKm/apogee)+lin >= math.Abs(d.obs.LatRad)
}

// sample is one propagated instant with its look angles and illumination.
type sample struct {
	t     time.Time
	pos   transform.Vec3
	la    transform.LookAngles
	illum Illumination
}

func (d *Detector) at(t time.Time) (sample, error) {
	pv, err := d.source.Propagate(t)
	if err != nil {
		return sample{}, err
	}
	pos := transform.Vec3{X: pv.X, Y: pv.Y, Z: pv.Z}
	vel := transform.Vec3{X: pv.VX, Y: pv.VY, Z: pv.VZ}
	return sample{
		t:     t,
		pos:   pos,
		la:    d.obs.LookAt(pos, vel, t),
		illum: d.classify(pos, t),
	}, nil
}

func (d *Detector) classify(pos transform.Vec3, t time.Time) Illumination {
	light := d.cfg.Illuminator.Position(t)
	if d.obs.LookAt(light, transform.Vec3{}, t).ElevationDeg > d.cfg.TwilightDeg {
		return IllumDay
	}
	depth, sdLight, possible := bodies.ShadowDepth(pos, light, d.cfg.Illuminator.RadiusKm)
	if !possible {
		return IllumLit
	}
	if d.cfg.CenterIllum {
		// Shadowed once the source's center goes behind the earth.
		if depth+sdLight >= 0 {
			return IllumShadowed
		}
		return IllumLit
	}
	if depth >= 0 {
		return IllumShadowed
	}
	return IllumLit
}

// Detect scans [start, end) and returns one Pass per above-horizon interval.
// Windows starting before the element epoch are advanced to the epoch unless
// backdating is enabled; a window emptied by that advance yields no passes.
// Propagator errors are returned as-is.
func (d *Detector) Detect(start, end time.Time) ([]Pass, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %v before %v", ErrBadWindow, end, start)
	}
	scanStart := time.Now()
	if !d.cfg.Backdate && !d.epoch.IsZero() && start.Before(d.epoch) {
		start = d.epoch
		if start.After(end) {
			return nil, nil
		}
	}
	if !d.WillRise() {
		return nil, nil
	}

	horizon := d.cfg.effectiveHorizon()
	base := d.cfg.Interval

	var (
		passes []Pass
		above  []sample // samples of the current above-horizon interval
		below  sample   // most recent below-horizon sample
	)

	flush := func(setBracket *sample) error {
		if len(above) == 0 {
			return nil
		}
		p, err := d.buildPass(above, below, setBracket, start, end)
		if err != nil {
			return err
		}
		if p != nil {
			passes = append(passes, *p)
		}
		above = nil
		return nil
	}

	t := start
	for !t.After(end) {
		s, err := d.at(t)
		if err != nil {
			return nil, err
		}

		if s.la.ElevationDeg >= horizon {
			above = append(above, s)
		} else {
			if err := flush(&s); err != nil {
				return nil, err
			}
			below = s
		}

		if t.Equal(end) {
			break
		}
		step := base
		if s.la.ElevationDeg < horizon-coarseMarginDeg {
			step = 5 * base
		}
		t = t.Add(step)
		if t.After(end) {
			t = end
		}
	}

	// Body still up at the window end: truncate the pass there.
	if err := flush(nil); err != nil {
		return nil, err
	}

	metrics.ObservePassScan(time.Since(scanStart), len(passes))
	return passes, nil
}

// buildPass refines one above-horizon interval into a Pass. riseBracket is
// the below-horizon sample preceding the interval (zero time means the window
// opened with the body already up); setBracket the one following it (nil
// means the window closed on it).
func (d *Detector) buildPass(above []sample, riseBracket sample, setBracket *sample, start, end time.Time) (*Pass, error) {
	horizon := d.cfg.effectiveHorizon()
	abovePred := func(t time.Time) (bool, error) {
		s, err := d.at(t)
		if err != nil {
			return false, err
		}
		return s.la.ElevationDeg >= horizon, nil
	}

	var events []PassEvent

	// Rise.
	riseTime := above[0].t
	if !riseBracket.t.IsZero() && riseBracket.t.Before(riseTime) {
		t, err := bisect(riseBracket.t, riseTime, eventResolution, abovePred)
		if err != nil {
			return nil, err
		}
		riseTime = t
	}
	rise, err := d.event(riseTime, EventRise)
	if err != nil {
		return nil, err
	}
	events = append(events, rise)

	// Set.
	setTime := above[len(above)-1].t
	if setBracket != nil {
		// First instant below the horizon, backed off one resolution unit.
		t, err := bisect(setTime, setBracket.t, eventResolution, func(t time.Time) (bool, error) {
			up, err := abovePred(t)
			return !up, err
		})
		if err != nil {
			return nil, err
		}
		setTime = t.Add(-eventResolution)
		if setTime.Before(above[len(above)-1].t) {
			setTime = above[len(above)-1].t
		}
	}
	set, err := d.event(setTime, EventSet)
	if err != nil {
		return nil, err
	}

	// Culmination: refine around the best sample.
	best := 0
	for i, s := range above {
		if s.la.ElevationDeg > above[best].la.ElevationDeg {
			best = i
		}
	}
	lo, hi := riseTime, setTime
	if best > 0 {
		lo = above[best-1].t
	}
	if best < len(above)-1 {
		hi = above[best+1].t
	}
	maxTime, err := maximize(lo, hi, eventResolution, func(t time.Time) (float64, error) {
		s, err := d.at(t)
		if err != nil {
			return 0, err
		}
		return s.la.ElevationDeg, nil
	})
	if err != nil {
		return nil, err
	}
	max, err := d.event(maxTime, EventMax)
	if err != nil {
		return nil, err
	}
	events = append(events, max)

	// Illumination transitions between consecutive in-pass samples.
	for i := 1; i < len(above); i++ {
		prev, cur := above[i-1], above[i]
		if prev.illum == cur.illum {
			continue
		}
		t, err := bisect(prev.t, cur.t, eventResolution, func(t time.Time) (bool, error) {
			s, err := d.at(t)
			if err != nil {
				return false, err
			}
			return s.illum == cur.illum, nil
		})
		if err != nil {
			return nil, err
		}
		ev, err := d.event(t, transitionKind(cur.illum))
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	// Appulses.
	if d.cfg.MaxAppulseDeg > 0 {
		for _, bg := range d.backgrounds {
			ev, found, err := d.findAppulse(bg, above, riseTime, setTime)
			if err != nil {
				return nil, err
			}
			if found {
				events = append(events, ev)
			}
		}
	}

	events = append(events, set)

	if d.cfg.VisibleOnly && !anyLit(above, events) {
		return nil, nil
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	events = dedupe(events)

	return &Pass{Events: events, Culmination: maxTime}, nil
}

// event propagates at t and tags the result.
func (d *Detector) event(t time.Time, kind EventKind) (PassEvent, error) {
	s, err := d.at(t)
	if err != nil {
		return PassEvent{}, err
	}
	return PassEvent{
		Time:         s.t,
		AzimuthDeg:   s.la.AzimuthDeg,
		ElevationDeg: s.la.ElevationDeg,
		RangeKm:      s.la.RangeKm,
		RangeRateKmS: s.la.RangeRateKmS,
		Illumination: s.illum,
		Kind:         kind,
		Ground:       transform.ToGeodetic(s.pos, s.t),
	}, nil
}

func transitionKind(to Illumination) EventKind {
	switch to {
	case IllumDay:
		return EventDay
	case IllumLit:
		return EventLit
	default:
		return EventShadowed
	}
}

// findAppulse locates the minimum angular separation between the tracked
// body and bg over [riseTime, setTime], refined to sub-sample resolution.
// Close low passes can dip under the threshold faster than the base sampling
// resolves, hence the finer grid.
func (d *Detector) findAppulse(bg Background, above []sample, riseTime, setTime time.Time) (PassEvent, bool, error) {
	sep := func(t time.Time) (float64, error) {
		s, err := d.at(t)
		if err != nil {
			return 0, err
		}
		bgLook := d.obs.LookAt(bg.Position(t), transform.Vec3{}, t)
		return transform.Separation(s.la, bgLook), nil
	}

	// Bracket the minimum on the pass samples.
	best := 0
	bestSep := math.Inf(1)
	for i, s := range above {
		bgLook := d.obs.LookAt(bg.Position(s.t), transform.Vec3{}, s.t)
		if v := transform.Separation(s.la, bgLook); v < bestSep {
			bestSep = v
			best = i
		}
	}
	lo, hi := riseTime, setTime
	if best > 0 {
		lo = above[best-1].t
	}
	if best < len(above)-1 {
		hi = above[best+1].t
	}

	minTime, err := maximize(lo, hi, appulseResolution, func(t time.Time) (float64, error) {
		v, err := sep(t)
		return -v, err
	})
	if err != nil {
		return PassEvent{}, false, err
	}
	minSep, err := sep(minTime)
	if err != nil {
		return PassEvent{}, false, err
	}
	if minSep > d.cfg.MaxAppulseDeg {
		return PassEvent{}, false, nil
	}

	ev, err := d.event(minTime, EventAppulse)
	if err != nil {
		return PassEvent{}, false, err
	}
	ev.SeparationDeg = minSep
	ev.Body = bg.Name
	return ev, true, nil
}

func anyLit(above []sample, events []PassEvent) bool {
	for _, s := range above {
		if s.illum == IllumLit {
			return true
		}
	}
	for _, e := range events {
		if e.Illumination == IllumLit {
			return true
		}
	}
	return false
}

// dedupe collapses events sharing a timestamp, always retaining appulses.
func dedupe(events []PassEvent) []PassEvent {
	out := events[:0]
	for i, e := range events {
		if i > 0 && e.Time.Equal(out[len(out)-1].Time) && e.Kind != EventAppulse && out[len(out)-1].Kind != EventAppulse {
			continue
		}
		out = append(out, e)
	}
	return out
}

// bisect finds the earliest time in (lo, hi] at which pred holds, to within
// res. pred must be false at lo and true at hi.
func bisect(lo, hi time.Time, res time.Duration, pred func(time.Time) (bool, error)) (time.Time, error) {
	for hi.Sub(lo) > res {
		mid := lo.Add(hi.Sub(lo) / 2)
		ok, err := pred(mid)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi, nil
}

// maximize finds the time in [lo, hi] maximizing f, to within res, assuming
// f is unimodal on the interval.
func maximize(lo, hi time.Time, res time.Duration, f func(time.Time) (float64, error)) (time.Time, error) {
	for hi.Sub(lo) > res {
		span := hi.Sub(lo)
		m1 := lo.Add(span / 3)
		m2 := hi.Add(-span / 3)
		v1, err := f(m1)
		if err != nil {
			return time.Time{}, err
		}
		v2, err := f(m2)
		if err != nil {
			return time.Time{}, err
		}
		if v1 < v2 {
			lo = m1
		} else {
			hi = m2
		}
	}
	return lo.Add(hi.Sub(lo) / 2), nil
}
