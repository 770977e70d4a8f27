package tle

import (
	"math"
	"time"
)

// Constants used to recover the unperturbed mean motion from a freshly
// parsed element set. Values follow the WGS-72 set used by the NORAD
// models; internal/propagation carries the full set.
const (
	twoPi   = 2 * math.Pi
	deg2Rad = math.Pi / 180.0
	tothrd  = 2.0 / 3.0
	xmnpda  = 1440.0 // minutes per day
	xke     = 0.743669161e-1
	ck2     = 5.413080e-4

	// Bodies with an orbital period of at least 0.15625 days (225 minutes,
	// 13500 seconds) take the deep-space models.
	deepSpacePeriodDays = 0.15625
)

// ElementSet is a parsed NORAD two-line element set. The model-relevant
// orbital fields are reachable only through accessors: every setter bumps the
// revision counter, which invalidates any propagator state cached against the
// previous revision and drops the cached deep-space classification. Display
// metadata (Name and friends) carries no such hook.
type ElementSet struct {
	NORADID        int
	Name           string
	IntlDesignator string
	SetNum         int
	OrbitNum       int
	EphemerisType  int

	epoch     time.Time
	epochDays float64 // YYDDD.DDDDDDDD as published

	xincl  float64 // inclination, rad
	xnodeo float64 // right ascension of ascending node, rad
	eo     float64 // eccentricity
	omegao float64 // argument of perigee, rad
	xmo    float64 // mean anomaly, rad
	xno    float64 // mean motion, rad/min
	xndt2o float64 // half the first derivative of mean motion, rad/min^2
	xndd6o float64 // sixth the second derivative of mean motion, rad/min^3
	bstar  float64 // SGP4-type drag term, 1/earth-radii

	rev   int
	class *classification
}

// classification caches the closed-form semimajor-axis recovery so the
// deep-space test is computed once per revision.
type classification struct {
	xnodp float64 // recovered mean motion, rad/min
	aodp  float64 // recovered semimajor axis, earth radii
	deep  bool
}

// Epoch returns the element-set epoch as absolute time.
func (e *ElementSet) Epoch() time.Time { return e.epoch }

// EpochDays returns the epoch in the packed YYDDD.DDDDDDDD form used by the
// sidereal-angle computation of the deep-space model.
func (e *ElementSet) EpochDays() float64 { return e.epochDays }

// Inclination returns the mean inclination in radians.
func (e *ElementSet) Inclination() float64 { return e.xincl }

// RightAscension returns the right ascension of the ascending node in radians.
func (e *ElementSet) RightAscension() float64 { return e.xnodeo }

// Eccentricity returns the mean eccentricity.
func (e *ElementSet) Eccentricity() float64 { return e.eo }

// ArgumentOfPerigee returns the mean argument of perigee in radians.
func (e *ElementSet) ArgumentOfPerigee() float64 { return e.omegao }

// MeanAnomaly returns the mean anomaly at epoch in radians.
func (e *ElementSet) MeanAnomaly() float64 { return e.xmo }

// MeanMotion returns the mean motion in radians per minute.
func (e *ElementSet) MeanMotion() float64 { return e.xno }

// NdotOver2 returns half the first time derivative of mean motion in
// rad/min^2, as carried on line 1 of the element set.
func (e *ElementSet) NdotOver2() float64 { return e.xndt2o }

// NddotOver6 returns one sixth of the second time derivative of mean motion
// in rad/min^3.
func (e *ElementSet) NddotOver6() float64 { return e.xndd6o }

// Bstar returns the SGP4-type drag term in inverse earth radii.
func (e *ElementSet) Bstar() float64 { return e.bstar }

// Revision identifies the current state of the model-relevant fields.
// Propagator caches key on it; any setter below changes it.
func (e *ElementSet) Revision() int { return e.rev }

func (e *ElementSet) invalidate() {
	e.rev++
	e.class = nil
}

// SetEpoch replaces the element epoch. days is the packed YYDDD.DDDDDDDD form.
func (e *ElementSet) SetEpoch(t time.Time, days float64) {
	e.epoch = t
	e.epochDays = days
	e.invalidate()
}

// SetInclination sets the mean inclination in radians.
func (e *ElementSet) SetInclination(rad float64) {
	e.xincl = rad
	e.invalidate()
}

// SetRightAscension sets the RA of the ascending node in radians.
func (e *ElementSet) SetRightAscension(rad float64) {
	e.xnodeo = rad
	e.invalidate()
}

// SetEccentricity sets the mean eccentricity.
func (e *ElementSet) SetEccentricity(ecc float64) {
	e.eo = ecc
	e.invalidate()
}

// SetArgumentOfPerigee sets the mean argument of perigee in radians.
func (e *ElementSet) SetArgumentOfPerigee(rad float64) {
	e.omegao = rad
	e.invalidate()
}

// SetMeanAnomaly sets the mean anomaly at epoch in radians.
func (e *ElementSet) SetMeanAnomaly(rad float64) {
	e.xmo = rad
	e.invalidate()
}

// SetMeanMotion sets the mean motion in radians per minute.
func (e *ElementSet) SetMeanMotion(radPerMin float64) {
	e.xno = radPerMin
	e.invalidate()
}

// SetMeanMotionRevsPerDay sets the mean motion from the revs-per-day form
// carried on line 2.
func (e *ElementSet) SetMeanMotionRevsPerDay(revs float64) {
	e.SetMeanMotion(revs * twoPi / xmnpda)
}

// SetNdotOver2 sets half the first derivative of mean motion, rad/min^2.
func (e *ElementSet) SetNdotOver2(v float64) {
	e.xndt2o = v
	e.invalidate()
}

// SetNddotOver6 sets a sixth of the second derivative of mean motion,
// rad/min^3.
func (e *ElementSet) SetNddotOver6(v float64) {
	e.xndd6o = v
	e.invalidate()
}

// SetBstar sets the drag term in inverse earth radii.
func (e *ElementSet) SetBstar(v float64) {
	e.bstar = v
	e.invalidate()
}

func (e *ElementSet) classify() *classification {
	if e.class != nil {
		return e.class
	}

	a1 := math.Pow(xke/e.xno, tothrd)
	cosio := math.Cos(e.xincl)
	temp := ck2 * 1.5 * (3.0*cosio*cosio - 1.0) / math.Pow(1.0-e.eo*e.eo, 1.5)
	del1 := temp / (a1 * a1)
	ao := a1 * (1.0 - del1*(0.5*tothrd+del1*(1.0+134.0/81.0*del1)))
	delo := temp / (ao * ao)

	c := &classification{
		xnodp: e.xno / (1.0 + delo),
		aodp:  ao / (1.0 - delo),
	}
	c.deep = twoPi/c.xnodp/xmnpda >= deepSpacePeriodDays
	e.class = c
	return c
}

// IsDeep reports whether the body takes the deep-space models (orbital period
// >= 225 minutes). The classification is cached per revision: mutating a
// display field leaves it untouched, mutating mean motion recomputes it.
func (e *ElementSet) IsDeep() bool { return e.classify().deep }

// RecoveredMeanMotion returns the Brouwer mean motion recovered from the
// Kozai value on the element set, in radians per minute.
func (e *ElementSet) RecoveredMeanMotion() float64 { return e.classify().xnodp }

// RecoveredSemimajorAxis returns the recovered semimajor axis in earth radii.
func (e *ElementSet) RecoveredSemimajorAxis() float64 { return e.classify().aodp }

// Period returns the orbital period derived from the recovered mean motion.
func (e *ElementSet) Period() time.Duration {
	mins := twoPi / e.classify().xnodp
	return time.Duration(mins * float64(time.Minute))
}

// EpochRange represents the minimum and maximum epoch times in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset represents a complete set of element data from a source.
type Dataset struct {
	Source     string
	LoadedAt   time.Time
	EpochRange EpochRange
	Bodies     []*ElementSet
}
