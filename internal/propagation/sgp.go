package propagation

import (
	"math"

	"github.com/star/orbtrack/internal/tle"
)

// sgpState implements the original SGP model. Drag comes straight from the
// ndot/2 and nddot/6 fields of the element set instead of bstar, and the
// short-period corrections stop at position; the velocity keeps the
// unperturbed radial and transverse rates.
type sgpState struct {
	els  *tle.ElementSet
	geom geomCoef

	a0, q0             float64
	xlo                float64
	d10, d20, d30, d40 float64
	omgdt, xnodot      float64
	c5, c6             float64
}

func newSGP(els *tle.ElementSet) *sgpState {
	s := &sgpState{els: els, geom: newGeomCoef(els.Inclination())}

	c1 := ck2 * 1.5
	c2 := ck2 / 4.0
	c3 := ck2 / 2.0
	c4 := xj3 / (4.0 * ck2)
	cosio := s.geom.cosio
	sinio := s.geom.sinio

	eo := els.Eccentricity()
	xno := els.MeanMotion()
	a1 := math.Pow(xke/xno, tothrd)
	d1 := c1 / (a1 * a1) * s.geom.x3thm1 / math.Pow(1.0-eo*eo, 1.5)
	s.a0 = a1 * (1.0 - 1.0/3.0*d1 - d1*d1 - 134.0/81.0*d1*d1*d1)
	p0 := s.a0 * (1.0 - eo*eo)
	s.q0 = s.a0 * (1.0 - eo)
	s.xlo = els.MeanAnomaly() + els.ArgumentOfPerigee() + els.RightAscension()
	s.d10 = c3 * sinio * sinio
	s.d20 = c2 * (7.0*cosio*cosio - 1.0)
	s.d30 = c1 * cosio
	s.d40 = s.d30 * sinio
	po2no := xno / (p0 * p0)
	s.omgdt = c1 * po2no * (5.0*cosio*cosio - 1.0)
	s.xnodot = -2.0 * s.d30 * po2no
	s.c5 = 0.5 * c4 * sinio * (3.0 + 5.0*cosio) / (1.0 + cosio)
	s.c6 = c4 * sinio

	return s
}

func (s *sgpState) update(tsince float64) (stateVec, error) {
	xno := s.els.MeanMotion()
	ndt2 := s.els.NdotOver2()
	ndd6 := s.els.NddotOver6()

	// Update for secular gravity and atmospheric drag.
	xn := xno + (2.0*ndt2+3.0*ndd6*tsince)*tsince
	if xn <= 0 {
		return stateVec{}, &EccentricityError{Model: ModelSGP, Tsince: tsince, Ecc: 1.0}
	}
	a := s.a0 * math.Pow(xno/xn, tothrd)
	e := e6a
	if a > s.q0 {
		e = 1.0 - s.q0/a
	}
	if e >= 1.0 {
		return stateVec{}, &EccentricityError{Model: ModelSGP, Tsince: tsince, Ecc: e}
	}
	p := a * (1.0 - e*e)
	xnodes := s.els.RightAscension() + s.xnodot*tsince
	omgas := s.els.ArgumentOfPerigee() + s.omgdt*tsince
	xls := mod2Pi(s.xlo + (xno+s.omgdt+s.xnodot+(ndt2+ndd6*tsince)*tsince)*tsince)

	// Long period periodics.
	axnsl := e * math.Cos(omgas)
	aynsl := e*math.Sin(omgas) - s.c6/p
	xl := mod2Pi(xls - s.c5/p*axnsl)

	u := mod2Pi(xl - xnodes)
	k := solveKepler(axnsl, aynsl, u)

	el2 := axnsl*axnsl + aynsl*aynsl
	if el2 >= 1.0 {
		return stateVec{}, &EccentricityError{Model: ModelSGP, Tsince: tsince, Ecc: math.Sqrt(el2)}
	}
	pl := a * (1.0 - el2)
	pl2 := pl * pl
	r := a * (1.0 - k.ecose)
	rdot := xke * math.Sqrt(a) / r * k.esine
	rvdot := xke * math.Sqrt(pl) / r
	temp := k.esine / (1.0 + math.Sqrt(1.0-el2))
	sinu := a / r * (k.sinepw - aynsl - axnsl*temp)
	cosu := a / r * (k.cosepw - axnsl + aynsl*temp)
	su := math.Atan2(sinu, cosu)

	// Update for short periodics.
	sin2u := (cosu + cosu) * sinu
	cos2u := 1.0 - 2.0*sinu*sinu
	return stateVec{
		rk:     r + s.d10/pl*cos2u,
		uk:     su - s.d20/pl2*sin2u,
		xnodek: xnodes + s.d30*sin2u/pl2,
		xinck:  s.els.Inclination() + s.d40/pl2*cos2u,
		rdotk:  rdot,
		rfdotk: rvdot,
	}, nil
}
