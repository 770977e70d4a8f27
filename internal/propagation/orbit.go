package propagation

import "math"

// dragParams holds the atmospheric density constants, reworked when the
// perigee drops below 156 km.
type dragParams struct {
	s4     float64
	qoms24 float64
}

func dragParamsFor(perigeeKm float64) dragParams {
	d := dragParams{s4: sParam, qoms24: qoms2t}
	if perigeeKm < perigee156Km {
		if perigeeKm <= 98.0 {
			d.s4 = 20.0
		} else {
			d.s4 = perigeeKm - 78.0
		}
		d.qoms24 = math.Pow((120.0-d.s4)/xkmper, 4)
		d.s4 = d.s4/xkmper + 1.0
	}
	return d
}

// geomCoef carries the inclination-geometry coefficients every model
// computes once at initialization.
type geomCoef struct {
	cosio, sinio           float64
	x3thm1, x1mth2, x7thm1 float64
	xlcof, aycof           float64
}

func newGeomCoef(xincl float64) geomCoef {
	cosio := math.Cos(xincl)
	sinio := math.Sin(xincl)
	theta2 := cosio * cosio
	a3ovk2 := -xj3 / ck2
	return geomCoef{
		cosio:  cosio,
		sinio:  sinio,
		x3thm1: 3.0*theta2 - 1.0,
		x1mth2: 1.0 - theta2,
		x7thm1: 7.0*theta2 - 1.0,
		xlcof:  0.125 * a3ovk2 * sinio * (3.0 + 5.0*cosio) / (1.0 + cosio),
		aycof:  0.25 * a3ovk2 * sinio,
	}
}

// finishOrbit applies the long-period periodics, solves Kepler's equation
// and reconstructs the osculating state with the short-period corrections.
// Inputs are the secularly updated elements: semimajor axis a in earth
// radii, eccentricity e, mean longitude xl, argument of perigee omega,
// node xnode and inclination xinc in radians.
func finishOrbit(m Model, tsince, a, e, xl, omega, xnode, xinc float64, g *geomCoef) (stateVec, error) {
	if e >= 1.0 || e < -1.0e-3 {
		return stateVec{}, &EccentricityError{Model: m, Tsince: tsince, Ecc: e}
	}
	beta := math.Sqrt(1.0 - e*e)
	xn := xke / math.Pow(a, 1.5)

	// Long period periodics.
	axn := e * math.Cos(omega)
	temp := invert(a * beta * beta)
	xll := temp * g.xlcof * axn
	aynl := temp * g.aycof
	xlt := xl + xll
	ayn := e*math.Sin(omega) + aynl

	capu := mod2Pi(xlt - xnode)
	k := solveKepler(axn, ayn, capu)

	elsq := axn*axn + ayn*ayn
	if elsq >= 1.0 {
		return stateVec{}, &EccentricityError{Model: m, Tsince: tsince, Ecc: math.Sqrt(elsq)}
	}
	pl := a * (1.0 - elsq)
	r := a * (1.0 - k.ecose)
	rinv := invert(r)
	rdot := xke * math.Sqrt(a) * k.esine * rinv
	rfdot := xke * math.Sqrt(pl) * rinv
	aor := a * rinv
	betal := math.Sqrt(1.0 - elsq)
	t3 := k.esine * invert(1.0+betal)
	cosu := aor * (k.cosepw - axn + ayn*t3)
	sinu := aor * (k.sinepw - ayn - axn*t3)
	u := math.Atan2(sinu, cosu)
	sin2u := 2.0 * sinu * cosu
	cos2u := 2.0*cosu*cosu - 1.0
	plinv := invert(pl)
	t1 := ck2 * plinv
	t2 := t1 * plinv

	// Short period periodics.
	return stateVec{
		rk:     r*(1.0-1.5*t2*betal*g.x3thm1) + 0.5*t1*g.x1mth2*cos2u,
		uk:     u - 0.25*t2*g.x7thm1*sin2u,
		xnodek: xnode + 1.5*t2*g.cosio*sin2u,
		xinck:  xinc + 1.5*t2*g.cosio*g.sinio*cos2u,
		rdotk:  rdot - xn*t1*g.x1mth2*sin2u,
		rfdotk: rfdot + xn*t1*(g.x1mth2*cos2u+1.5*g.x3thm1),
	}, nil
}

// recoverElements recovers the Brouwer mean motion and semimajor axis from
// the Kozai values on the element set, as every model's initialization does.
func recoverElements(xno, eo, x3thm1 float64) (xnodp, aodp float64) {
	a1 := math.Pow(xke/xno, tothrd)
	eosq := eo * eo
	betao2 := 1.0 - eosq
	betao := math.Sqrt(betao2)
	del1 := 1.5 * ck2 * x3thm1 / (a1 * a1 * betao * betao2)
	ao := a1 * (1.0 - del1*(0.5*tothrd+del1*(1.0+134.0/81.0*del1)))
	delo := 1.5 * ck2 * x3thm1 / (ao * ao * betao * betao2)
	return xno / (1.0 + delo), ao / (1.0 - delo)
}
