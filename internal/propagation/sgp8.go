package propagation

import (
	"math"

	"github.com/star/orbtrack/internal/tle"
)

// sgp8State implements the SGP8 formulation: instead of perturbing the
// semimajor axis, drag is integrated directly on mean motion and
// eccentricity, with the mean longitude picking up the integrated rate
// terms. The gravitational secular rates are the same ones SGP4 uses; the
// drag rates come from the bstar ballistic coefficient. Perigees under
// 220 km truncate the drag series to the quadratic rate terms; above that
// the cubic and quartic derivatives are carried too.
type sgp8State struct {
	els  *tle.ElementSet
	geom geomCoef

	aodp, xnodp float64
	xlldot      float64
	omgdot      float64
	xnodot      float64
	xndt        float64 // dn/dt at epoch
	xnddt       float64 // d2n/dt2 at epoch
	xn3dt       float64 // d3n/dt3 at epoch, full drag series only
	xn4dt       float64 // d4n/dt4 at epoch, full drag series only
	edot        float64 // de/dt at epoch
	simple      bool
}

func newSGP8(els *tle.ElementSet) *sgp8State {
	s := &sgp8State{els: els, geom: newGeomCoef(els.Inclination())}
	g := &s.geom

	eo := els.Eccentricity()
	eosq := eo * eo
	betao2 := 1.0 - eosq
	betao := math.Sqrt(betao2)
	s.xnodp, s.aodp = recoverElements(els.MeanMotion(), eo, g.x3thm1)

	// Same 220 km perigee split as SGP4: low perigees keep only the
	// quadratic drag rates.
	s.simple = (s.aodp * (1.0 - eo)) < (220.0/xkmper + 1.0)

	drag := dragParamsFor((s.aodp*(1.0-eo) - 1.0) * xkmper)

	pinvsq := invert(sqr(s.aodp) * sqr(betao2))
	tsi := invert(s.aodp - drag.s4)
	eta := s.aodp * eo * tsi
	etasq := eta * eta
	eeta := eo * eta
	psisq := math.Abs(1.0 - etasq)
	coef := drag.qoms24 * math.Pow(tsi, 4)
	coef1 := coef / math.Pow(psisq, 3.5)
	c2 := coef1 * s.xnodp * (s.aodp*(1.0+1.5*etasq+eeta*(4.0+etasq)) +
		0.75*ck2*tsi/psisq*g.x3thm1*(8.0+3.0*etasq*(8.0+etasq)))
	c1 := els.Bstar() * c2
	c4 := 2.0 * s.xnodp * coef1 * s.aodp * betao2 *
		(eta*(2.0+0.5*etasq) + eo*(0.5+2.0*etasq) -
			2.0*ck2*tsi/(s.aodp*psisq)*
				(-3.0*g.x3thm1*(1.0-2.0*eeta+etasq*(1.5-0.5*eeta))+
					0.75*g.x1mth2*(2.0*etasq-eeta*(1.0+etasq))*math.Cos(2.0*els.ArgumentOfPerigee())))

	// Drag rates on the mean elements. The quadratic terms come from the
	// linear decay of sqrt(a); the full series folds in the d2/d3/d4
	// coefficients the same way SGP4 extends its tempa polynomial.
	s.xndt = 3.0 * s.xnodp * c1
	s.xnddt = 12.0 * s.xnodp * c1 * c1
	s.edot = -els.Bstar() * c4
	if !s.simple {
		c1sq := sqr(c1)
		d2 := 4.0 * s.aodp * tsi * c1sq
		temp := d2 * tsi * c1 / 3.0
		d3 := (17.0*s.aodp + drag.s4) * temp
		d4 := 0.5 * temp * s.aodp * tsi * (221.0*s.aodp + 31.0*drag.s4) * c1
		s.xnddt += 6.0 * s.xnodp * d2
		s.xn3dt = s.xnodp * (60.0*c1*c1sq + 72.0*c1*d2 + 18.0*d3)
		s.xn4dt = s.xnodp * (360.0*sqr(c1sq) + 720.0*c1sq*d2 +
			288.0*c1*d3 + 144.0*d2*d2 + 72.0*d4)
	}

	theta2 := g.cosio * g.cosio
	theta4 := sqr(theta2)
	temp1 := 3.0 * ck2 * pinvsq * s.xnodp
	temp2 := temp1 * ck2 * pinvsq
	temp3 := 1.25 * ck4 * pinvsq * pinvsq * s.xnodp
	s.xlldot = s.xnodp + 0.5*temp1*betao*g.x3thm1 +
		0.0625*temp2*betao*(13.0-78.0*theta2+137.0*theta4)
	x1m5th := 1.0 - 5.0*theta2
	s.omgdot = -0.5*temp1*x1m5th + 0.0625*temp2*(7.0-114.0*theta2+395.0*theta4) +
		temp3*(3.0-36.0*theta2+49.0*theta4)
	xhdot1 := -temp1 * g.cosio
	s.xnodot = xhdot1 + (0.5*temp2*(4.0-19.0*theta2)+2.0*temp3*(3.0-7.0*theta2))*g.cosio

	return s
}

func (s *sgp8State) update(tsince float64) (stateVec, error) {
	// Secular drag on mean motion and eccentricity.
	tsq := sqr(tsince)
	tcube := tsq * tsince
	xn := s.xnodp + s.xndt*tsince + 0.5*s.xnddt*tsq
	xmam := s.els.MeanAnomaly() + s.xlldot*tsince + 0.5*s.xndt*tsq + s.xnddt*tcube/6.0
	if !s.simple {
		tfour := tcube * tsince
		xn += s.xn3dt*tcube/6.0 + s.xn4dt*tfour/24.0
		xmam += s.xn3dt*tfour/24.0 + s.xn4dt*tfour*tsince/120.0
	}
	if xn <= 0 {
		return stateVec{}, &EccentricityError{Model: ModelSGP8, Tsince: tsince, Ecc: 1.0}
	}
	e := s.els.Eccentricity() + s.edot*tsince
	a := math.Pow(xke/xn, tothrd)
	omgas := s.els.ArgumentOfPerigee() + s.omgdot*tsince
	xnodes := s.els.RightAscension() + s.xnodot*tsince
	xl := xmam + omgas + xnodes

	return finishOrbit(ModelSGP8, tsince, a, e, xl, omgas, xnodes, s.els.Inclination(), &s.geom)
}
