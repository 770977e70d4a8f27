package propagation

import (
	"math"

	"github.com/star/orbtrack/internal/tle"
)

// sdp8State pairs the SGP8 drag formulation with the deep-space
// perturbation engine, mirroring how SDP4 extends SGP4. The same 220 km
// perigee split applies: high-eccentricity deep-space orbits that dip
// under 220 km keep only the quadratic drag rates.
type sdp8State struct {
	els  *tle.ElementSet
	geom geomCoef
	com  dsCommon
	deep *deepSpace

	xndt   float64
	xnddt  float64
	xn3dt  float64
	xn4dt  float64
	edot   float64
	simple bool
}

func newSDP8(els *tle.ElementSet) *sdp8State {
	s := &sdp8State{els: els, geom: newGeomCoef(els.Inclination())}
	g := &s.geom
	com := &s.com

	eo := els.Eccentricity()
	com.cosio = g.cosio
	com.sinio = g.sinio
	com.theta2 = g.cosio * g.cosio
	com.eosq = eo * eo
	com.betao2 = 1.0 - com.eosq
	com.betao = math.Sqrt(com.betao2)
	com.sing = math.Sin(els.ArgumentOfPerigee())
	com.cosg = math.Cos(els.ArgumentOfPerigee())
	com.xnodp, com.aodp = recoverElements(els.MeanMotion(), eo, g.x3thm1)

	s.simple = (com.aodp * (1.0 - eo)) < (220.0/xkmper + 1.0)

	drag := dragParamsFor((com.aodp*(1.0-eo) - 1.0) * xkmper)

	pinvsq := invert(sqr(com.aodp) * sqr(com.betao2))
	tsi := invert(com.aodp - drag.s4)
	eta := com.aodp * eo * tsi
	etasq := eta * eta
	eeta := eo * eta
	psisq := math.Abs(1.0 - etasq)
	coef := drag.qoms24 * math.Pow(tsi, 4)
	coef1 := coef / math.Pow(psisq, 3.5)
	c2 := coef1 * com.xnodp * (com.aodp*(1.0+1.5*etasq+eeta*(4.0+etasq)) +
		0.75*ck2*tsi/psisq*g.x3thm1*(8.0+3.0*etasq*(8.0+etasq)))
	c1 := els.Bstar() * c2
	c4 := 2.0 * com.xnodp * coef1 * com.aodp * com.betao2 *
		(eta*(2.0+0.5*etasq) + eo*(0.5+2.0*etasq) -
			2.0*ck2*tsi/(com.aodp*psisq)*
				(-3.0*g.x3thm1*(1.0-2.0*eeta+etasq*(1.5-0.5*eeta))+
					0.75*g.x1mth2*(2.0*etasq-eeta*(1.0+etasq))*math.Cos(2.0*els.ArgumentOfPerigee())))

	s.xndt = 3.0 * com.xnodp * c1
	s.xnddt = 12.0 * com.xnodp * c1 * c1
	s.edot = -els.Bstar() * c4
	if !s.simple {
		c1sq := sqr(c1)
		d2 := 4.0 * com.aodp * tsi * c1sq
		temp := d2 * tsi * c1 / 3.0
		d3 := (17.0*com.aodp + drag.s4) * temp
		d4 := 0.5 * temp * com.aodp * tsi * (221.0*com.aodp + 31.0*drag.s4) * c1
		s.xnddt += 6.0 * com.xnodp * d2
		s.xn3dt = com.xnodp * (60.0*c1*c1sq + 72.0*c1*d2 + 18.0*d3)
		s.xn4dt = com.xnodp * (360.0*sqr(c1sq) + 720.0*c1sq*d2 +
			288.0*c1*d3 + 144.0*d2*d2 + 72.0*d4)
	}

	theta4 := sqr(com.theta2)
	temp1 := 3.0 * ck2 * pinvsq * com.xnodp
	temp2 := temp1 * ck2 * pinvsq
	temp3 := 1.25 * ck4 * pinvsq * pinvsq * com.xnodp
	com.xmdot = com.xnodp + 0.5*temp1*com.betao*g.x3thm1 +
		0.0625*temp2*com.betao*(13.0-78.0*com.theta2+137.0*theta4)
	x1m5th := 1.0 - 5.0*com.theta2
	com.omgdot = -0.5*temp1*x1m5th + 0.0625*temp2*(7.0-114.0*com.theta2+395.0*theta4) +
		temp3*(3.0-36.0*com.theta2+49.0*theta4)
	xhdot1 := -temp1 * com.cosio
	com.xnodot = xhdot1 +
		(0.5*temp2*(4.0-19.0*com.theta2)+2.0*temp3*(3.0-7.0*com.theta2))*com.cosio

	s.deep = newDeepSpace(els, com)
	return s
}

func (s *sdp8State) update(tsince float64) (stateVec, error) {
	el := dsElements{
		xll:    s.els.MeanAnomaly() + s.com.xmdot*tsince,
		omgadf: s.els.ArgumentOfPerigee() + s.com.omgdot*tsince,
		xnode:  s.els.RightAscension() + s.com.xnodot*tsince,
		xn:     s.com.xnodp,
		t:      tsince,
	}

	s.deep.secular(tsince, &el)
	if el.xn <= 0 {
		return stateVec{}, &EccentricityError{Model: ModelSDP8, Tsince: tsince, Ecc: el.em}
	}

	// Drag on the deep-space mean motion, SGP8 style.
	tsq := sqr(tsince)
	xn := el.xn + s.xndt*tsince + 0.5*s.xnddt*tsq
	if !s.simple {
		tcube := tsq * tsince
		xn += s.xn3dt*tcube/6.0 + s.xn4dt*tcube*tsince/24.0
	}
	if xn <= 0 {
		return stateVec{}, &EccentricityError{Model: ModelSDP8, Tsince: tsince, Ecc: el.em}
	}
	a := math.Pow(xke/xn, tothrd)
	el.em += s.edot * tsince

	s.deep.periodics(&el)

	xl := el.xll + el.omgadf + el.xnode
	return finishOrbit(ModelSDP8, tsince, a, el.em, xl, el.omgadf, el.xnode, el.xinc, &s.geom)
}
