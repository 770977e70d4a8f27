package propagation

import (
	"math"

	"github.com/star/orbtrack/internal/tle"
)

// sdp4State is the SGP4 secular core with the deep-space perturbation
// engine layered in, for bodies with periods of 225 minutes and up.
type sdp4State struct {
	els  *tle.ElementSet
	geom geomCoef
	com  dsCommon
	deep *deepSpace

	c1, c4 float64
	t2cof  float64
	xnodcf float64
}

func newSDP4(els *tle.ElementSet) *sdp4State {
	s := &sdp4State{els: els, geom: newGeomCoef(els.Inclination())}
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
	s.c1 = els.Bstar() * c2
	s.c4 = 2.0 * com.xnodp * coef1 * com.aodp * com.betao2 *
		(eta*(2.0+0.5*etasq) + eo*(0.5+2.0*etasq) -
			2.0*ck2*tsi/(com.aodp*psisq)*
				(-3.0*g.x3thm1*(1.0-2.0*eeta+etasq*(1.5-0.5*eeta))+
					0.75*g.x1mth2*(2.0*etasq-eeta*(1.0+etasq))*math.Cos(2.0*els.ArgumentOfPerigee())))

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
	s.xnodcf = 3.5 * com.betao2 * xhdot1 * s.c1
	s.t2cof = 1.5 * s.c1

	s.deep = newDeepSpace(els, com)
	return s
}

func (s *sdp4State) update(tsince float64) (stateVec, error) {
	xmdf := s.els.MeanAnomaly() + s.com.xmdot*tsince
	tsq := tsince * tsince
	templ := s.t2cof * tsq

	el := dsElements{
		xll:    xmdf + s.com.xnodp*templ,
		omgadf: s.els.ArgumentOfPerigee() + s.com.omgdot*tsince,
		xnode:  s.els.RightAscension() + s.com.xnodot*tsince + s.xnodcf*tsq,
		xn:     s.com.xnodp,
		t:      tsince,
	}
	tempa := 1.0 - s.c1*tsince
	tempe := s.els.Bstar() * s.c4 * tsince

	s.deep.secular(tsince, &el)
	if el.xn <= 0 {
		return stateVec{}, &EccentricityError{Model: ModelSDP4, Tsince: tsince, Ecc: el.em}
	}

	a := math.Pow(xke/el.xn, tothrd) * sqr(tempa)
	el.em -= tempe
	s.deep.periodics(&el)

	xl := el.xll + el.omgadf + el.xnode
	return finishOrbit(ModelSDP4, tsince, a, el.em, xl, el.omgadf, el.xnode, el.xinc, &s.geom)
}
