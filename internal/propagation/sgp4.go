package propagation

import (
	"math"

	"github.com/star/orbtrack/internal/tle"
)

// sgp4State holds the initialized SGP4 coefficients for one element-set
// revision. The model is the standard near-earth one: secular gravity and
// drag, the simplified branch for perigees under 220 km, then the common
// long- and short-period reconstruction.
type sgp4State struct {
	els  *tle.ElementSet
	geom geomCoef

	aodp, xnodp float64
	eta         float64
	c1, c4, c5  float64
	d2, d3, d4  float64
	delmo       float64
	sinmo       float64
	omgcof      float64
	xmcof       float64
	xnodcf      float64
	t2cof       float64
	t3cof       float64
	t4cof       float64
	t5cof       float64
	xmdot       float64
	omgdot      float64
	xnodot      float64
	simple      bool
}

func newSGP4(els *tle.ElementSet) *sgp4State {
	s := &sgp4State{els: els, geom: newGeomCoef(els.Inclination())}
	g := &s.geom

	eo := els.Eccentricity()
	eosq := eo * eo
	betao2 := 1.0 - eosq
	betao := math.Sqrt(betao2)
	s.xnodp, s.aodp = recoverElements(els.MeanMotion(), eo, g.x3thm1)

	// Perigee below 220 km truncates the drag series to linear variation
	// in sqrt(a) and quadratic in mean anomaly.
	s.simple = (s.aodp * (1.0 - eo)) < (220.0/xkmper + 1.0)

	drag := dragParamsFor((s.aodp*(1.0-eo) - 1.0) * xkmper)

	pinvsq := invert(sqr(s.aodp) * sqr(betao2))
	tsi := invert(s.aodp - drag.s4)
	s.eta = s.aodp * eo * tsi
	etasq := s.eta * s.eta
	eeta := eo * s.eta
	psisq := math.Abs(1.0 - etasq)
	coef := drag.qoms24 * math.Pow(tsi, 4)
	coef1 := coef / math.Pow(psisq, 3.5)
	bstar := els.Bstar()
	c2 := coef1 * s.xnodp * (s.aodp*(1.0+1.5*etasq+eeta*(4.0+etasq)) +
		0.75*ck2*tsi/psisq*g.x3thm1*(8.0+3.0*etasq*(8.0+etasq)))
	s.c1 = bstar * c2
	a3ovk2 := -xj3 / ck2
	c3 := coef * tsi * a3ovk2 * s.xnodp * g.sinio / eo

	omegao := els.ArgumentOfPerigee()
	s.c4 = 2.0 * s.xnodp * coef1 * s.aodp * betao2 *
		(s.eta*(2.0+0.5*etasq) + eo*(0.5+2.0*etasq) -
			2.0*ck2*tsi/(s.aodp*psisq)*
				(-3.0*g.x3thm1*(1.0-2.0*eeta+etasq*(1.5-0.5*eeta))+
					0.75*g.x1mth2*(2.0*etasq-eeta*(1.0+etasq))*math.Cos(2.0*omegao)))
	s.c5 = 2.0 * coef1 * s.aodp * betao2 * (1.0 + 2.75*(etasq+eeta) + eeta*etasq)

	theta2 := g.cosio * g.cosio
	theta4 := sqr(theta2)
	temp1 := 3.0 * ck2 * pinvsq * s.xnodp
	temp2 := temp1 * ck2 * pinvsq
	temp3 := 1.25 * ck4 * pinvsq * pinvsq * s.xnodp
	s.xmdot = s.xnodp + 0.5*temp1*betao*g.x3thm1 +
		0.0625*temp2*betao*(13.0-78.0*theta2+137.0*theta4)
	x1m5th := 1.0 - 5.0*theta2
	s.omgdot = -0.5*temp1*x1m5th + 0.0625*temp2*(7.0-114.0*theta2+395.0*theta4) +
		temp3*(3.0-36.0*theta2+49.0*theta4)
	xhdot1 := -temp1 * g.cosio
	s.xnodot = xhdot1 + (0.5*temp2*(4.0-19.0*theta2)+2.0*temp3*(3.0-7.0*theta2))*g.cosio
	s.omgcof = bstar * c3 * math.Cos(omegao)
	s.xmcof = -tothrd * coef * bstar / eeta
	s.xnodcf = 3.5 * betao2 * xhdot1 * s.c1
	s.t2cof = 1.5 * s.c1
	xmo := els.MeanAnomaly()
	s.delmo = math.Pow(1.0+s.eta*math.Cos(xmo), 3)
	s.sinmo = math.Sin(xmo)

	if !s.simple {
		c1sq := sqr(s.c1)
		s.d2 = 4.0 * s.aodp * tsi * c1sq
		temp := s.d2 * tsi * s.c1 / 3.0
		s.d3 = (17.0*s.aodp + drag.s4) * temp
		s.d4 = 0.5 * temp * s.aodp * tsi * (221.0*s.aodp + 31.0*drag.s4) * s.c1
		s.t3cof = s.d2 + 2.0*c1sq
		s.t4cof = 0.25 * (3.0*s.d3 + s.c1*(12.0*s.d2+10.0*c1sq))
		s.t5cof = 0.2 * (3.0*s.d4 + 12.0*s.c1*s.d3 + 6.0*s.d2*s.d2 + 15.0*c1sq*(2.0*s.d2+c1sq))
	}

	return s
}

func (s *sgp4State) update(tsince float64) (stateVec, error) {
	// Update for secular gravity and atmospheric drag.
	xmdf := s.els.MeanAnomaly() + s.xmdot*tsince
	omgadf := s.els.ArgumentOfPerigee() + s.omgdot*tsince
	xnoddf := s.els.RightAscension() + s.xnodot*tsince
	omega := omgadf
	xmp := xmdf
	tsq := sqr(tsince)
	xnode := xnoddf + s.xnodcf*tsq
	bstar := s.els.Bstar()
	tempa := 1.0 - s.c1*tsince
	tempe := bstar * s.c4 * tsince
	templ := s.t2cof * tsq

	if !s.simple {
		delomg := s.omgcof * tsince
		delm := s.xmcof * (math.Pow(1.0+s.eta*math.Cos(xmdf), 3) - s.delmo)
		temp := delomg + delm
		xmp = xmdf + temp
		omega = omgadf - temp
		tcube := tsq * tsince
		tfour := tsince * tcube
		tempa = tempa - s.d2*tsq - s.d3*tcube - s.d4*tfour
		tempe = tempe + bstar*s.c5*(math.Sin(xmp)-s.sinmo)
		templ = templ + s.t3cof*tcube + tfour*(s.t4cof+tsince*s.t5cof)
	}

	a := s.aodp * sqr(tempa)
	e := s.els.Eccentricity() - tempe
	xl := xmp + omega + xnode + s.xnodp*templ

	return finishOrbit(ModelSGP4, tsince, a, e, xl, omega, xnode, s.els.Inclination(), &s.geom)
}
