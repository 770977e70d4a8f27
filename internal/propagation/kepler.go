package propagation

import "math"

// kepler holds the converged trig terms of Kepler's equation in the
// axn/ayn long-period formulation.
type kepler struct {
	sinepw, cosepw float64
	ecose, esine   float64
}

// solveKepler iterates Kepler's equation for the eccentric anomaly given
// the long-period elements axn, ayn and the mean argument capu. At most
// ten Newton steps are taken; if the residual never drops below the
// tolerance the last estimate is kept, matching the classic tracking
// code's behavior of returning its best value rather than failing.
func solveKepler(axn, ayn, capu float64) kepler {
	var k kepler
	epw := capu
	for i := 0; i < 10; i++ {
		k.sinepw = math.Sin(epw)
		k.cosepw = math.Cos(epw)
		k.ecose = axn*k.cosepw + ayn*k.sinepw
		k.esine = axn*k.sinepw - ayn*k.cosepw
		next := epw + (capu+k.esine-epw)/(1.0-k.ecose)
		if math.Abs(next-epw) <= e6a {
			break
		}
		epw = next
	}
	return k
}
