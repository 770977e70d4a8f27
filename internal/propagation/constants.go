package propagation

import "math"

// WGS-72 constant set from the NORAD model papers. Distances are in earth
// radii and angles in radians unless a name says otherwise; time is minutes.
const (
	twoPi  = 2 * math.Pi
	tothrd = 2.0 / 3.0

	xkmper = 6378.135 // earth equatorial radius, km
	xmnpda = 1440.0   // minutes per day

	xke    = 0.743669161e-1
	ck2    = 5.413080e-4 // 0.5 * J2
	ck4    = 0.62098875e-6
	xj3    = -0.253881e-5 // J3 harmonic
	qoms2t = 1.88027916e-9
	sParam = 1.01222928

	// Kepler iteration.
	e6a = 1.0e-6

	// Density-function boundary for the drag coefficient rework.
	perigee156Km = 156.0
)

// Lunar and solar constants for the deep-space perturbation terms.
const (
	zns    = 1.19459e-5
	c1ss   = 2.9864797e-6
	zes    = 1.675e-2
	znl    = 1.5835218e-4
	c1l    = 4.7968065e-7
	zel    = 5.490e-2
	zcosis = 9.1744867e-1
	zsinis = 3.9785416e-1
	zsings = -9.8088458e-1
	zcosgs = 1.945905e-1

	thdt = 4.3752691e-3 // earth rotation, rad/min

	root22 = 1.7891679e-6
	root32 = 3.7393792e-7
	root44 = 7.3636953e-9
	root52 = 1.1428639e-7
	root54 = 2.1765803e-9

	q22 = 1.7891679e-6
	q31 = 2.1460748e-6
	q33 = 2.2123015e-7

	g22 = 5.7686396
	g32 = 9.5240898e-1
	g44 = 1.8014998
	g52 = 1.0508330
	g54 = 4.4108898

	fasx2 = 0.13130908
	fasx4 = 2.8843198
	fasx6 = 0.37448087

	// Resonance integrator step sizes, minutes.
	stepp = 720.0
	stepn = -720.0
	step2 = 259200.0
)

func sqr(x float64) float64 { return x * x }

func invert(x float64) float64 { return 1.0 / x }

func mod2Pi(x float64) float64 {
	x = math.Mod(x, twoPi)
	if x < 0 {
		x += twoPi
	}
	return x
}
