// Package bodies provides low-precision ephemerides for the natural bodies
// the pass detector needs, currently only the Sun.
package bodies

import (
	"math"
	"time"

	"github.com/star/orbtrack/internal/transform"
)

const (
	astronomicalUnitKm = 1.49597870691e8
	earthRadiusKm      = 6378.135

	// SolarRadiusKm is the Sun's physical radius, used for eclipse geometry.
	SolarRadiusKm = 6.96000e5

	twoPi   = 2 * math.Pi
	deg2Rad = math.Pi / 180.0
)

// SunECI returns the Sun's position in the earth-centered inertial frame at
// t, in km. The series is the low-precision solar ephemeris out of the
// classic tracking code; it is good to roughly an arcminute, which is far
// below the half-degree solar disc.
func SunECI(t time.Time) transform.Vec3 {
	mjd := transform.JulianDate(t) - 2415020.0
	year := 1900 + mjd/365.25
	// Terrestrial time offset, seconds.
	deltaEt := 26.465 + 0.747622*(year-1950) + 1.886913*math.Sin(twoPi*(year-1975)/33)
	tt := (mjd + deltaEt/86400.0) / 36525.0

	m := deg2Rad * modDeg(358.47583+modDeg(35999.04975*tt)-(0.000150+0.0000033*tt)*tt*tt)
	l := deg2Rad * modDeg(279.69668+modDeg(36000.76892*tt)+0.0003025*tt*tt)
	e := 0.01675104 - (0.0000418+0.000000126*tt)*tt
	c := deg2Rad * ((1.919460-(0.004789+0.000014*tt)*tt)*math.Sin(m) +
		(0.020094-0.000100*tt)*math.Sin(2*m) +
		0.000293*math.Sin(3*m))
	o := deg2Rad * modDeg(259.18-1934.142*tt)
	lsa := math.Mod(l+c-deg2Rad*(0.00569-0.00479*math.Sin(o)), twoPi)
	nu := math.Mod(m+c, twoPi)
	r := astronomicalUnitKm * 1.0000002 * (1.0 - e*e) / (1.0 + e*math.Cos(nu))
	eps := deg2Rad * (23.452294 - (0.0130125+(0.00000164-0.000000503*tt)*tt)*tt + 0.00256*math.Cos(o))

	return transform.Vec3{
		X: r * math.Cos(lsa),
		Y: r * math.Sin(lsa) * math.Cos(eps),
		Z: r * math.Sin(lsa) * math.Sin(eps),
	}
}

// SunElevationDeg returns the Sun's elevation above the observer's horizon.
func SunElevationDeg(obs transform.Observer, t time.Time) float64 {
	sun := SunECI(t)
	return obs.LookAt(sun, transform.Vec3{}, t).ElevationDeg
}

// Eclipsed reports whether a body at inertial position pos (km) is inside
// the earth's shadow cone at t, along with the eclipse depth in radians.
// Positive depth means the solar disc is fully covered.
func Eclipsed(pos transform.Vec3, t time.Time) (bool, float64) {
	depth, _, possible := ShadowDepth(pos, SunECI(t), SolarRadiusKm)
	return possible && depth >= 0, depth
}

// ShadowDepth computes the eclipse geometry for a body at inertial position
// pos (km) lit by a source at light with the given physical radius. depth is
// the limb coverage in radians (>= 0 means the source's disc is fully behind
// the earth), sdLight the source's angular semidiameter seen from the body.
// possible is false when the earth's disc is too small to cover the source.
func ShadowDepth(pos, light transform.Vec3, lightRadiusKm float64) (depth, sdLight float64, possible bool) {
	sdEarth := math.Asin(earthRadiusKm / pos.Norm())
	rho := light.Sub(pos)
	sdLight = math.Asin(lightRadiusKm / rho.Norm())
	delta := light.Angle(pos.Scale(-1))
	depth = sdEarth - sdLight - delta
	return depth, sdLight, sdEarth >= sdLight
}

// modDeg reduces an angle in degrees to [0, 360).
func modDeg(x float64) float64 {
	x = math.Mod(x, 360.0)
	if x < 0 {
		x += 360.0
	}
	return x
}
