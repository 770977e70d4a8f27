package transform

import (
	"math"
	"time"
)

// Geodetic is a latitude/longitude/altitude fix on the WGS-72 geoid.
type Geodetic struct {
	LatDeg float64 // +North
	LonDeg float64 // +East, [-180, 180)
	AltKm  float64 // above the reference ellipsoid
}

// ToGeodetic converts an inertial position (km) at time t to geodetic
// coordinates. Latitude is solved by fixed-point iteration on the
// ellipsoidal correction; ten rounds is more than enough to reach
// sub-meter agreement.
func ToGeodetic(pos Vec3, t time.Time) Geodetic {
	theta := math.Atan2(pos.Y, pos.X)
	lon := math.Mod(theta-GMST(t), 2*math.Pi)
	if lon < 0 {
		lon += 2 * math.Pi
	}
	if lon >= math.Pi {
		lon -= 2 * math.Pi
	}

	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y)
	e2 := flattening * (2.0 - flattening)
	lat := math.Atan2(pos.Z, r)

	var c float64
	for i := 0; i < 10; i++ {
		phi := lat
		sinPhi := math.Sin(phi)
		c = 1.0 / math.Sqrt(1.0-e2*sinPhi*sinPhi)
		lat = math.Atan2(pos.Z+earthRadiusKm*c*e2*sinPhi, r)
		if math.Abs(lat-phi) < 1e-10 {
			break
		}
	}
	alt := r/math.Cos(lat) - earthRadiusKm*c

	return Geodetic{
		LatDeg: lat * 180.0 / math.Pi,
		LonDeg: lon * 180.0 / math.Pi,
		AltKm:  alt,
	}
}
