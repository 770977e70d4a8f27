package transform

import (
	"math"
	"time"
)

// WGS-72 geoid parameters, matching the constant set the propagators use.
const (
	earthRadiusKm = 6378.135
	flattening    = 3.35281066474748e-3 // 1/298.26
	mfactor       = 7.292115e-5         // earth rotation, rad/s
)

// Vec3 is a Cartesian triple in the earth-centered inertial frame, km or km/s.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

// Dot returns the scalar product.
func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Norm returns the Euclidean magnitude.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Scale returns v scaled by k.
func (v Vec3) Scale(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }

// Angle returns the angle between v and w in radians.
func (v Vec3) Angle(w Vec3) float64 {
	c := v.Dot(w) / (v.Norm() * w.Norm())
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// LookAngles holds the topocentric view of a body from an observer.
type LookAngles struct {
	AzimuthDeg   float64 // 0 = North, clockwise
	ElevationDeg float64 // 0 = horizon, 90 = zenith
	RangeKm      float64
	RangeRateKmS float64
}

// Observer is a ground station at a fixed geodetic location.
type Observer struct {
	LatRad, LonRad float64
	AltM           float64
}

// NewObserver creates an Observer from geodetic coordinates.
// Latitude and longitude are in degrees, altitude in meters above the geoid.
func NewObserver(latDeg, lonDeg, altM float64) Observer {
	return Observer{
		LatRad: latDeg * math.Pi / 180.0,
		LonRad: lonDeg * math.Pi / 180.0,
		AltM:   altM,
	}
}

// theta returns the observer's local sidereal angle at t.
func (o Observer) theta(t time.Time) float64 {
	th := GMST(t) + o.LonRad
	th = math.Mod(th, 2*math.Pi)
	if th < 0 {
		th += 2 * math.Pi
	}
	return th
}

// ECIAt returns the observer's inertial position (km) and velocity (km/s) at
// t, treating the station as fixed to the rotating oblate geoid.
//
// Reference: The 1992 Astronomical Almanac, page K11.
func (o Observer) ECIAt(t time.Time) (pos, vel Vec3) {
	theta := o.theta(t)
	sinLat := math.Sin(o.LatRad)
	cosLat := math.Cos(o.LatRad)

	c := 1.0 / math.Sqrt(1.0+flattening*(flattening-2.0)*sinLat*sinLat)
	sq := (1.0 - flattening) * (1.0 - flattening) * c
	achcp := (earthRadiusKm*c + o.AltM/1000.0) * cosLat

	pos = Vec3{
		X: achcp * math.Cos(theta),
		Y: achcp * math.Sin(theta),
		Z: (earthRadiusKm*sq + o.AltM/1000.0) * sinLat,
	}
	// Station velocity is omega x r with omega the sidereal rotation rate.
	vel = Vec3{X: -mfactor * pos.Y, Y: mfactor * pos.X, Z: 0}
	return pos, vel
}

// LookAt computes azimuth, elevation, range and range rate from the observer
// to a body at inertial position satPos (km) and velocity satVel (km/s).
//
// Uses the south-east-zenith topocentric rotation; azimuth is measured
// clockwise from North.
func (o Observer) LookAt(satPos, satVel Vec3, t time.Time) LookAngles {
	obsPos, obsVel := o.ECIAt(t)
	theta := o.theta(t)

	rng := satPos.Sub(obsPos)
	rngVel := satVel.Sub(obsVel)
	rngMag := rng.Norm()

	sinLat := math.Sin(o.LatRad)
	cosLat := math.Cos(o.LatRad)
	sinTheta := math.Sin(theta)
	cosTheta := math.Cos(theta)

	topS := sinLat*cosTheta*rng.X + sinLat*sinTheta*rng.Y - cosLat*rng.Z
	topE := -sinTheta*rng.X + cosTheta*rng.Y
	topZ := cosLat*cosTheta*rng.X + cosLat*sinTheta*rng.Y + sinLat*rng.Z

	az := math.Atan2(topE, -topS)
	if az < 0 {
		az += 2 * math.Pi
	}
	el := math.Asin(topZ / rngMag)

	return LookAngles{
		AzimuthDeg:   az * 180.0 / math.Pi,
		ElevationDeg: el * 180.0 / math.Pi,
		RangeKm:      rngMag,
		RangeRateKmS: rng.Dot(rngVel) / rngMag,
	}
}

// Separation returns the angular separation in degrees between two
// observer-relative directions given as look angles.
func Separation(a, b LookAngles) float64 {
	ua := unitFromAzEl(a)
	ub := unitFromAzEl(b)
	return ua.Angle(ub) * 180.0 / math.Pi
}

func unitFromAzEl(la LookAngles) Vec3 {
	az := la.AzimuthDeg * math.Pi / 180.0
	el := la.ElevationDeg * math.Pi / 180.0
	return Vec3{
		X: math.Cos(el) * math.Sin(az),
		Y: math.Cos(el) * math.Cos(az),
		Z: math.Sin(el),
	}
}
