package transform

import (
	"math"
	"testing"
	"time"
)

// TestJulianDate verifies our Julian Date calculation against known values.
func TestJulianDate(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected float64
	}{
		{
			name:     "J2000.0 epoch",
			time:     time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
			expected: 2451545.0,
		},
		{
			name:     "Unix epoch",
			time:     time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: 2440587.5,
		},
		{
			// Vallado Example 3-15: April 6, 2004, 07:51:28.386 UTC
			name:     "Vallado example date",
			time:     time.Date(2004, 4, 6, 7, 51, 28, 386009000, time.UTC),
			expected: 2453101.827411875,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDate(tt.time)
			diff := math.Abs(got - tt.expected)
			if diff > 1e-6 {
				t.Errorf("JulianDate(%v) = %.10f, want %.10f (diff=%.2e)", tt.time, got, tt.expected, diff)
			}
		})
	}
}

// TestGMST validates the IAU-82 sidereal angle against published values:
// Meeus "Astronomical Algorithms" examples 12.a and 12.b, and Vallado
// example 3-5.
func TestGMST(t *testing.T) {
	tests := []struct {
		name    string
		time    time.Time
		wantDeg float64
	}{
		{
			// Meeus 12.a: GMST 13h 10m 46.3668s.
			name:    "Meeus 1987 midnight",
			time:    time.Date(1987, 4, 10, 0, 0, 0, 0, time.UTC),
			wantDeg: (13.0 + 10.0/60.0 + 46.3668/3600.0) * 15.0,
		},
		{
			// Meeus 12.b: GMST 8h 34m 57.0896s.
			name:    "Meeus 1987 evening",
			time:    time.Date(1987, 4, 10, 19, 21, 0, 0, time.UTC),
			wantDeg: (8.0 + 34.0/60.0 + 57.0896/3600.0) * 15.0,
		},
		{
			name:    "Vallado 1992",
			time:    time.Date(1992, 8, 20, 12, 14, 0, 0, time.UTC),
			wantDeg: 152.578787810,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GMST(tt.time)
			want := tt.wantDeg * math.Pi / 180.0

			diff := math.Abs(got - want)
			// 1e-6 radians is about 0.2 arcseconds.
			if diff > 1e-6 {
				t.Errorf("GMST(%v) = %.12f rad, want %.12f rad (diff=%.2e)", tt.time, got, want, diff)
			}
		})
	}
}

// TestObserverECI sanity-checks the station ECI position against the geoid.
func TestObserverECI(t *testing.T) {
	when := time.Date(2026, 3, 21, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		obs      Observer
		radiusLo float64 // km
		radiusHi float64
	}{
		{"equator sea level", NewObserver(0, 0, 0), 6378.0, 6378.3},
		{"north pole", NewObserver(90, 0, 0), 6356.5, 6356.9},
		{"mid latitude 2km up", NewObserver(45, -75, 2000), 6366.0, 6371.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, vel := tt.obs.ECIAt(when)
			r := pos.Norm()
			if r < tt.radiusLo || r > tt.radiusHi {
				t.Errorf("station radius = %.3f km, want [%.1f, %.1f]", r, tt.radiusLo, tt.radiusHi)
			}
			// Velocity is eastward rotation only; no vertical component.
			if vel.Z != 0 {
				t.Errorf("station VZ = %g, want 0", vel.Z)
			}
			wantSpeed := mfactor * math.Hypot(pos.X, pos.Y)
			if diff := math.Abs(vel.Norm() - wantSpeed); diff > 1e-9 {
				t.Errorf("station speed = %.9f km/s, want %.9f", vel.Norm(), wantSpeed)
			}
		})
	}
}

// TestLookAtZenith places a body on the station's local vertical and checks
// the elevation comes out at 90 degrees.
func TestLookAtZenith(t *testing.T) {
	obs := NewObserver(30, 45, 0)
	when := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	pos, vel := obs.ECIAt(when)
	// 500 km straight up along the station radial.
	sat := pos.Scale((pos.Norm() + 500.0) / pos.Norm())

	la := obs.LookAt(sat, vel, when)
	if math.Abs(la.ElevationDeg-90.0) > 0.2 {
		t.Errorf("elevation = %.3f deg, want ~90", la.ElevationDeg)
	}
	if math.Abs(la.RangeKm-500.0) > 2.0 {
		t.Errorf("range = %.3f km, want ~500", la.RangeKm)
	}
	// Station and body co-rotate, so the range rate is near zero.
	if math.Abs(la.RangeRateKmS) > 0.05 {
		t.Errorf("range rate = %.4f km/s, want ~0", la.RangeRateKmS)
	}
}

// TestToGeodetic converts a station's own ECI position back to geodetic
// coordinates and expects to recover the station location.
func TestToGeodetic(t *testing.T) {
	tests := []struct {
		name   string
		latDeg float64
		lonDeg float64
		altM   float64
	}{
		{"greenwich", 51.4769, 0.0, 45},
		{"southern hemisphere", -33.8688, 151.2093, 20},
		{"high altitude", 27.9881, 86.925, 8848},
		{"date line west", 10.0, -179.5, 0},
	}

	when := time.Date(2026, 7, 4, 18, 30, 0, 0, time.UTC)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := NewObserver(tt.latDeg, tt.lonDeg, tt.altM)
			pos, _ := obs.ECIAt(when)
			g := ToGeodetic(pos, when)

			if diff := math.Abs(g.LatDeg - tt.latDeg); diff > 0.01 {
				t.Errorf("lat = %.5f, want %.5f (diff=%.2e)", g.LatDeg, tt.latDeg, diff)
			}
			lonDiff := math.Abs(g.LonDeg - tt.lonDeg)
			if lonDiff > 180 {
				lonDiff = 360 - lonDiff
			}
			if lonDiff > 0.01 {
				t.Errorf("lon = %.5f, want %.5f (diff=%.2e)", g.LonDeg, tt.lonDeg, lonDiff)
			}
			if diff := math.Abs(g.AltKm - tt.altM/1000.0); diff > 0.05 {
				t.Errorf("alt = %.4f km, want %.4f", g.AltKm, tt.altM/1000.0)
			}
		})
	}
}

// TestSeparation checks angular separation between look directions.
func TestSeparation(t *testing.T) {
	tests := []struct {
		name string
		a, b LookAngles
		want float64
	}{
		{"coincident", LookAngles{AzimuthDeg: 120, ElevationDeg: 40}, LookAngles{AzimuthDeg: 120, ElevationDeg: 40}, 0},
		{"elevation only", LookAngles{AzimuthDeg: 0, ElevationDeg: 10}, LookAngles{AzimuthDeg: 0, ElevationDeg: 70}, 60},
		{"opposite horizon", LookAngles{AzimuthDeg: 0, ElevationDeg: 0}, LookAngles{AzimuthDeg: 180, ElevationDeg: 0}, 180},
		{"zenith vs horizon", LookAngles{AzimuthDeg: 270, ElevationDeg: 90}, LookAngles{AzimuthDeg: 45, ElevationDeg: 0}, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Separation(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Separation = %.8f deg, want %.8f", got, tt.want)
			}
		})
	}
}
