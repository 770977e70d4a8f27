package bodies

import (
	"math"
	"testing"
	"time"

	"github.com/star/orbtrack/internal/transform"
)

// TestSunECIDistance checks the Sun distance stays near one AU year round,
// closest in early January and farthest in early July.
func TestSunECIDistance(t *testing.T) {
	perihelion := SunECI(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)).Norm()
	aphelion := SunECI(time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)).Norm()

	if perihelion < 1.46e8 || perihelion > 1.48e8 {
		t.Errorf("perihelion distance = %.4e km, want ~1.471e8", perihelion)
	}
	if aphelion < 1.51e8 || aphelion > 1.53e8 {
		t.Errorf("aphelion distance = %.4e km, want ~1.521e8", aphelion)
	}
	if perihelion >= aphelion {
		t.Errorf("perihelion %.4e not closer than aphelion %.4e", perihelion, aphelion)
	}
}

// TestSunDeclination checks the seasonal swing of the Sun's declination.
func TestSunDeclination(t *testing.T) {
	tests := []struct {
		name  string
		time  time.Time
		decLo float64 // degrees
		decHi float64
	}{
		{"june solstice", time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC), 23.0, 23.6},
		{"december solstice", time.Date(2026, 12, 21, 12, 0, 0, 0, time.UTC), -23.6, -23.0},
		{"march equinox", time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC), -1.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sun := SunECI(tt.time)
			dec := math.Asin(sun.Z/sun.Norm()) * 180.0 / math.Pi
			if dec < tt.decLo || dec > tt.decHi {
				t.Errorf("declination = %.3f deg, want [%.1f, %.1f]", dec, tt.decLo, tt.decHi)
			}
		})
	}
}

// TestSunElevationDayNight checks the Sun is up at local noon and down at
// local midnight for a mid-latitude station.
func TestSunElevationDayNight(t *testing.T) {
	obs := transform.NewObserver(40.0, 0.0, 0)

	noon := SunElevationDeg(obs, time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC))
	if noon < 50 {
		t.Errorf("noon elevation = %.2f deg, want > 50", noon)
	}

	midnight := SunElevationDeg(obs, time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC))
	if midnight > -10 {
		t.Errorf("midnight elevation = %.2f deg, want < -10", midnight)
	}
}

// TestEclipsed probes the shadow test with hand-placed geometry: a body on
// the anti-solar axis is eclipsed, a body on the sunward side is lit.
func TestEclipsed(t *testing.T) {
	when := time.Date(2026, 4, 10, 3, 0, 0, 0, time.UTC)
	sun := SunECI(when)
	sunDir := sun.Scale(1.0 / sun.Norm())

	// Low orbit directly behind the earth.
	shadowed := sunDir.Scale(-6800.0)
	if ecl, depth := Eclipsed(shadowed, when); !ecl {
		t.Errorf("anti-solar body not eclipsed (depth=%.5f)", depth)
	}

	// Same altitude on the sunward side.
	lit := sunDir.Scale(6800.0)
	if ecl, _ := Eclipsed(lit, when); ecl {
		t.Error("sunward body reported eclipsed")
	}

	// Well off axis at geostationary distance stays lit.
	side := transform.Vec3{X: -sunDir.Y, Y: sunDir.X, Z: 0}
	side = side.Scale(42164.0 / side.Norm())
	if ecl, _ := Eclipsed(side, when); ecl {
		t.Error("off-axis GEO body reported eclipsed")
	}
}
