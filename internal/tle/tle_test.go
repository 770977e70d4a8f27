package tle

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"
)

const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseOne(t *testing.T, data string) *ElementSet {
	t.Helper()
	entries, err := Parse(strings.NewReader(data), testLogger())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("parsed %d entries, want 1", len(entries))
	}
	return entries[0]
}

func TestParseISS(t *testing.T) {
	e := parseOne(t, issName+"\n"+issLine1+"\n"+issLine2+"\n")

	if e.NORADID != 25544 {
		t.Errorf("NORADID = %d, want 25544", e.NORADID)
	}
	if e.Name != issName {
		t.Errorf("Name = %q, want %q", e.Name, issName)
	}
	if e.IntlDesignator != "98067A" {
		t.Errorf("IntlDesignator = %q, want 98067A", e.IntlDesignator)
	}
	if e.SetNum != 292 {
		t.Errorf("SetNum = %d, want 292", e.SetNum)
	}
	if e.OrbitNum != 56353 {
		t.Errorf("OrbitNum = %d, want 56353", e.OrbitNum)
	}

	approx := func(name string, got, want, tol float64) {
		t.Helper()
		if math.Abs(got-want) > tol {
			t.Errorf("%s = %.10g, want %.10g", name, got, want)
		}
	}
	approx("inclination", e.Inclination(), 51.6416*math.Pi/180, 1e-12)
	approx("right ascension", e.RightAscension(), 247.4627*math.Pi/180, 1e-12)
	approx("eccentricity", e.Eccentricity(), 0.0006703, 1e-12)
	approx("argument of perigee", e.ArgumentOfPerigee(), 130.5360*math.Pi/180, 1e-12)
	approx("mean anomaly", e.MeanAnomaly(), 325.0288*math.Pi/180, 1e-12)
	approx("mean motion", e.MeanMotion(), 15.72125391*2*math.Pi/1440, 1e-12)
	approx("ndot/2", e.NdotOver2(), -0.00002182*2*math.Pi/(1440*1440), 1e-18)
	approx("bstar", e.Bstar(), -0.11606e-4, 1e-12)
	approx("packed epoch", e.EpochDays(), 8264.51782528, 1e-8)

	wantEpoch := time.Date(2008, 9, 20, 12, 25, 40, 0, time.UTC)
	if d := e.Epoch().Sub(wantEpoch); d < -time.Second || d > time.Second {
		t.Errorf("epoch = %v, want %v +-1s", e.Epoch(), wantEpoch)
	}
}

func TestParseBareTwoLine(t *testing.T) {
	e := parseOne(t, issLine1+"\n"+issLine2+"\n")
	if e.Name != "" {
		t.Errorf("Name = %q, want empty", e.Name)
	}
	if e.NORADID != 25544 {
		t.Errorf("NORADID = %d, want 25544", e.NORADID)
	}
}

func TestParseSkipsMalformed(t *testing.T) {
	data := "GARBAGE ENTRY\nnot a line one\n" + issName + "\n" + issLine1 + "\n" + issLine2 + "\n"
	entries, err := Parse(strings.NewReader(data), testLogger())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 || entries[0].NORADID != 25544 {
		t.Fatalf("entries = %v, want just the ISS", entries)
	}
}

func TestParseExponentField(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{" 00000-0", 0},
		{" 78676-4", 0.78676e-4},
		{"-11606-4", -0.11606e-4},
		{" 12345+2", 0.12345e+2},
		{"        ", 0},
	}
	for _, tt := range tests {
		got, err := parseExponentField(tt.in)
		if err != nil {
			t.Errorf("parseExponentField(%q): %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > math.Abs(tt.want)*1e-12+1e-18 {
			t.Errorf("parseExponentField(%q) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestParseEpochCentury(t *testing.T) {
	tests := []struct {
		in       string
		wantYear int
	}{
		{"08264.51782528", 2008},
		{"56001.00000000", 2056},
		{"57001.00000000", 1957},
		{"99365.50000000", 1999},
	}
	for _, tt := range tests {
		epoch, _, err := parseEpoch(tt.in)
		if err != nil {
			t.Errorf("parseEpoch(%q): %v", tt.in, err)
			continue
		}
		if epoch.Year() != tt.wantYear {
			t.Errorf("parseEpoch(%q) year = %d, want %d", tt.in, epoch.Year(), tt.wantYear)
		}
	}
}

func TestClassification(t *testing.T) {
	iss := parseOne(t, issLine1+"\n"+issLine2+"\n")
	if iss.IsDeep() {
		t.Error("ISS classified deep-space")
	}
	if p := iss.Period(); p < 90*time.Minute || p > 95*time.Minute {
		t.Errorf("ISS period = %v, want ~92m", p)
	}

	geo := &ElementSet{NORADID: 1}
	geo.SetEpoch(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 26001.0)
	geo.SetInclination(0.1)
	geo.SetEccentricity(0.0003)
	geo.SetMeanMotionRevsPerDay(1.0027)
	if !geo.IsDeep() {
		t.Error("GEO body not classified deep-space")
	}
	if p := geo.Period(); p < 23*time.Hour || p > 25*time.Hour {
		t.Errorf("GEO period = %v, want ~24h", p)
	}
}

func TestRevisionHooks(t *testing.T) {
	e := parseOne(t, issLine1+"\n"+issLine2+"\n")
	rev := e.Revision()

	// Display metadata carries no revision hook.
	e.Name = "RENAMED"
	if e.Revision() != rev {
		t.Error("display field mutation bumped the revision")
	}

	// Model-relevant setters bump it and drop the cached classification.
	wasDeep := e.IsDeep()
	e.SetMeanMotionRevsPerDay(1.0027)
	if e.Revision() == rev {
		t.Error("SetMeanMotion did not bump the revision")
	}
	if e.IsDeep() == wasDeep {
		t.Error("classification not recomputed after mean motion change")
	}

	rev = e.Revision()
	e.SetBstar(1e-4)
	if e.Revision() == rev {
		t.Error("SetBstar did not bump the revision")
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	if s.Get() != nil {
		t.Error("fresh store not empty")
	}
	if s.AgeSeconds() != -1 {
		t.Errorf("empty store age = %v, want -1", s.AgeSeconds())
	}

	ds := &Dataset{
		Source:   "test",
		LoadedAt: time.Now().Add(-2 * time.Second),
	}
	s.Set(ds)
	if got := s.Get(); got != ds {
		t.Errorf("Get = %v, want %v", got, ds)
	}
	if age := s.AgeSeconds(); age < 1.5 || age > 30 {
		t.Errorf("age = %v, want ~2s", age)
	}
}
