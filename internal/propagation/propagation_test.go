package propagation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/gonum/floats"

	"github.com/star/orbtrack/internal/tle"
)

const issTLE = `ISS (ZARYA)
1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927
2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537`

// The classic near-earth and deep-space propagator test cases. The 88888
// orbit is the ~16 revs/day low-perigee set; 11801 is the highly eccentric
// 12-hour set that exercises the deep-space path.
const nearRefTLE = `1 88888U          80275.98708465  .00073094  13844-3  66816-4 0    86
2 88888  72.8435 115.9689 0086731  52.6988 110.5714 16.05824518  1056`

const deepRefTLE = `1 11801U          80230.29629788  .01431103  00000-0  14311-1 0    13
2 11801  46.7916 230.4354 7318036  47.4722  10.4117  2.28537848    13`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseOne(t *testing.T, text string) *tle.ElementSet {
	t.Helper()
	sets, err := tle.Parse(strings.NewReader(text), discardLogger())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("parsed %d element sets, want 1", len(sets))
	}
	return sets[0]
}

func issElements(t *testing.T) *tle.ElementSet {
	t.Helper()
	return parseOne(t, issTLE)
}

// packEpoch converts an absolute time to the YYDDD.DDDDDDDD epoch form.
func packEpoch(tm time.Time) float64 {
	yy := tm.Year() % 100
	startOfDay := time.Date(tm.Year(), tm.Month(), tm.Day(), 0, 0, 0, 0, time.UTC)
	frac := tm.Sub(startOfDay).Hours() / 24.0
	return float64(yy*1000+tm.YearDay()) + frac
}

// geoElements builds a near-geostationary body in the synchronous
// resonance band.
func geoElements() *tle.ElementSet {
	els := &tle.ElementSet{NORADID: 26038, Name: "GEOTEST"}
	epoch := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	els.SetEpoch(epoch, packEpoch(epoch))
	els.SetInclination(5.1 * math.Pi / 180.0)
	els.SetRightAscension(81.6 * math.Pi / 180.0)
	els.SetEccentricity(0.0003616)
	els.SetArgumentOfPerigee(238.3 * math.Pi / 180.0)
	els.SetMeanAnomaly(133.5 * math.Pi / 180.0)
	els.SetMeanMotionRevsPerDay(1.00270861)
	els.SetBstar(0)
	return els
}

// molniyaElements builds a half-day, high-eccentricity body in the
// geopotential resonance band.
func molniyaElements() *tle.ElementSet {
	els := &tle.ElementSet{NORADID: 8195, Name: "MOLNIYA TEST"}
	epoch := time.Date(2026, 6, 25, 8, 0, 0, 0, time.UTC)
	els.SetEpoch(epoch, packEpoch(epoch))
	els.SetInclination(64.1586 * math.Pi / 180.0)
	els.SetRightAscension(279.0717 * math.Pi / 180.0)
	els.SetEccentricity(0.6877146)
	els.SetArgumentOfPerigee(264.7651 * math.Pi / 180.0)
	els.SetMeanAnomaly(20.2257 * math.Pi / 180.0)
	els.SetMeanMotionRevsPerDay(2.00491383)
	els.SetBstar(0.11873e-3)
	return els
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		name string
		want Model
	}{
		{"model", ModelAuto},
		{"model4", ModelAuto4},
		{"model8", ModelAuto8},
		{"sgp", ModelSGP},
		{"sgp4", ModelSGP4},
		{"sgp8", ModelSGP8},
		{"sdp4", ModelSDP4},
		{"sdp8", ModelSDP8},
		{"null", ModelNull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModel(tt.name)
			if err != nil {
				t.Fatalf("ParseModel(%q): %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseModel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if _, err := ParseModel("sgp12"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("ParseModel(sgp12) error = %v, want ErrUnknownModel", err)
	}
}

func TestModelResolution(t *testing.T) {
	near := issElements(t)
	deep := geoElements()

	tests := []struct {
		name    string
		els     *tle.ElementSet
		in      Model
		want    Model
		wantErr error
	}{
		{"auto near-earth", near, ModelAuto, ModelSGP4, nil},
		{"auto deep", deep, ModelAuto, ModelSDP4, nil},
		{"model4 deep", deep, ModelAuto4, ModelSDP4, nil},
		{"model8 near-earth", near, ModelAuto8, ModelSGP8, nil},
		{"model8 deep", deep, ModelAuto8, ModelSDP8, nil},
		{"explicit sgp4 near-earth", near, ModelSGP4, ModelSGP4, nil},
		{"sgp4 on deep body", deep, ModelSGP4, 0, ErrModelMismatch},
		{"sgp on deep body", deep, ModelSGP, 0, ErrModelMismatch},
		{"sdp4 on near-earth body", near, ModelSDP4, 0, ErrModelMismatch},
		{"sdp8 on near-earth body", near, ModelSDP8, 0, ErrModelMismatch},
		{"null works anywhere", deep, ModelNull, ModelNull, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.els, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if p.Model() != tt.want {
				t.Errorf("resolved model = %v, want %v", p.Model(), tt.want)
			}
		})
	}

	if got := Select(near); got != ModelSGP4 {
		t.Errorf("Select(near) = %v, want sgp4", got)
	}
	if got := Select(deep); got != ModelSDP4 {
		t.Errorf("Select(deep) = %v, want sdp4", got)
	}
}

// refVector is one published state vector for a reference element set.
type refVector struct {
	tsince float64 // minutes from epoch
	pos    [3]float64
	vel    [3]float64
}

func checkRefVectors(t *testing.T, els *tle.ElementSet, model Model, refs []refVector) {
	t.Helper()
	p, err := New(els, model)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, ref := range refs {
		tm := els.Epoch().Add(time.Duration(ref.tsince * float64(time.Minute)))
		pv, err := p.Propagate(tm)
		if err != nil {
			t.Fatalf("Propagate(t=%v min): %v", ref.tsince, err)
		}

		dpos := []float64{pv.X - ref.pos[0], pv.Y - ref.pos[1], pv.Z - ref.pos[2]}
		if rel := floats.Norm(dpos, 2) / floats.Norm(ref.pos[:], 2); rel > 1e-5 {
			t.Errorf("t=%v min: position off by %.2e relative (%.4f km)",
				ref.tsince, rel, floats.Norm(dpos, 2))
		}

		dvel := []float64{pv.VX - ref.vel[0], pv.VY - ref.vel[1], pv.VZ - ref.vel[2]}
		if rel := floats.Norm(dvel, 2) / floats.Norm(ref.vel[:], 2); rel > 1e-4 {
			t.Errorf("t=%v min: velocity off by %.2e relative (%.6f km/s)",
				ref.tsince, rel, floats.Norm(dvel, 2))
		}
	}
}

// TestSGP4ReferenceVectors checks SGP4 against the published state vectors
// for the 88888 test orbit at one-revolution-scale offsets.
func TestSGP4ReferenceVectors(t *testing.T) {
	checkRefVectors(t, parseOne(t, nearRefTLE), ModelSGP4, []refVector{
		{0, [3]float64{2328.97048951, -5995.22076416, 1719.97067261},
			[3]float64{2.91207230, -0.98341546, -7.09081703}},
		{360, [3]float64{2456.10705566, -6071.93853760, 1222.89727783},
			[3]float64{2.67938992, -0.44829041, -7.22879231}},
		{720, [3]float64{2567.56195068, -6112.50384522, 713.96397400},
			[3]float64{2.44024599, 0.09810869, -7.31995916}},
		{1080, [3]float64{2663.09078980, -6115.48229980, 196.39875794},
			[3]float64{2.19611958, 0.65241995, -7.36282432}},
		{1440, [3]float64{2742.55133057, -6079.67144775, -326.38095856},
			[3]float64{1.94850229, 1.21106251, -7.36619372}},
	})
}

// TestSDP4ReferenceVectors checks SDP4 against the published state vectors
// for the eccentric half-day 11801 test orbit.
func TestSDP4ReferenceVectors(t *testing.T) {
	els := parseOne(t, deepRefTLE)
	if !els.IsDeep() {
		t.Fatal("reference body not classified deep-space")
	}
	checkRefVectors(t, els, ModelSDP4, []refVector{
		{0, [3]float64{7473.37066650, 428.95261765, 5828.74786377},
			[3]float64{5.10715413, 6.44468284, -0.18613096}},
		{360, [3]float64{-3305.22537232, 32410.86328125, -24697.17675781},
			[3]float64{-1.30113538, -1.15131518, -0.28333528}},
		{720, [3]float64{14271.28759766, 24110.46411133, -4725.76837158},
			[3]float64{-0.32050445, 2.67984074, -2.08405289}},
		{1080, [3]float64{-9990.05883789, 22717.35522461, -23616.89062500},
			[3]float64{-1.01667246, -2.29026759, 0.72892364}},
		{1440, [3]float64{9787.86975097, 33753.34667969, -15030.81176758},
			[3]float64{-1.09425066, 0.92358845, 2.52495130}},
	})
}

func TestPropagateDeterminism(t *testing.T) {
	els := issElements(t)
	tm := els.Epoch().Add(97 * time.Minute)

	p1, _ := New(els, ModelSGP4)
	p2, _ := New(els, ModelSGP4)

	a, err := p1.Propagate(tm)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	b, err := p1.Propagate(tm)
	if err != nil {
		t.Fatalf("repeat Propagate: %v", err)
	}
	c, err := p2.Propagate(tm)
	if err != nil {
		t.Fatalf("fresh Propagate: %v", err)
	}

	if a != b {
		t.Errorf("repeat call differs: %+v vs %+v", a, b)
	}
	if a != c {
		t.Errorf("fresh propagator differs: %+v vs %+v", a, c)
	}
}

// TestRevisionInvalidation checks that mutating a model-relevant element
// re-initializes the cached state and that restoring it restores the output.
func TestRevisionInvalidation(t *testing.T) {
	els := issElements(t)
	tm := els.Epoch().Add(30 * time.Minute)

	p, _ := New(els, ModelSGP4)
	orig, err := p.Propagate(tm)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}

	xno := els.MeanMotion()
	els.SetMeanMotion(xno * 1.001)
	bumped, err := p.Propagate(tm)
	if err != nil {
		t.Fatalf("Propagate after bump: %v", err)
	}
	if bumped == orig {
		t.Error("mean motion change did not affect the output")
	}

	els.SetMeanMotion(xno)
	restored, err := p.Propagate(tm)
	if err != nil {
		t.Fatalf("Propagate after restore: %v", err)
	}
	if restored != orig {
		t.Errorf("restored output %+v, want %+v", restored, orig)
	}
}

// TestEccentricityError drives the eccentricity out of range with an
// oversized drag term, and checks the error is typed, repeatable, and does
// not poison the propagator for valid times.
func TestEccentricityError(t *testing.T) {
	els := issElements(t)
	els.SetBstar(0.5)

	p, _ := New(els, ModelSGP4)
	far := els.Epoch().Add(365 * 24 * time.Hour)

	_, err := p.Propagate(far)
	var eccErr *EccentricityError
	if !errors.As(err, &eccErr) {
		t.Fatalf("error = %v, want *EccentricityError", err)
	}
	if eccErr.Model != ModelSGP4 {
		t.Errorf("error model = %v, want sgp4", eccErr.Model)
	}

	// Same failure repeats identically.
	_, err2 := p.Propagate(far)
	var eccErr2 *EccentricityError
	if !errors.As(err2, &eccErr2) {
		t.Fatalf("repeat error = %v, want *EccentricityError", err2)
	}
	if *eccErr != *eccErr2 {
		t.Errorf("repeat error %+v, want %+v", eccErr2, eccErr)
	}

	// A valid time still works afterwards.
	if _, err := p.Propagate(els.Epoch().Add(10 * time.Minute)); err != nil {
		t.Errorf("valid propagation after failure: %v", err)
	}
}

// TestSDP4Geostationary runs the synchronous-resonance path and checks the
// orbit stays at geostationary radius across several days either side of
// epoch.
func TestSDP4Geostationary(t *testing.T) {
	els := geoElements()
	if !els.IsDeep() {
		t.Fatal("GEO body not classified deep-space")
	}

	p, err := New(els, ModelSDP4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, offset := range []time.Duration{
		-72 * time.Hour, -36 * time.Hour, -30 * time.Minute, 0,
		45 * time.Minute, 12 * time.Hour, 48 * time.Hour, 96 * time.Hour,
	} {
		pv, err := p.Propagate(els.Epoch().Add(offset))
		if err != nil {
			t.Fatalf("Propagate(%v): %v", offset, err)
		}
		r := math.Sqrt(pv.X*pv.X + pv.Y*pv.Y + pv.Z*pv.Z)
		if r < 41800 || r > 42600 {
			t.Errorf("offset %v: radius %.1f km outside geostationary band", offset, r)
		}
		v := math.Sqrt(pv.VX*pv.VX + pv.VY*pv.VY + pv.VZ*pv.VZ)
		if v < 2.9 || v > 3.3 {
			t.Errorf("offset %v: speed %.3f km/s outside geostationary band", offset, v)
		}
	}
}

// TestIntegratorRevisit checks the resonance integrator gives the same
// answer when the cursor has to rewind: forward, back, forward again must
// match a fresh propagator.
func TestIntegratorRevisit(t *testing.T) {
	els := geoElements()
	t2 := els.Epoch().Add(50 * time.Hour)
	t1 := els.Epoch().Add(20 * time.Hour)

	reused, _ := New(els, ModelSDP4)
	if _, err := reused.Propagate(t2); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if _, err := reused.Propagate(t1); err != nil {
		t.Fatalf("rewind: %v", err)
	}
	got, err := reused.Propagate(t2)
	if err != nil {
		t.Fatalf("forward again: %v", err)
	}

	fresh, _ := New(els, ModelSDP4)
	want, err := fresh.Propagate(t2)
	if err != nil {
		t.Fatalf("fresh: %v", err)
	}

	if d := math.Abs(got.X-want.X) + math.Abs(got.Y-want.Y) + math.Abs(got.Z-want.Z); d > 1e-6 {
		t.Errorf("revisited state differs from fresh by %.2e km", d)
	}
}

// TestSDP4Molniya runs the half-day geopotential resonance path.
func TestSDP4Molniya(t *testing.T) {
	els := molniyaElements()
	if !els.IsDeep() {
		t.Fatal("Molniya body not classified deep-space")
	}

	p, err := New(els, ModelSDP4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, offset := range []time.Duration{
		-48 * time.Hour, -6 * time.Hour, 0, 3 * time.Hour, 26 * time.Hour, 72 * time.Hour,
	} {
		pv, err := p.Propagate(els.Epoch().Add(offset))
		if err != nil {
			t.Fatalf("Propagate(%v): %v", offset, err)
		}
		r := math.Sqrt(pv.X*pv.X + pv.Y*pv.Y + pv.Z*pv.Z)
		if r < 6500 || r > 48000 {
			t.Errorf("offset %v: radius %.1f km outside Molniya range", offset, r)
		}
	}
}

// TestNearEarthModelAgreement checks SGP and SGP8 stay close to SGP4 near
// epoch, where drag handling differences have not accumulated.
func TestNearEarthModelAgreement(t *testing.T) {
	els := issElements(t)

	p4, _ := New(els, ModelSGP4)
	ref, err := p4.Propagate(els.Epoch())
	if err != nil {
		t.Fatalf("sgp4: %v", err)
	}

	for _, model := range []Model{ModelSGP, ModelSGP8} {
		t.Run(model.String(), func(t *testing.T) {
			p, err := New(els, model)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			pv, err := p.Propagate(els.Epoch())
			if err != nil {
				t.Fatalf("Propagate: %v", err)
			}
			d := math.Sqrt(sqr(pv.X-ref.X) + sqr(pv.Y-ref.Y) + sqr(pv.Z-ref.Z))
			if d > 50.0 {
				t.Errorf("epoch position differs from sgp4 by %.1f km", d)
			}

			// Stay on orbit over a half day.
			for _, offset := range []time.Duration{100 * time.Minute, 6 * time.Hour, 12 * time.Hour} {
				pv, err := p.Propagate(els.Epoch().Add(offset))
				if err != nil {
					t.Fatalf("Propagate(%v): %v", offset, err)
				}
				r := math.Sqrt(pv.X*pv.X + pv.Y*pv.Y + pv.Z*pv.Z)
				if r < 6600 || r > 7100 {
					t.Errorf("offset %v: radius %.1f km off the ISS shell", offset, r)
				}
			}
		})
	}
}

// highDragElements builds a near-earth body with a perigee above the
// 220 km drag split and an oversized ballistic coefficient, so the higher
// drag rate terms are visibly nonzero.
func highDragElements() *tle.ElementSet {
	els := &tle.ElementSet{NORADID: 39999, Name: "DRAG TEST"}
	epoch := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	els.SetEpoch(epoch, packEpoch(epoch))
	els.SetInclination(51.6 * math.Pi / 180.0)
	els.SetRightAscension(100.0 * math.Pi / 180.0)
	els.SetEccentricity(0.005)
	els.SetArgumentOfPerigee(90.0 * math.Pi / 180.0)
	els.SetMeanAnomaly(10.0 * math.Pi / 180.0)
	els.SetMeanMotionRevsPerDay(15.9)
	els.SetBstar(1.0e-3)
	return els
}

// TestSGP8DragRegimes checks the drag series is truncated for perigees
// under 220 km and carries the cubic and quartic rate terms above it, with
// the choice cached at initialization.
func TestSGP8DragRegimes(t *testing.T) {
	low := parseOne(t, nearRefTLE) // perigee ~198 km
	s := newSGP8(low)
	if !s.simple {
		t.Error("sub-220 km perigee body not in the truncated drag regime")
	}
	if s.xn3dt != 0 || s.xn4dt != 0 {
		t.Errorf("truncated regime carries higher drag rates: %g, %g", s.xn3dt, s.xn4dt)
	}

	full := newSGP8(highDragElements())
	if full.simple {
		t.Fatal("270 km perigee body in the truncated drag regime")
	}
	if full.xn3dt == 0 || full.xn4dt == 0 {
		t.Errorf("full regime missing higher drag rates: %g, %g", full.xn3dt, full.xn4dt)
	}

	// Three days out the cubic and quartic terms separate the regimes.
	const tsince = 3 * xmnpda
	quad := full.xnodp + full.xndt*tsince + 0.5*full.xnddt*sqr(tsince)
	withHigher := quad + full.xn3dt*math.Pow(tsince, 3)/6.0 + full.xn4dt*math.Pow(tsince, 4)/24.0
	if withHigher == quad {
		t.Error("higher drag rates have no effect three days from epoch")
	}

	for _, els := range []*tle.ElementSet{low, highDragElements()} {
		p, err := New(els, ModelSGP8)
		if err != nil {
			t.Fatalf("New(%d): %v", els.NORADID, err)
		}
		if _, err := p.Propagate(els.Epoch().Add(24 * time.Hour)); err != nil {
			t.Errorf("Propagate(%d): %v", els.NORADID, err)
		}
	}
}

// TestSDP8DragRegimes checks the same perigee split on the deep-space
// variant: the eccentric 11801 orbit dips under 220 km and truncates, the
// Molniya test orbit does not.
func TestSDP8DragRegimes(t *testing.T) {
	low := parseOne(t, deepRefTLE)
	s := newSDP8(low)
	if !s.simple {
		t.Error("sub-220 km perigee body not in the truncated drag regime")
	}
	if s.xn3dt != 0 || s.xn4dt != 0 {
		t.Errorf("truncated regime carries higher drag rates: %g, %g", s.xn3dt, s.xn4dt)
	}

	full := newSDP8(molniyaElements())
	if full.simple {
		t.Fatal("Molniya perigee body in the truncated drag regime")
	}
	if full.xn3dt == 0 || full.xn4dt == 0 {
		t.Errorf("full regime missing higher drag rates: %g, %g", full.xn3dt, full.xn4dt)
	}

	for _, els := range []*tle.ElementSet{low, molniyaElements()} {
		p, err := New(els, ModelSDP8)
		if err != nil {
			t.Fatalf("New(%d): %v", els.NORADID, err)
		}
		if _, err := p.Propagate(els.Epoch().Add(36 * time.Hour)); err != nil {
			t.Errorf("Propagate(%d): %v", els.NORADID, err)
		}
	}
}

func TestNullModel(t *testing.T) {
	els := issElements(t)
	p, err := New(els, ModelNull)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tm := els.Epoch().Add(time.Hour)
	pv, err := p.Propagate(tm)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if !pv.T.Equal(tm) {
		t.Errorf("T = %v, want %v", pv.T, tm)
	}
	if pv.X != 0 || pv.Y != 0 || pv.Z != 0 {
		t.Errorf("null model moved the body: %+v", pv)
	}
}

func TestWorkerPool(t *testing.T) {
	iss := issElements(t)
	geo := geoElements()
	broken := issElements(t)
	broken.SetBstar(0.5)

	wp := NewWorkerPool(4, ModelAuto, discardLogger())
	target := iss.Epoch().Add(365 * 24 * time.Hour)

	positions, ok, failed := wp.PropagateBatch(context.Background(), []*tle.ElementSet{iss, geo, broken}, target)
	if ok != 2 || failed != 1 {
		t.Fatalf("ok=%d failed=%d, want 2/1 (%d positions)", ok, failed, len(positions))
	}
	seen := map[int]bool{}
	for _, p := range positions {
		seen[p.NORADID] = true
	}
	if !seen[25544] || !seen[26038] {
		t.Errorf("missing NORAD IDs in results: %v", seen)
	}
}
