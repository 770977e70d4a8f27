// orbdiag propagates every body in a TLE file at a handful of fixed offsets
// from its epoch and dumps the state vectors. Useful for eyeballing a model
// against an external reference.
package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/star/orbtrack/internal/propagation"
	"github.com/star/orbtrack/internal/tle"
	"github.com/star/orbtrack/internal/transform"
)

var offsets = []time.Duration{
	0,
	30 * time.Minute,
	2 * time.Hour,
	24 * time.Hour,
	72 * time.Hour,
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <tle-file> [model]\n", os.Args[0])
		os.Exit(2)
	}

	model := propagation.ModelAuto
	if len(os.Args) > 2 {
		m, err := propagation.ParseModel(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		model = m
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	bodies, err := tle.Parse(f, logger)
	f.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for _, els := range bodies {
		class := "near-earth"
		if els.IsDeep() {
			class = "deep-space"
		}
		fmt.Printf("NORAD %d %s  %s  period %v  epoch %s\n",
			els.NORADID, els.Name, class, els.Period().Round(time.Second),
			els.Epoch().Format(time.RFC3339))

		prop, err := propagation.New(els, model)
		if err != nil {
			fmt.Printf("  %v\n\n", err)
			continue
		}
		fmt.Printf("  model %s\n", prop.Model())

		for _, off := range offsets {
			t := els.Epoch().Add(off)
			pv, err := prop.Propagate(t)
			if err != nil {
				fmt.Printf("  t+%-8v %v\n", off, err)
				continue
			}
			r := math.Sqrt(pv.X*pv.X + pv.Y*pv.Y + pv.Z*pv.Z)
			geo := transform.ToGeodetic(transform.Vec3{X: pv.X, Y: pv.Y, Z: pv.Z}, t)
			fmt.Printf("  t+%-8v r=%9.1f km  pos=(%9.1f %9.1f %9.1f)  vel=(%7.3f %7.3f %7.3f)  ssp=%.2f,%.2f alt=%.0f km\n",
				off, r, pv.X, pv.Y, pv.Z, pv.VX, pv.VY, pv.VZ,
				geo.LatDeg, geo.LonDeg, geo.AltKm)
		}
		fmt.Println()
	}
}
