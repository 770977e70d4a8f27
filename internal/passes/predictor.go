package passes

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/star/orbtrack/internal/propagation"
	"github.com/star/orbtrack/internal/tle"
	"github.com/star/orbtrack/internal/transform"
)

// BodyPasses holds the predicted passes for one body.
type BodyPasses struct {
	NORADID int    `json:"norad_id"`
	Name    string `json:"name,omitempty"`
	Passes  []Pass `json:"passes"`
	Error   string `json:"error,omitempty"`
}

// Request holds the parameters for a batch prediction.
type Request struct {
	Observer transform.Observer
	Bodies   []*tle.ElementSet
	Model    propagation.Model
	Start    time.Time
	End      time.Time
	Config   Config
}

// Predict runs the detector over every body in the request. Each body gets
// its own goroutine and its own propagator, bounded by a semaphore; the
// deep-space integrator cursor is path-dependent, so propagator state is
// never shared across goroutines.
func Predict(ctx context.Context, req Request) []BodyPasses {
	results := make([]BodyPasses, len(req.Bodies))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, els := range req.Bodies {
		wg.Add(1)
		go func(idx int, els *tle.ElementSet) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = BodyPasses{
					NORADID: els.NORADID,
					Name:    els.Name,
					Error:   "cancelled",
				}
				return
			}

			det, err := New(els, req.Model, req.Observer, req.Config)
			if err != nil {
				results[idx] = BodyPasses{
					NORADID: els.NORADID,
					Name:    els.Name,
					Error:   err.Error(),
				}
				return
			}
			passes, err := det.Detect(req.Start, req.End)
			if err != nil {
				results[idx] = BodyPasses{
					NORADID: els.NORADID,
					Name:    els.Name,
					Error:   err.Error(),
				}
				return
			}
			results[idx] = BodyPasses{
				NORADID: els.NORADID,
				Name:    els.Name,
				Passes:  passes,
			}
		}(i, els)
	}

	wg.Wait()
	return results
}
