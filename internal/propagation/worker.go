package propagation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/star/orbtrack/internal/tle"
)

// batchJob is a unit of work for the worker pool.
type batchJob struct {
	els        *tle.ElementSet
	targetTime time.Time
}

// batchResult is the output of propagating one body.
type batchResult struct {
	pv      PositionVelocity
	err     error
	noradID int
}

// BatchPosition is one body's state in a batch result.
type BatchPosition struct {
	NORADID int
	PositionVelocity
}

// WorkerPool manages a fixed number of goroutines for parallel propagation.
// Each job gets its own Propagator, so element sets are only read and no
// model state is shared across goroutines.
type WorkerPool struct {
	workers int
	model   Model
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
// model may be an alias; it resolves per body.
func NewWorkerPool(workers int, model Model, logger *slog.Logger) *WorkerPool {
	return &WorkerPool{
		workers: workers,
		model:   model,
		logger:  logger,
	}
}

// PropagateBatch propagates all bodies to the target time using the worker
// pool. Bodies that fail are logged and skipped; the counts of successes
// and failures come back alongside the positions.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, bodies []*tle.ElementSet, targetTime time.Time) ([]BatchPosition, int, int) {
	if len(bodies) == 0 {
		return nil, 0, 0
	}

	jobs := make(chan batchJob, wp.workers*2)
	results := make(chan batchResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := wp.propagateSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, els := range bodies {
			select {
			case jobs <- batchJob{els: els, targetTime: targetTime}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	positions := make([]BatchPosition, 0, len(bodies))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("propagation failed",
				"norad_id", result.noradID,
				"error", result.err,
			)
			continue
		}
		successCount++
		positions = append(positions, BatchPosition{NORADID: result.noradID, PositionVelocity: result.pv})
	}

	return positions, successCount, errorCount
}

func (wp *WorkerPool) propagateSingle(job batchJob) batchResult {
	prop, err := New(job.els, wp.model)
	if err != nil {
		return batchResult{noradID: job.els.NORADID, err: err}
	}

	pv, err := prop.Propagate(job.targetTime)
	if err != nil {
		return batchResult{noradID: job.els.NORADID, err: err}
	}

	return batchResult{noradID: job.els.NORADID, pv: pv}
}
