package projection

import (
	"context"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pleitolab/eleicometro/internal/errors"
)

// ProgressFunc receives coarse progress ticks while sampling runs. It may
// be called concurrently from worker goroutines and must be cheap.
type ProgressFunc func(completed, total int)

// Sample draws an ensemble of `iterations` independent perturbations of
// the base distribution. Contiguous iteration ranges run on parallel
// workers; each iteration seeds its own stream from (seed, index), so the
// result is bit-identical regardless of worker count.
//
// Cancellation is cooperative: workers check ctx between batches, and a
// cancelled run returns a Cancelled error with no partial ensemble.
func Sample(ctx context.Context, base *BaseDistribution, iterations int, streams Streams, cfg Config, progress ProgressFunc) (*Ensemble, error) {
	if iterations <= 0 {
		return nil, errors.NewValidationError("iteration count must be a positive integer")
	}
	if len(base.Entities) == 0 {
		return nil, errors.NewValidationError("entity universe is empty")
	}

	ens := NewEnsemble(base.Entities, iterations)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > iterations {
		workers = iterations
	}
	batch := cfg.batchSize()
	chunk := (iterations + workers - 1) / workers

	var (
		wg        sync.WaitGroup
		done      atomic.Int64
		cancelled atomic.Bool
	)

	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > iterations {
			end = iterations
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if (i-start)%batch == 0 {
					select {
					case <-ctx.Done():
						cancelled.Store(true)
						return
					default:
					}
				}

				drawIteration(ens.Row(i), base, streams.For(i))

				if completed := done.Add(1); progress != nil && completed%int64(batch) == 0 {
					progress(int(completed), iterations)
				}
			}
		}(start, end)
	}

	wg.Wait()

	if cancelled.Load() || ctx.Err() != nil {
		return nil, errors.NewCancelledError("simulation cancelled", ctx.Err())
	}
	if progress != nil {
		progress(iterations, iterations)
	}

	return ens, nil
}

// drawIteration fills one outcome vector: a truncated-normal draw per
// entity, renormalized so the iteration sums to 1 across the universe.
func drawIteration(row []float64, base *BaseDistribution, r interface{ NormFloat64() float64 }) {
	sum := 0.0
	for j := range row {
		v := truncNormal(r, base.Mean[j], math.Sqrt(base.Variance[j]))
		row[j] = v
		sum += v
	}
	if sum > 0 {
		for j := range row {
			row[j] /= sum
		}
		return
	}
	uniform := 1.0 / float64(len(row))
	for j := range row {
		row[j] = uniform
	}
}

// truncNormal draws from a normal distribution truncated to [0, 1] by
// rejection. The generator surface is the minimal interface the sampler
// needs, keeping the noise source injectable.
func truncNormal(r interface{ NormFloat64() float64 }, mean, sd float64) float64 {
	if sd <= 0 {
		return clamp(mean, 0, 1)
	}
	for attempt := 0; attempt < 16; attempt++ {
		x := mean + sd*r.NormFloat64()
		if x >= 0 && x <= 1 {
			return x
		}
	}
	return clamp(mean, 0, 1)
}
