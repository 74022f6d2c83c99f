package projection

import (
	"context"

	"github.com/pleitolab/eleicometro/internal/errors"
)

// Engine runs the full projection pipeline. It is pure and session-free:
// every invocation takes a complete request and returns a complete
// outcome, holding no state beyond its configuration.
type Engine struct {
	cfg Config
}

// New creates an engine with the given policies.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's policies.
func (e *Engine) Config() Config { return e.cfg }

// Run executes one simulation. The progress callback, when non-nil,
// receives the fraction of total work completed in [0, 1]; it may be
// called from worker goroutines.
//
// The dispatch over Kind is exhaustive: prediction runs one projection
// with candidate ranking; the comparison kinds run a before/after pair
// over a shared seed and return the structured delta.
func (e *Engine) Run(ctx context.Context, req *Request, progress func(float64)) (*Outcome, error) {
	switch req.Kind {
	case KindPrediction:
		result, warnings, err := e.runOnce(ctx, req, segment(progress, 0, 1), true)
		if err != nil {
			return nil, err
		}
		return &Outcome{Kind: req.Kind, Projection: result, Warnings: warnings}, nil

	case KindComparison:
		// Baseline excludes both analyst adjustments and scripted events.
		before := req.without(true, true)
		return e.runPair(ctx, req, before, progress)

	case KindEventImpact:
		// Before the scripted events land, adjustments included.
		before := req.without(false, true)
		return e.runPair(ctx, req, before, progress)

	case KindWhatIf:
		// Without the analyst's hypothesis, events included.
		before := req.without(true, false)
		return e.runPair(ctx, req, before, progress)

	default:
		return nil, errors.NewValidationError("unknown simulation kind")
	}
}

// runPair executes the before request and the full request over the same
// seed, then compares them. Sharing random streams between the two runs
// keeps the delta free of independent sampling noise.
func (e *Engine) runPair(ctx context.Context, after, before *Request, progress func(float64)) (*Outcome, error) {
	beforeResult, warnings, err := e.runOnce(ctx, before, segment(progress, 0, 0.5), false)
	if err != nil {
		return nil, err
	}

	afterResult, afterWarnings, err := e.runOnce(ctx, after, segment(progress, 0.5, 1), after.Kind == KindComparison)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, afterWarnings...)

	comparison, err := Compare(beforeResult, afterResult, e.cfg)
	if err != nil {
		return nil, err
	}

	return &Outcome{Kind: after.Kind, Comparison: comparison, Warnings: dedup(warnings)}, nil
}

// runOnce is the single-projection pipeline: aggregate, sample,
// summarize, and optionally rank candidates for a winner call.
func (e *Engine) runOnce(ctx context.Context, req *Request, progress ProgressFunc, rank bool) (*Result, []string, error) {
	base, err := Aggregate(req, e.cfg)
	if err != nil {
		return nil, nil, err
	}

	ens, err := Sample(ctx, base, req.Iterations, NewStreams(req.Seed), e.cfg, progress)
	if err != nil {
		return nil, nil, err
	}

	result, err := Summarize(ens, base, req.Confidence, req.Scope, e.cfg)
	if err != nil {
		return nil, nil, err
	}

	if rank {
		standings, winner := Rank(ens)
		result.Winner = winner
		result.WinProbabilities = make(map[string]float64, len(standings))
		for _, s := range standings {
			result.WinProbabilities[s.Entity] = s.WinProbability
		}
	}

	return result, base.Warnings, nil
}

// without copies the request minus the named channels, for the "before"
// leg of comparison kinds.
func (r *Request) without(adjustments, factors bool) *Request {
	clone := *r
	if adjustments {
		clone.Adjustments = nil
	}
	if factors {
		clone.Factors = nil
	}
	return &clone
}

// segment rescales sampler ticks into a [lo, hi] slice of overall progress.
func segment(progress func(float64), lo, hi float64) ProgressFunc {
	if progress == nil {
		return nil
	}
	return func(completed, total int) {
		if total <= 0 {
			return
		}
		progress(lo + (hi-lo)*float64(completed)/float64(total))
	}
}

func dedup(warnings []string) []string {
	if len(warnings) < 2 {
		return warnings
	}
	seen := make(map[string]struct{}, len(warnings))
	out := warnings[:0]
	for _, w := range warnings {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
