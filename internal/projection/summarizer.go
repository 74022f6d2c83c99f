package projection

import (
	"fmt"
	"math"
	"sort"

	"github.com/pleitolab/eleicometro/internal/errors"
)

// Summarize reduces an ensemble into the per-entity point estimates,
// empirical confidence bounds, seat counts and trend labels of one run.
//
// The confidence interval is the non-parametric percentile range of the
// ensemble at the requested level. Seats are derived once, from the
// point-estimate vector, not averaged across per-iteration allocations.
func Summarize(ens *Ensemble, base *BaseDistribution, confidence float64, scope Scope, cfg Config) (*Result, error) {
	n := ens.Iterations()
	if n == 0 {
		return nil, errors.NewInternalError("cannot summarize an empty ensemble", nil)
	}
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return nil, errors.NewValidationError("confidence level must be in (0, 1)")
	}

	entities := ens.Entities()
	estimates := make([]float64, len(entities))
	lows := make([]float64, len(entities))
	highs := make([]float64, len(entities))

	column := make([]float64, n)
	alpha := (1 - confidence) / 2
	for j := range entities {
		ens.Column(j, column)

		mean := 0.0
		for _, v := range column {
			mean += v
		}
		mean /= float64(n)
		if math.IsNaN(mean) {
			return nil, errors.NewInternalError(fmt.Sprintf("NaN estimate for entity %q", entities[j]), nil)
		}

		sort.Float64s(column)
		low := quantile(column, alpha)
		high := quantile(column, 1-alpha)

		// The empirical interval must bracket the mean even on heavily
		// skewed columns.
		estimates[j] = mean
		lows[j] = math.Min(low, mean)
		highs[j] = math.Max(high, mean)
	}

	// Renormalize the estimate vector before apportionment; per-iteration
	// vectors sum to 1, so their mean does too up to float error.
	total := 0.0
	for _, e := range estimates {
		total += e
	}
	shareVector := make([]float64, len(estimates))
	for j, e := range estimates {
		shareVector[j] = e / total
	}

	seats, err := Apportion(entities, shareVector, scope.TotalSeats, cfg)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Scope:      scope,
		Entities:   make([]EntityProjection, len(entities)),
		Confidence: overallConfidence(lows, highs),
	}
	for j, entity := range entities {
		result.Entities[j] = EntityProjection{
			Entity:   entity,
			Estimate: estimates[j],
			Low:      lows[j],
			High:     highs[j],
			Seats:    seats[j],
			Trend:    trendOf(estimates[j]-base.Baseline[j], cfg.TrendEpsilon),
		}
	}

	sort.SliceStable(result.Entities, func(a, b int) bool {
		if result.Entities[a].Estimate != result.Entities[b].Estimate {
			return result.Entities[a].Estimate > result.Entities[b].Estimate
		}
		return result.Entities[a].Entity < result.Entities[b].Entity
	})

	return result, nil
}

// quantile reads the q-th empirical quantile from a sorted sample using
// linear interpolation between adjacent order statistics.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// overallConfidence condenses interval tightness into one scalar: 1 for
// zero-width intervals, falling linearly as the mean width grows.
func overallConfidence(lows, highs []float64) float64 {
	width := 0.0
	for j := range lows {
		width += highs[j] - lows[j]
	}
	width /= float64(len(lows))
	return clamp(1-width, 0, 1)
}
