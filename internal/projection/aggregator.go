package projection

import (
	"fmt"
	"math"

	"github.com/pleitolab/eleicometro/internal/errors"
)

// Aggregate merges poll samples, the historical baseline, analyst
// adjustments and external-factor effects into one normalized base
// distribution: a (mean, variance) pair per entity.
//
// Channel blending uses the normalized weights; adjustments and factors
// are applied as additive share shifts after blending, then the universe
// is renormalized to sum 1.
func Aggregate(req *Request, cfg Config) (*BaseDistribution, error) {
	if err := validateRequest(req, cfg); err != nil {
		return nil, err
	}

	weights, warnings := normalizeWeights(req.Weights)

	pollShares := make(map[string][]float64, len(req.Entities))
	for _, s := range req.Polls {
		pollShares[s.Entity] = append(pollShares[s.Entity], s.Share)
	}

	baseline := baselineShares(req)
	adjustments := make(map[string]float64, len(req.Adjustments))
	for _, a := range req.Adjustments {
		adjustments[a.Entity] += a.Delta
	}

	taus := cfg.DecayTaus
	if taus == nil {
		taus = DefaultDecayTaus()
	}
	factorShifts := make(map[string]float64)
	for _, f := range req.Factors {
		shift := factorShift(f, taus)
		for _, entity := range f.Entities {
			factorShifts[entity] += shift
		}
	}

	base := &BaseDistribution{
		Entities: append([]string(nil), req.Entities...),
		Mean:     make([]float64, len(req.Entities)),
		Variance: make([]float64, len(req.Entities)),
		Baseline: make([]float64, len(req.Entities)),
		Warnings: warnings,
	}

	total := 0.0
	for i, entity := range req.Entities {
		mean, variance := blendEntity(
			pollShares[entity], baseline[entity],
			adjustments[entity], factorShifts[entity],
			weights, cfg,
		)
		base.Mean[i] = mean
		base.Variance[i] = variance
		base.Baseline[i] = baseline[entity]
		total += mean
	}

	// Renormalize the universe to sum 1. An all-zero blend falls back to
	// a uniform split rather than failing.
	if total > 0 {
		for i := range base.Mean {
			base.Mean[i] /= total
		}
	} else {
		uniform := 1.0 / float64(len(base.Mean))
		for i := range base.Mean {
			base.Mean[i] = uniform
		}
		base.Warnings = append(base.Warnings, "all blended shares were zero; fell back to a uniform distribution")
	}

	for i := range base.Mean {
		if math.IsNaN(base.Mean[i]) || math.IsNaN(base.Variance[i]) {
			return nil, errors.NewInternalError(
				fmt.Sprintf("NaN in base distribution for entity %q", base.Entities[i]), nil)
		}
	}

	return base, nil
}

// blendEntity computes one entity's pre-renormalization mean and its
// variance. An entity with no poll samples contributes zero weight from
// the poll channel; that weight is redistributed proportionally across
// the remaining channels.
func blendEntity(polls []float64, baseline, adjustment, factorShift float64, w WeightConfig, cfg Config) (float64, float64) {
	wPoll, wHistory, wAdjustment := w.Poll, w.History, w.Adjustment

	pollMean := 0.0
	if len(polls) == 0 {
		remainder := wHistory + wAdjustment
		if remainder > 0 {
			scale := (wPoll + remainder) / remainder
			wHistory *= scale
			wAdjustment *= scale
		}
		wPoll = 0
	} else {
		for _, s := range polls {
			pollMean += s
		}
		pollMean /= float64(len(polls))
	}

	// The adjustment channel blends zero; analyst deltas land additively
	// below, per the contract.
	mean := wPoll*pollMean + wHistory*baseline
	mean = clamp(mean+adjustment+factorShift, 0, 1)

	variance := cfg.minVariance()
	if len(polls) >= 2 {
		if v := sampleVariance(polls, pollMean); v > variance {
			variance = v
		}
	}

	return mean, variance
}

func sampleVariance(xs []float64, mean float64) float64 {
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(len(xs)-1)
}

// normalizeWeights scales the channel weights to sum 1, flagging a
// warning when the caller's weights needed renormalization.
func normalizeWeights(w WeightConfig) (WeightConfig, []string) {
	total := w.Poll + w.History + w.Adjustment
	if math.Abs(total-1) <= 1e-9 {
		return w, nil
	}

	warning := fmt.Sprintf("channel weights sum to %.4f; renormalized to 1", total)
	return WeightConfig{
		Poll:       w.Poll / total,
		History:    w.History / total,
		Adjustment: w.Adjustment / total,
	}, []string{warning}
}

// baselineShares picks one historical share per entity: the base-year
// result when the scope names one, otherwise the most recent year.
func baselineShares(req *Request) map[string]float64 {
	years := make(map[string]int, len(req.History))
	shares := make(map[string]float64, len(req.History))
	for _, h := range req.History {
		if req.Scope.BaseYear != 0 && h.Year == req.Scope.BaseYear {
			shares[h.Entity] = h.Share
			years[h.Entity] = math.MaxInt
			continue
		}
		if prev, ok := years[h.Entity]; !ok || h.Year > prev {
			shares[h.Entity] = h.Share
			years[h.Entity] = h.Year
		}
	}
	return shares
}

// validateRequest rejects malformed requests before any sampling begins.
func validateRequest(req *Request, cfg Config) error {
	if !req.Kind.Valid() {
		return errors.NewValidationError("unknown simulation kind")
	}
	if len(req.Entities) == 0 {
		return errors.NewValidationError("entity universe is empty")
	}
	seen := make(map[string]struct{}, len(req.Entities))
	for _, entity := range req.Entities {
		if entity == "" {
			return errors.NewValidationError("entity id must not be empty")
		}
		if _, dup := seen[entity]; dup {
			return errors.NewValidationError(fmt.Sprintf("duplicate entity %q in universe", entity))
		}
		seen[entity] = struct{}{}
	}
	if req.Iterations <= 0 {
		return errors.NewValidationError("iteration count must be a positive integer")
	}
	if cfg.MaxIterations > 0 && req.Iterations > cfg.MaxIterations {
		return errors.NewValidationError(
			fmt.Sprintf("iteration count %d exceeds the configured cap of %d", req.Iterations, cfg.MaxIterations))
	}
	// NaN fails every ordered comparison, so the range checks below must
	// reject it explicitly rather than let it reach the numeric pipeline.
	if math.IsNaN(req.Confidence) || req.Confidence <= 0 || req.Confidence >= 1 {
		return errors.NewValidationError("confidence level must be in (0, 1)")
	}
	if outside(req.Weights.Poll, 0, math.MaxFloat64) ||
		outside(req.Weights.History, 0, math.MaxFloat64) ||
		outside(req.Weights.Adjustment, 0, math.MaxFloat64) {
		return errors.NewValidationError("channel weights must be non-negative")
	}
	if req.Weights.Poll+req.Weights.History+req.Weights.Adjustment <= 0 {
		return errors.NewValidationError("channel weights must not all be zero")
	}
	for _, s := range req.Polls {
		if outside(s.Share, 0, 1) {
			return errors.NewValidationError(fmt.Sprintf("poll share %.4f for %q outside [0, 1]", s.Share, s.Entity))
		}
	}
	for _, h := range req.History {
		if outside(h.Share, 0, 1) {
			return errors.NewValidationError(fmt.Sprintf("historical share %.4f for %q outside [0, 1]", h.Share, h.Entity))
		}
	}
	for _, a := range req.Adjustments {
		if outside(a.Delta, -1, 1) {
			return errors.NewValidationError(fmt.Sprintf("adjustment delta %.4f for %q outside [-1, 1]", a.Delta, a.Entity))
		}
	}
	for _, f := range req.Factors {
		if outside(f.Magnitude, 0, 1) {
			return errors.NewValidationError(fmt.Sprintf("external factor magnitude %.4f outside [0, 1]", f.Magnitude))
		}
		if f.Polarity != PolarityPositive && f.Polarity != PolarityNegative {
			return errors.NewValidationError(fmt.Sprintf("external factor polarity %q is not positive or negative", f.Polarity))
		}
		if math.IsNaN(f.ElapsedDays) {
			return errors.NewValidationError("external factor elapsed days must be a number")
		}
	}
	return nil
}

// outside reports whether x is NaN or falls outside [lo, hi].
func outside(x, lo, hi float64) bool {
	return math.IsNaN(x) || x < lo || x > hi
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
