package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pleitolab/eleicometro/internal/errors"
)

func validRequest() *Request {
	return &Request{
		Kind:       KindPrediction,
		Scope:      Scope{Office: "deputado_federal", State: "SP", Year: 2026, BaseYear: 2022, TotalSeats: 10},
		Weights:    WeightConfig{Poll: 0.4, History: 0.4, Adjustment: 0.2},
		Iterations: 500,
		Confidence: 0.95,
		Seed:       42,
		Entities:   []string{"PTX", "PDY", "PRZ"},
		Polls: []PollSample{
			{Entity: "PTX", Share: 0.42, Source: "inst_a"},
			{Entity: "PTX", Share: 0.38, Source: "inst_b"},
			{Entity: "PDY", Share: 0.35, Source: "inst_a"},
			{Entity: "PRZ", Share: 0.20, Source: "inst_a"},
		},
		History: []HistoricalResult{
			{Entity: "PTX", Share: 0.38, Year: 2022},
			{Entity: "PDY", Share: 0.37, Year: 2022},
			{Entity: "PRZ", Share: 0.18, Year: 2022},
		},
	}
}

func TestBlendEntityFixture(t *testing.T) {
	// WeightConfig {poll 0.3, history 0.5, adjustment 0.2}, one poll of
	// 40%, historical 35%, adjustment -5% must blend to 0.245 before
	// renormalization.
	weights := WeightConfig{Poll: 0.3, History: 0.5, Adjustment: 0.2}
	mean, variance := blendEntity([]float64{0.40}, 0.35, -0.05, 0, weights, DefaultConfig())

	assert.InDelta(t, 0.245, mean, 1e-12)
	assert.Equal(t, DefaultConfig().MinVariance, variance, "single sample must hit the variance floor")
}

func TestBlendEntityRedistributesPollWeight(t *testing.T) {
	// With no samples the poll weight spreads proportionally over the
	// remaining channels: history 0.5 scales to 5/7.
	weights := WeightConfig{Poll: 0.3, History: 0.5, Adjustment: 0.2}
	mean, _ := blendEntity(nil, 0.35, 0, 0, weights, DefaultConfig())

	assert.InDelta(t, 0.35*(5.0/7.0), mean, 1e-12)
}

func TestBlendEntityClamps(t *testing.T) {
	weights := WeightConfig{Poll: 1, History: 0, Adjustment: 0}

	mean, _ := blendEntity([]float64{0.9}, 0, 0.5, 0, weights, DefaultConfig())
	assert.Equal(t, 1.0, mean)

	mean, _ = blendEntity([]float64{0.1}, 0, -0.5, 0, weights, DefaultConfig())
	assert.Equal(t, 0.0, mean)
}

func TestBlendEntityVarianceFromDispersion(t *testing.T) {
	weights := WeightConfig{Poll: 1, History: 0, Adjustment: 0}
	_, variance := blendEntity([]float64{0.30, 0.40, 0.50}, 0, 0, 0, weights, DefaultConfig())

	// Sample variance of {0.3, 0.4, 0.5} is 0.01.
	assert.InDelta(t, 0.01, variance, 1e-12)
}

func TestAggregateRenormalizesUniverse(t *testing.T) {
	base, err := Aggregate(validRequest(), DefaultConfig())
	require.NoError(t, err)

	sum := 0.0
	for _, m := range base.Mean {
		sum += m
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Len(t, base.Mean, 3)
	for i := range base.Variance {
		assert.GreaterOrEqual(t, base.Variance[i], DefaultConfig().MinVariance)
	}
}

func TestAggregateWeightRenormalizationWarns(t *testing.T) {
	req := validRequest()
	req.Weights = WeightConfig{Poll: 2, History: 1, Adjustment: 1}

	base, err := Aggregate(req, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, base.Warnings, 1)
	assert.Contains(t, base.Warnings[0], "renormalized")
}

func TestAggregateUniformFallback(t *testing.T) {
	req := validRequest()
	req.Polls = nil
	req.History = nil // every channel blends to zero

	base, err := Aggregate(req, DefaultConfig())
	require.NoError(t, err)
	for _, m := range base.Mean {
		assert.InDelta(t, 1.0/3.0, m, 1e-12)
	}
	assert.NotEmpty(t, base.Warnings)
}

func TestAggregateAppliesFactors(t *testing.T) {
	req := validRequest()
	req.Factors = []ExternalFactor{{
		Description: "corruption scandal",
		Polarity:    PolarityNegative,
		Magnitude:   0.10,
		Duration:    DurationMedium,
		Entities:    []string{"PTX"},
	}}

	withFactor, err := Aggregate(req, DefaultConfig())
	require.NoError(t, err)

	withoutFactor, err := Aggregate(validRequest(), DefaultConfig())
	require.NoError(t, err)

	assert.Less(t, withFactor.Mean[0], withoutFactor.Mean[0], "negative factor must pull PTX down")
}

func TestAggregateBaseYearSelection(t *testing.T) {
	req := validRequest()
	req.History = append(req.History, HistoricalResult{Entity: "PTX", Share: 0.10, Year: 2018})

	base, err := Aggregate(req, DefaultConfig())
	require.NoError(t, err)
	// Base year 2022 is pinned in the scope; the 2018 result must not win.
	assert.InDelta(t, 0.38, base.Baseline[0], 1e-12)
}

func TestAggregateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"empty universe", func(r *Request) { r.Entities = nil }},
		{"duplicate entity", func(r *Request) { r.Entities = []string{"PTX", "PTX"} }},
		{"empty entity id", func(r *Request) { r.Entities = []string{"PTX", ""} }},
		{"zero iterations", func(r *Request) { r.Iterations = 0 }},
		{"negative iterations", func(r *Request) { r.Iterations = -5 }},
		{"iteration cap", func(r *Request) { r.Iterations = 10_000_000 }},
		{"all-zero weights", func(r *Request) { r.Weights = WeightConfig{} }},
		{"negative weight", func(r *Request) { r.Weights.Poll = -0.1 }},
		{"confidence zero", func(r *Request) { r.Confidence = 0 }},
		{"confidence one", func(r *Request) { r.Confidence = 1 }},
		{"confidence NaN", func(r *Request) { r.Confidence = math.NaN() }},
		{"weight NaN", func(r *Request) { r.Weights.History = math.NaN() }},
		{"poll share NaN", func(r *Request) { r.Polls[0].Share = math.NaN() }},
		{"historical share NaN", func(r *Request) { r.History[0].Share = math.NaN() }},
		{"adjustment delta NaN", func(r *Request) {
			r.Adjustments = []AdjustmentSpec{{Entity: "PTX", Delta: math.NaN()}}
		}},
		{"factor magnitude NaN", func(r *Request) {
			r.Factors = []ExternalFactor{{Polarity: PolarityPositive, Magnitude: math.NaN(), Entities: []string{"PTX"}}}
		}},
		{"factor elapsed days NaN", func(r *Request) {
			r.Factors = []ExternalFactor{{Polarity: PolarityPositive, Magnitude: 0.1, ElapsedDays: math.NaN(), Entities: []string{"PTX"}}}
		}},
		{"poll share above one", func(r *Request) { r.Polls[0].Share = 1.5 }},
		{"negative poll share", func(r *Request) { r.Polls[0].Share = -0.1 }},
		{"historical share above one", func(r *Request) { r.History[0].Share = 1.2 }},
		{"adjustment delta out of range", func(r *Request) {
			r.Adjustments = []AdjustmentSpec{{Entity: "PTX", Delta: 1.5}}
		}},
		{"factor magnitude out of range", func(r *Request) {
			r.Factors = []ExternalFactor{{Polarity: PolarityPositive, Magnitude: 2, Entities: []string{"PTX"}}}
		}},
		{"factor polarity unknown", func(r *Request) {
			r.Factors = []ExternalFactor{{Polarity: "sideways", Magnitude: 0.1, Entities: []string{"PTX"}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			_, err := Aggregate(req, DefaultConfig())
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "expected a validation error, got %v", err)
		})
	}
}
