package projection

import (
	"encoding/json"
	"fmt"
)

// Kind selects which simulation pipeline runs for a request. It is a closed
// set; every switch over it must handle all four values.
type Kind uint8

const (
	KindPrediction Kind = iota
	KindComparison
	KindEventImpact
	KindWhatIf
)

var kindNames = map[Kind]string{
	KindPrediction:  "prediction",
	KindComparison:  "comparison",
	KindEventImpact: "event_impact",
	KindWhatIf:      "what_if",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown simulation kind %q", s)
}

// Polarity marks whether an external factor helps or hurts its entities.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// Sign maps polarity to a multiplier for the factor's magnitude.
func (p Polarity) Sign() float64 {
	if p == PolarityNegative {
		return -1
	}
	return 1
}

// DurationClass controls how fast an external factor's effect decays.
type DurationClass string

const (
	DurationShort  DurationClass = "short"
	DurationMedium DurationClass = "medium"
	DurationLong   DurationClass = "long"
)

// PollSample is one polled vote-share reading for a party or candidate.
type PollSample struct {
	Entity string  `json:"entity" binding:"required"`
	Share  float64 `json:"share"`
	Source string  `json:"source,omitempty"`
}

// HistoricalResult is a prior election's share used as a baseline.
type HistoricalResult struct {
	Entity string  `json:"entity" binding:"required"`
	Share  float64 `json:"share"`
	Year   int     `json:"year"`
}

// AdjustmentSpec is an analyst override applied after channel blending.
type AdjustmentSpec struct {
	Entity    string  `json:"entity" binding:"required"`
	Delta     float64 `json:"delta"`
	Rationale string  `json:"rationale,omitempty"`
}

// ExternalFactor is a scripted event effect on a set of entities. Its
// magnitude decays with ElapsedDays according to the duration class.
type ExternalFactor struct {
	Description string        `json:"description,omitempty"`
	Polarity    Polarity      `json:"polarity"`
	Magnitude   float64       `json:"magnitude"`
	Duration    DurationClass `json:"duration"`
	ElapsedDays float64       `json:"elapsed_days,omitempty"`
	Entities    []string      `json:"entities"`
}

// WeightConfig sets the relative trust in each input channel. The three
// weights are renormalized to sum 1 before use; a renormalization is
// reported as a warning, not an error.
type WeightConfig struct {
	Poll       float64 `json:"poll"`
	History    float64 `json:"history"`
	Adjustment float64 `json:"adjustment"`
}

// Scope identifies the office, place and years a simulation covers.
type Scope struct {
	Office     string `json:"office"`
	State      string `json:"state,omitempty"`
	Year       int    `json:"year"`
	BaseYear   int    `json:"base_year,omitempty"`
	TotalSeats int    `json:"total_seats"`
}

// Request is one invocation's full parameter set. The engine never mutates
// it; callers may reuse a request across invocations.
type Request struct {
	Kind        Kind               `json:"kind"`
	Scope       Scope              `json:"scope"`
	Weights     WeightConfig       `json:"weights"`
	Iterations  int                `json:"iterations"`
	Confidence  float64            `json:"confidence"`
	Seed        int64              `json:"seed"`
	Entities    []string           `json:"entities"`
	Polls       []PollSample       `json:"polls,omitempty"`
	History     []HistoricalResult `json:"history,omitempty"`
	Adjustments []AdjustmentSpec   `json:"adjustments,omitempty"`
	Factors     []ExternalFactor   `json:"factors,omitempty"`
}

// Trend classifies an entity's projected movement against its baseline.
type Trend string

const (
	TrendGrowing   Trend = "growing"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// trendOf labels a signed change using the configured epsilon.
func trendOf(change, epsilon float64) Trend {
	switch {
	case change > epsilon:
		return TrendGrowing
	case change < -epsilon:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// EntityProjection is the summarized outcome for one entity.
type EntityProjection struct {
	Entity   string  `json:"entity"`
	Estimate float64 `json:"estimate"`
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	Seats    int     `json:"seats"`
	Trend    Trend   `json:"trend"`
}

// Result is the summarized output of one simulation run.
type Result struct {
	Scope            Scope              `json:"scope"`
	Entities         []EntityProjection `json:"entities"`
	Confidence       float64            `json:"confidence"`
	Winner           string             `json:"winner,omitempty"`
	WinProbabilities map[string]float64 `json:"win_probabilities,omitempty"`
}

// entityIndex returns the position of an entity in the result, or -1.
func (r *Result) entityIndex(entity string) int {
	for i := range r.Entities {
		if r.Entities[i].Entity == entity {
			return i
		}
	}
	return -1
}

// ComparisonEntry is the per-entity delta between two results.
type ComparisonEntry struct {
	Entity string  `json:"entity"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
	Change float64 `json:"change"`
	Trend  Trend   `json:"trend"`
}

// ComparisonResult is the structured delta between two completed
// projections, with both sub-results embedded.
type ComparisonResult struct {
	Entries []ComparisonEntry `json:"entries"`
	Before  *Result           `json:"before"`
	After   *Result           `json:"after"`
}

// Outcome is the tagged union the engine returns: exactly one of
// Projection or Comparison is set, according to Kind.
type Outcome struct {
	Kind       Kind              `json:"kind"`
	Projection *Result           `json:"projection,omitempty"`
	Comparison *ComparisonResult `json:"comparison,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// BaseDistribution is the aggregator's output: one (mean, variance) pair
// per entity plus the historical baseline used for trend labels.
type BaseDistribution struct {
	Entities []string
	Mean     []float64
	Variance []float64
	Baseline []float64
	Warnings []string
}

// Ensemble holds the N sampled outcome vectors of one run in a flat,
// index-addressed arena: iteration i's vector is shares[i*E : (i+1)*E].
type Ensemble struct {
	entities   []string
	iterations int
	shares     []float64
}

// NewEnsemble allocates an ensemble for the given universe and size.
func NewEnsemble(entities []string, iterations int) *Ensemble {
	return &Ensemble{
		entities:   entities,
		iterations: iterations,
		shares:     make([]float64, len(entities)*iterations),
	}
}

// Entities returns the shared entity universe of all iterations.
func (e *Ensemble) Entities() []string { return e.entities }

// Iterations returns the number of outcome vectors.
func (e *Ensemble) Iterations() int { return e.iterations }

// Row returns iteration i's vote-share vector. The slice aliases the
// arena; writers must not hold it across iterations.
func (e *Ensemble) Row(i int) []float64 {
	n := len(e.entities)
	return e.shares[i*n : (i+1)*n]
}

// Column copies entity j's share across all iterations into dst, which
// must have length Iterations().
func (e *Ensemble) Column(j int, dst []float64) {
	n := len(e.entities)
	for i := 0; i < e.iterations; i++ {
		dst[i] = e.shares[i*n+j]
	}
}
