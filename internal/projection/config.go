package projection

// Config holds the engine's tunable policies. Zero values fall back to
// the defaults at the point of use, so DefaultConfig with field overrides
// is the expected way to build one.
type Config struct {
	// MinVariance is the floor applied when an entity has fewer than two
	// poll samples, so no entity gets a zero-width distribution.
	MinVariance float64

	// TrendEpsilon is the minimum absolute share movement before an
	// entity is labelled growing or declining.
	TrendEpsilon float64

	// SumTolerance is how far from 1.0 a vote-share vector may sum
	// before apportionment rejects it.
	SumTolerance float64

	// Viability is the minimum share required to compete for seats.
	// Negative means "use 1/totalSeats".
	Viability float64

	// DecayTaus maps each duration class to its decay constant in days.
	DecayTaus map[DurationClass]float64

	// Workers caps the sampler's parallelism; 0 means GOMAXPROCS.
	Workers int

	// BatchSize is how many iterations a worker runs between
	// cancellation checks and progress ticks.
	BatchSize int

	// MaxIterations rejects absurd requests before any allocation;
	// 0 disables the cap.
	MaxIterations int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MinVariance:   0.0004, // ~2pp standard deviation
		TrendEpsilon:  0.005,
		SumTolerance:  1e-6,
		Viability:     -1,
		DecayTaus:     DefaultDecayTaus(),
		Workers:       0,
		BatchSize:     2048,
		MaxIterations: 500_000,
	}
}

func (c Config) batchSize() int {
	if c.BatchSize <= 0 {
		return 2048
	}
	return c.BatchSize
}

func (c Config) minVariance() float64 {
	if c.MinVariance <= 0 {
		return 0.0004
	}
	return c.MinVariance
}

func (c Config) sumTolerance() float64 {
	if c.SumTolerance <= 0 {
		return 1e-6
	}
	return c.SumTolerance
}
