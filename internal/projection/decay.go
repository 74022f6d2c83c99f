package projection

import "math"

// DefaultDecayTaus returns the decay constants, in days, for each
// external-factor duration class.
func DefaultDecayTaus() map[DurationClass]float64 {
	return map[DurationClass]float64{
		DurationShort:  7,
		DurationMedium: 30,
		DurationLong:   120,
	}
}

// DecayWeight computes exp(-elapsedDays/tau).
func DecayWeight(elapsedDays, tau float64) float64 {
	if tau <= 0 {
		return 0
	}
	return math.Exp(-elapsedDays / tau)
}

// factorShift is the signed share shift an external factor contributes
// to one affected entity: polarity * magnitude * decay. A factor with no
// elapsed age applies its full magnitude.
func factorShift(f ExternalFactor, taus map[DurationClass]float64) float64 {
	tau, ok := taus[f.Duration]
	if !ok || tau <= 0 {
		tau = DefaultDecayTaus()[DurationMedium]
	}
	elapsed := f.ElapsedDays
	if elapsed < 0 {
		elapsed = 0
	}
	return f.Polarity.Sign() * f.Magnitude * DecayWeight(elapsed, tau)
}
