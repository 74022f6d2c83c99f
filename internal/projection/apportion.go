package projection

import (
	"fmt"
	"math"

	"github.com/pleitolab/eleicometro/internal/errors"
)

// Apportion converts one vote-share vector into integer seat counts using
// the highest-quotient (D'Hondt) method with a viability threshold.
//
// Seats are assigned one at a time to the entity holding the highest
// quotient share/(seats+1). Ties break deterministically: larger raw
// share first, then lexical entity id. The returned counts always sum to
// exactly totalSeats.
func Apportion(entities []string, shares []float64, totalSeats int, cfg Config) ([]int, error) {
	if totalSeats < 0 {
		return nil, errors.NewApportionmentError(fmt.Sprintf("total seat count %d is negative", totalSeats))
	}
	if len(entities) != len(shares) {
		return nil, errors.NewApportionmentError("entity and share vectors differ in length")
	}

	sum := 0.0
	for _, s := range shares {
		if math.IsNaN(s) {
			return nil, errors.NewInternalError("NaN in vote-share vector", nil)
		}
		sum += s
	}
	if math.Abs(sum-1) > cfg.sumTolerance() {
		return nil, errors.NewApportionmentError(fmt.Sprintf("vote-share vector sums to %.6f, not 1", sum))
	}

	seats := make([]int, len(entities))
	if totalSeats == 0 {
		return seats, nil
	}

	threshold := cfg.Viability
	if threshold < 0 {
		threshold = 1 / float64(totalSeats)
	}

	eligible := make([]bool, len(entities))
	anyEligible := false
	for i, s := range shares {
		if s >= threshold && s > 0 {
			eligible[i] = true
			anyEligible = true
		}
	}
	// Degenerate universes (everyone below threshold, or an all-zero
	// vector inside the sum tolerance) still must fill every seat.
	if !anyEligible {
		for i := range eligible {
			eligible[i] = true
		}
	}

	for seat := 0; seat < totalSeats; seat++ {
		best := -1
		for i := range entities {
			if !eligible[i] {
				continue
			}
			if best == -1 || beats(
				shares[i]/float64(seats[i]+1), shares[i], entities[i],
				shares[best]/float64(seats[best]+1), shares[best], entities[best],
			) {
				best = i
			}
		}
		seats[best]++
	}

	return seats, nil
}

// beats orders two quotient competitors: higher quotient wins, then
// larger raw share, then lexically smaller entity id.
func beats(q, share float64, id string, bestQ, bestShare float64, bestID string) bool {
	switch {
	case q != bestQ:
		return q > bestQ
	case share != bestShare:
		return share > bestShare
	default:
		return id < bestID
	}
}
