package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pleitolab/eleicometro/internal/errors"
)

func TestApportionDHondtFixture(t *testing.T) {
	// Votes {A: 1000, B: 800, C: 600} over 2400, 5 seats, no threshold.
	entities := []string{"A", "B", "C"}
	shares := []float64{1000.0 / 2400, 800.0 / 2400, 600.0 / 2400}

	cfg := DefaultConfig()
	cfg.Viability = 0

	seats, err := Apportion(entities, shares, 5, cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, seats)
}

func TestApportionSeatsAlwaysSum(t *testing.T) {
	entities := []string{"A", "B", "C", "D"}
	shares := []float64{0.41, 0.32, 0.17, 0.10}

	for _, total := range []int{0, 1, 7, 30, 513} {
		seats, err := Apportion(entities, shares, total, DefaultConfig())
		require.NoError(t, err)

		sum := 0
		for _, s := range seats {
			sum += s
		}
		assert.Equal(t, total, sum, "totalSeats=%d", total)
	}
}

func TestApportionDefaultThresholdExcludes(t *testing.T) {
	// With 4 seats the default threshold is 1/4; the 10% entity gets
	// nothing even though a raw quotient pass would seat it.
	entities := []string{"A", "B", "C"}
	shares := []float64{0.50, 0.40, 0.10}

	cfg := DefaultConfig() // Viability < 0 resolves to 1/totalSeats

	seats, err := Apportion(entities, shares, 4, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, seats[2])
	assert.Equal(t, 4, seats[0]+seats[1])
}

func TestApportionAllBelowThresholdFallback(t *testing.T) {
	entities := []string{"A", "B", "C", "D", "E"}
	shares := []float64{0.2, 0.2, 0.2, 0.2, 0.2}

	cfg := DefaultConfig()
	cfg.Viability = 0.9 // nobody qualifies

	seats, err := Apportion(entities, shares, 5, cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 1, 1}, seats)
}

func TestApportionTieBreak(t *testing.T) {
	// Equal shares and quotients at every step: the lexically smaller id
	// takes the odd seat.
	entities := []string{"B", "A"}
	shares := []float64{0.5, 0.5}

	cfg := DefaultConfig()
	cfg.Viability = 0

	seats, err := Apportion(entities, shares, 3, cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seats)
}

func TestApportionMonotonicity(t *testing.T) {
	entities := []string{"A", "B", "C"}
	cfg := DefaultConfig()
	cfg.Viability = 0

	before, err := Apportion(entities, []float64{0.40, 0.35, 0.25}, 10, cfg)
	require.NoError(t, err)

	// A gains at C's expense; A's seats must not drop.
	after, err := Apportion(entities, []float64{0.46, 0.35, 0.19}, 10, cfg)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, after[0], before[0])
}

func TestApportionErrors(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("negative seat count", func(t *testing.T) {
		_, err := Apportion([]string{"A"}, []float64{1}, -1, cfg)
		require.Error(t, err)
		assert.Equal(t, errors.CategoryApportionment, errors.CategoryOf(err))
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := Apportion([]string{"A", "B"}, []float64{1}, 3, cfg)
		require.Error(t, err)
		assert.Equal(t, errors.CategoryApportionment, errors.CategoryOf(err))
	})

	t.Run("shares do not sum to one", func(t *testing.T) {
		_, err := Apportion([]string{"A", "B"}, []float64{0.5, 0.4}, 3, cfg)
		require.Error(t, err)
		assert.Equal(t, errors.CategoryApportionment, errors.CategoryOf(err))
	})
}
