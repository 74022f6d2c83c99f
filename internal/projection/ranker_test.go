package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ensembleFromRows(entities []string, rows [][]float64) *Ensemble {
	ens := NewEnsemble(entities, len(rows))
	for i, row := range rows {
		copy(ens.Row(i), row)
	}
	return ens
}

func TestRankProbabilitiesSumToOne(t *testing.T) {
	base := testBase()
	ens, err := Sample(context.Background(), base, 3000, NewStreams(5), DefaultConfig(), nil)
	require.NoError(t, err)

	standings, winner := Rank(ens)
	require.Len(t, standings, 3)

	sum := 0.0
	for _, s := range standings {
		sum += s.WinProbability
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// PTX leads by 10 points with small variance; it should dominate.
	assert.Equal(t, "PTX", winner)
	assert.Equal(t, "PTX", standings[0].Entity)
}

func TestRankTieSplitsCredit(t *testing.T) {
	ens := ensembleFromRows([]string{"B", "A"}, [][]float64{
		{0.5, 0.5},
		{0.5, 0.5},
	})

	standings, winner := Rank(ens)
	require.Len(t, standings, 2)

	assert.InDelta(t, 0.5, standings[0].WinProbability, 1e-12)
	assert.InDelta(t, 0.5, standings[1].WinProbability, 1e-12)
	// Equal probability and estimate: the lexically smaller id wins.
	assert.Equal(t, "A", winner)
}

func TestRankClearWinner(t *testing.T) {
	ens := ensembleFromRows([]string{"A", "B", "C"}, [][]float64{
		{0.5, 0.3, 0.2},
		{0.6, 0.2, 0.2},
		{0.4, 0.45, 0.15},
	})

	standings, winner := Rank(ens)
	assert.Equal(t, "A", winner)
	assert.InDelta(t, 2.0/3.0, standings[0].WinProbability, 1e-12)
	assert.Equal(t, "B", standings[1].Entity)
	assert.InDelta(t, 1.0/3.0, standings[1].WinProbability, 1e-12)
	assert.Equal(t, 0.0, standings[2].WinProbability)
}

func TestRankEmptyEnsemble(t *testing.T) {
	standings, winner := Rank(NewEnsemble(nil, 0))
	assert.Nil(t, standings)
	assert.Empty(t, winner)
}
