package projection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindJSON(t *testing.T) {
	data, err := json.Marshal(KindEventImpact)
	require.NoError(t, err)
	assert.Equal(t, `"event_impact"`, string(data))

	var k Kind
	require.NoError(t, json.Unmarshal([]byte(`"what_if"`), &k))
	assert.Equal(t, KindWhatIf, k)

	assert.Error(t, json.Unmarshal([]byte(`"runoff"`), &k))
}

func TestTrendOf(t *testing.T) {
	assert.Equal(t, TrendGrowing, trendOf(0.02, 0.005))
	assert.Equal(t, TrendDeclining, trendOf(-0.02, 0.005))
	assert.Equal(t, TrendStable, trendOf(0.004, 0.005))
	assert.Equal(t, TrendStable, trendOf(-0.005, 0.005))
}

func TestEnsembleArena(t *testing.T) {
	ens := NewEnsemble([]string{"A", "B"}, 3)
	for i := 0; i < 3; i++ {
		row := ens.Row(i)
		row[0] = float64(i)
		row[1] = float64(i) + 0.5
	}

	col := make([]float64, 3)
	ens.Column(1, col)
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, col)
	assert.Equal(t, []float64{2, 2.5}, ens.Row(2))
}
