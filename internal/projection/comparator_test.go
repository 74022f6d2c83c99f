package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pleitolab/eleicometro/internal/errors"
)

func resultFor(pairs map[string]float64) *Result {
	r := &Result{}
	for entity, estimate := range pairs {
		r.Entities = append(r.Entities, EntityProjection{Entity: entity, Estimate: estimate})
	}
	return r
}

func TestCompareChangesAreExact(t *testing.T) {
	before := resultFor(map[string]float64{"PTX": 0.30, "PDY": 0.45, "PRZ": 0.25})
	after := resultFor(map[string]float64{"PTX": 0.28, "PDY": 0.47, "PRZ": 0.25})

	cmp, err := Compare(before, after, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, cmp.Entries, 3)

	for _, e := range cmp.Entries {
		assert.Equal(t, e.After-e.Before, e.Change, "entity %s", e.Entity)
	}
}

func TestCompareFixture(t *testing.T) {
	before := resultFor(map[string]float64{"PTX": 0.30, "PDY": 0.70})
	after := resultFor(map[string]float64{"PTX": 0.28, "PDY": 0.72})

	cmp, err := Compare(before, after, DefaultConfig())
	require.NoError(t, err)

	var ptx ComparisonEntry
	for _, e := range cmp.Entries {
		if e.Entity == "PTX" {
			ptx = e
		}
	}
	assert.InDelta(t, -0.02, ptx.Change, 1e-12)
	assert.Equal(t, TrendDeclining, ptx.Trend)
}

func TestCompareStableWithinEpsilon(t *testing.T) {
	before := resultFor(map[string]float64{"PTX": 0.500, "PDY": 0.500})
	after := resultFor(map[string]float64{"PTX": 0.503, "PDY": 0.497})

	cmp, err := Compare(before, after, DefaultConfig())
	require.NoError(t, err)
	for _, e := range cmp.Entries {
		assert.Equal(t, TrendStable, e.Trend, "entity %s", e.Entity)
	}
}

func TestCompareOrdersByMagnitude(t *testing.T) {
	before := resultFor(map[string]float64{"A": 0.40, "B": 0.35, "C": 0.25})
	after := resultFor(map[string]float64{"A": 0.41, "B": 0.30, "C": 0.29})

	cmp, err := Compare(before, after, DefaultConfig())
	require.NoError(t, err)

	for i := 1; i < len(cmp.Entries); i++ {
		assert.GreaterOrEqual(t,
			math.Abs(cmp.Entries[i-1].Change), math.Abs(cmp.Entries[i].Change))
	}
	assert.Equal(t, "B", cmp.Entries[0].Entity)
}

func TestCompareEmbedsBothResults(t *testing.T) {
	before := resultFor(map[string]float64{"A": 1.0})
	after := resultFor(map[string]float64{"A": 1.0})

	cmp, err := Compare(before, after, DefaultConfig())
	require.NoError(t, err)
	assert.Same(t, before, cmp.Before)
	assert.Same(t, after, cmp.After)
}

func TestCompareMismatchedUniverses(t *testing.T) {
	t.Run("different lengths", func(t *testing.T) {
		before := resultFor(map[string]float64{"A": 0.6, "B": 0.4})
		after := resultFor(map[string]float64{"A": 1.0})

		_, err := Compare(before, after, DefaultConfig())
		require.Error(t, err)
		assert.Equal(t, errors.CategoryMismatch, errors.CategoryOf(err))
	})

	t.Run("different entities", func(t *testing.T) {
		before := resultFor(map[string]float64{"A": 0.6, "B": 0.4})
		after := resultFor(map[string]float64{"A": 0.6, "C": 0.4})

		_, err := Compare(before, after, DefaultConfig())
		require.Error(t, err)
		assert.Equal(t, errors.CategoryMismatch, errors.CategoryOf(err))
	})
}
