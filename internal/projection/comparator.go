package projection

import (
	"fmt"
	"math"
	"sort"

	"github.com/pleitolab/eleicometro/internal/errors"
)

// Compare computes the structured delta between two completed projections
// over the same entity universe. The change is exact (after − before) and
// the trend label applies the configured epsilon to the change itself.
func Compare(before, after *Result, cfg Config) (*ComparisonResult, error) {
	if len(before.Entities) != len(after.Entities) {
		return nil, errors.NewMismatchError("projections cover different entity universes")
	}

	entries := make([]ComparisonEntry, 0, len(before.Entities))
	for i := range before.Entities {
		entity := before.Entities[i].Entity
		j := after.entityIndex(entity)
		if j < 0 {
			return nil, errors.NewMismatchError(fmt.Sprintf("entity %q missing from the after projection", entity))
		}

		b := before.Entities[i].Estimate
		a := after.Entities[j].Estimate
		change := a - b
		entries = append(entries, ComparisonEntry{
			Entity: entity,
			Before: b,
			After:  a,
			Change: change,
			Trend:  trendOf(change, cfg.TrendEpsilon),
		})
	}

	// Largest movements first; lexical id keeps equal movements stable.
	sort.SliceStable(entries, func(a, b int) bool {
		am, bm := math.Abs(entries[a].Change), math.Abs(entries[b].Change)
		if am != bm {
			return am > bm
		}
		return entries[a].Entity < entries[b].Entity
	})

	return &ComparisonResult{
		Entries: entries,
		Before:  before,
		After:   after,
	}, nil
}
