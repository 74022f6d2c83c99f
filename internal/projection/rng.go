package projection

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// NewSeed generates a high-entropy seed using crypto/rand, for callers
// that did not pin one in the request.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Streams hands out one independent, reproducible random stream per
// Monte Carlo iteration. Iteration i's draws are fully determined by
// (seed, i), so workers never share generator state and identical
// inputs always produce identical ensembles.
type Streams struct {
	seed uint64
}

// NewStreams builds a stream factory for a global seed.
func NewStreams(seed int64) Streams {
	return Streams{seed: uint64(seed)}
}

// For returns the generator for iteration i.
func (s Streams) For(i int) *rand.Rand {
	// Golden-ratio offset keeps stream 0 distinct from the seed word.
	return rand.New(rand.NewPCG(s.seed, uint64(i)+0x9e3779b97f4a7c15))
}
