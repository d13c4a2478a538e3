// Package random provides the Bernoulli outcome source used by trials.
package random

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Source produces uniform draws in [0,1).
// Implementations are not required to be safe for concurrent use.
type Source interface {
	Float64() float64
}

// SourceFactory returns an independent Source for the trial with the given index.
// Each trial gets its own Source so trials can run on separate goroutines.
type SourceFactory func(trial int) Source

// pcgSource wraps a PCG generator.
type pcgSource struct{ r *rand.Rand }

func (s *pcgSource) Float64() float64 { return s.r.Float64() }

// NewSeeded returns a reproducible PCG source for (seed, stream).
func NewSeeded(seed, stream uint64) Source {
	return &pcgSource{r: rand.New(rand.NewPCG(seed, stream))}
}

// Default returns a PCG source seeded from crypto/rand.
func Default() Source {
	return NewSeeded(cryptoSeed(), cryptoSeed())
}

// cryptoSeed reads 64 bits of entropy; falls back to math/rand/v2 on failure.
func cryptoSeed() uint64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		return rand.Uint64()
	}
	return binary.BigEndian.Uint64(buf[:])
}

// Factory returns a SourceFactory.
// With seed == 0 every trial is seeded from fresh entropy.
// Otherwise trial i draws from PCG(seed, i), so results do not depend on scheduling.
func Factory(seed uint64) SourceFactory {
	if seed == 0 {
		return func(int) Source { return Default() }
	}
	return func(trial int) Source { return NewSeeded(seed, uint64(trial)) }
}
