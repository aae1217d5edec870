package prediction

import (
	"math/rand/v2"
	"sync"
)

// RandomSource supplies the jitter used by the scoring passes. Float64 must
// return values in [0, 1).
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 {
	return rand.Float64()
}

// DefaultRandomSource returns the process-wide generator. It is safe for
// concurrent use.
func DefaultRandomSource() RandomSource {
	return globalSource{}
}

// SeededSource is a reproducible generator guarded by a mutex so a single
// engine can still be shared between goroutines.
type SeededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a generator that yields the same sequence for the
// same seed.
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
