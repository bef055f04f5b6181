// Package dice provides the injectable random source used for weighted draws
// and procedural generation. Production code uses a math/rand/v2 generator;
// tests substitute Fixed or Sequence to pin every roll.
package dice

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the subset of *rand.Rand the engine depends on.
type Source interface {
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
	// IntN returns a value in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// New returns a PCG-backed source that is safe for concurrent use. A zero
// seed uses the wall clock.
func New(seed uint64) Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// lockedSource serialises access to a *rand.Rand, which is not safe for
// concurrent use on its own.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// Pick returns a uniformly chosen element of items, or the zero value for an
// empty slice.
func Pick[T any](src Source, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[src.IntN(len(items))]
}

// Chance reports whether a roll lands below p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// Between returns an integer in [lo, hi].
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// Fixed always rolls the same float. IntN scales that float into [0, n).
type Fixed float64

func (f Fixed) Float64() float64 { return float64(f) }

func (f Fixed) IntN(n int) int {
	i := int(float64(f) * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Sequence replays the given floats in order and wraps around when exhausted.
type Sequence struct {
	Values []float64
	pos    int
}

// NewSequence returns a Sequence over values.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{Values: values}
}

func (s *Sequence) Float64() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.pos%len(s.Values)]
	s.pos++
	return v
}

func (s *Sequence) IntN(n int) int {
	return Fixed(s.Float64()).IntN(n)
}
