// Package rng adapts a seedable generator to the integer draw interface the
// noise synthesizers consume.
package rng

import "math/rand"

// Range is the exclusive upper bound of Source.Next.
const Range = 65536

// Source yields integers uniformly distributed over [0, Range).
type Source interface {
	Next() int
}

// Rand is a deterministic Source. It is not safe for concurrent use.
type Rand struct {
	r *rand.Rand
}

// New returns a Source seeded with seed. Two sources built from the same seed
// produce the same sequence within one process.
func New(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// Next returns the next draw in [0, Range).
func (r *Rand) Next() int {
	return r.r.Intn(Range)
}

// Float normalizes the next draw of src to [0,1).
func Float(src Source) float64 {
	return float64(src.Next()) / Range
}
