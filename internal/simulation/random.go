package simulation

import (
	"math/rand/v2"
	"time"
)

// Rand is the random source the simulator draws from.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a seeded PCG source. The same seed always yields the same motion.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewTimeSeededRand returns a source seeded from the wall clock.
func NewTimeSeededRand() *rand.Rand {
	return NewRand(uint64(time.Now().UnixNano()))
}

// uniform returns a value in [min, max).
func uniform(r Rand, min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

// symmetric returns a value in [-spread, +spread).
func symmetric(r Rand, spread float64) float64 {
	return (r.Float64()*2 - 1) * spread
}

// uniformInt returns an integer in [min, max], both inclusive.
func uniformInt(r Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.IntN(max-min+1)
}
