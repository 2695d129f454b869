// Package rng provides the random sources a roll draws from.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Seeded returns a PCG source: the same seed gives the same rolls.
func Seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Random returns a PCG source seeded from crypto/rand, falling back to the
// runtime's per-process seed if the OS source is unavailable.
func Random() *rand.Rand {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}

// Sequence replays scripted draws, cycling when it runs out. A scripted value
// that is too large for the current n is reduced modulo n.
type Sequence struct {
	values []int
	next   int
	calls  []int
}

func NewSequence(values ...int) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) IntN(n int) int {
	s.calls = append(s.calls, n)
	if len(s.values) == 0 || n <= 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	if v < 0 {
		return v
	}
	return v % n
}

// Calls lists the n of every IntN call so far.
func (s *Sequence) Calls() []int {
	return append([]int(nil), s.calls...)
}
