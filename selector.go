package main

import (
	"math/rand/v2"
	"sync"
)

// Selector picks one of n candidate replies and returns its index in [0, n).
// Implementations must be safe for concurrent use.
type Selector func(n int) int

// RandomSelector picks uniformly using the shared math/rand/v2 source.
func RandomSelector() Selector {
	return func(n int) int {
		return rand.IntN(n)
	}
}

// SeededSelector picks uniformly from a private source, so the same seed
// yields the same sequence of picks.
func SeededSelector(seed uint64) Selector {
	var mu sync.Mutex
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return r.IntN(n)
	}
}

// FixedSelector always picks index i (modulo n).
func FixedSelector(i int) Selector {
	return func(n int) int {
		return i % n
	}
}
