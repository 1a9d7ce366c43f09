package engine

import "math/rand"

// RNG is the deterministic random source exposed to scripts. Position counts
// draws so a snapshot records how far the sequence has advanced.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Roll returns a random integer in [1, n]. n < 1 returns 1 without drawing.
func (r *RNG) Roll(n int) int {
	if n < 1 {
		return 1
	}
	r.pos++
	return r.src.Intn(n) + 1
}

// Chance reports true with the given percent probability.
func (r *RNG) Chance(percent int) bool {
	return r.Roll(100) <= percent
}

// WeightedSelect returns an index chosen by weighted random selection.
// Non-positive weights are never chosen; -1 means nothing was selectable.
func (r *RNG) WeightedSelect(weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return -1
	}
	r.pos++
	roll := r.src.Intn(total)
	cumulative := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		if roll < cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Position returns the number of draws made since creation.
func (r *RNG) Position() int64 { return r.pos }
