package optimization

import (
	"math/rand"
)

// Deterministic RNG sub-streams. The master seed is split once per population
// slot so that every random draw is attributable to one individual and the
// sequence consumed does not depend on goroutine scheduling during parallel
// evaluation.

// serialSlot is reserved so SerialStream never collides with a population
// slot.
const serialSlot = -1

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// SubStream derives the RNG stream for one population slot from the master
// seed. Distinct slots yield statistically independent streams.
func SubStream(seed int64, slot int) *rand.Rand {
	mixed := splitmix64(uint64(seed) ^ splitmix64(uint64(int64(slot))+1))
	return rand.New(rand.NewSource(int64(mixed)))
}

// SerialStream derives a stream disjoint from every population slot, for
// callers that need seeded draws outside the per-individual phase.
func SerialStream(seed int64) *rand.Rand {
	return SubStream(seed, serialSlot)
}
