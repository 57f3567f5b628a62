package optimization

import (
	"math"
	"math/rand"
)

// Individual is one candidate solution. Position is always inside the problem
// bounds after any move; Velocity is only consumed by PSO-derived moves and
// starts at zero.
type Individual struct {
	Position []float64
	Velocity []float64

	// Fitness is the raw objective value (single-objective runs).
	Fitness float64

	// Objectives holds the raw objective vector (multi-objective runs).
	Objectives []float64

	// Violation is the aggregate constraint violation; zero means feasible.
	Violation float64

	// Personal best, updated at the end-of-iteration barrier.
	BestPosition   []float64
	BestFitness    float64
	BestObjectives []float64
	BestViolation  float64

	rng *rand.Rand
}

// Rand returns the individual's private RNG stream. All random draws made on
// behalf of this individual during the parallel phase come from here.
func (ind *Individual) Rand() *rand.Rand { return ind.rng }

// Population is a fixed-size ordered collection of individuals owned by a
// single running optimize call.
type Population []*Individual

// NewPopulation creates size individuals with positions sampled uniformly in
// the problem bounds, zero velocities and unevaluated fitness. Each individual
// gets its own RNG sub-stream derived from seed.
func NewPopulation(p *Problem, size int, seed int64) Population {
	pop := make(Population, size)
	for i := range pop {
		rng := SubStream(seed, i)
		pos := make([]float64, p.Dimensions)
		for d := 0; d < p.Dimensions; d++ {
			lo, hi := p.Bounds[d][0], p.Bounds[d][1]
			pos[d] = lo + rng.Float64()*(hi-lo)
		}
		pop[i] = &Individual{
			Position:      pos,
			Velocity:      make([]float64, p.Dimensions),
			Fitness:       math.Inf(1),
			Violation:     math.Inf(1),
			BestFitness:   math.Inf(1),
			BestViolation: math.Inf(1),
			rng:           rng,
		}
	}
	return pop
}
