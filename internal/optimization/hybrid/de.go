package hybrid

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/zhenwuuu/swarmopt/internal/optimization"
)

// DETrial builds a DE/rand/1/bin trial vector for the target individual i.
// Three distinct donor indices r1, r2, r3 != i are drawn without replacement;
// the mutant is position[r1] + F*(position[r2] - position[r3]). Binomial
// crossover keeps each target dimension with probability 1-CR, except one
// forced dimension that is always taken from the mutant. The trial is clipped
// to the problem bounds.
//
// Donor positions are only read, never written; during the parallel phase the
// population is immutable, so DETrial is safe to call concurrently for
// distinct targets as long as each uses its own rng.
func DETrial(rng *rand.Rand, p *optimization.Problem, pop optimization.Population, i int, f, cr float64) []float64 {
	var r [3]int
	for k := 0; k < 3; {
		c := rng.Intn(len(pop))
		if c == i || (k > 0 && c == r[0]) || (k > 1 && c == r[1]) {
			continue
		}
		r[k] = c
		k++
	}

	trial := make([]float64, p.Dimensions)
	diff := make([]float64, p.Dimensions)
	floats.SubTo(diff, pop[r[1]].Position, pop[r[2]].Position)
	floats.AddScaledTo(trial, pop[r[0]].Position, f, diff)

	target := pop[i].Position
	forced := rng.Intn(p.Dimensions)
	for d := 0; d < p.Dimensions; d++ {
		if d != forced && rng.Float64() >= cr {
			trial[d] = target[d]
		}
	}

	p.Clamp(trial)
	return trial
}
