package hybrid

import (
	"math/rand"

	"github.com/zhenwuuu/swarmopt/internal/optimization"
)

// PSOStep computes a PSO move for ind toward its personal best and the given
// leader position:
//
//	v' = w*v + c1*r1*(pbest - x) + c2*r2*(leader - x)
//	x' = x + v'
//
// r1 and r2 are independent uniform draws per dimension. Positions are
// clamped to the bounds and the velocity component of any clamped dimension
// is zeroed to prevent boundary oscillation. The individual itself is not
// mutated; the caller commits pos and vel only if the candidate is accepted.
func PSOStep(rng *rand.Rand, p *optimization.Problem, ind *optimization.Individual, leader []float64, w, c1, c2 float64) (pos, vel []float64) {
	pos = make([]float64, p.Dimensions)
	vel = make([]float64, p.Dimensions)
	for d := 0; d < p.Dimensions; d++ {
		r1 := rng.Float64()
		r2 := rng.Float64()
		v := w*ind.Velocity[d] +
			c1*r1*(ind.BestPosition[d]-ind.Position[d]) +
			c2*r2*(leader[d]-ind.Position[d])
		x := ind.Position[d] + v
		if x < p.Bounds[d][0] {
			x, v = p.Bounds[d][0], 0
		} else if x > p.Bounds[d][1] {
			x, v = p.Bounds[d][1], 0
		}
		pos[d], vel[d] = x, v
	}
	return pos, vel
}
