package pareto

import (
	"math"
	"math/rand"
)

// Leader samples a leader from the archive for one PSO-path move. With
// probability pressure the draw is roulette-biased toward members with higher
// crowding distance raised to weight, steering the swarm at sparse regions of
// the front; otherwise the draw is uniform. Returns nil when the archive is
// empty.
//
// The rng must be the calling individual's private stream so parallel
// evaluation order cannot change the random sequence consumed.
func (a *Archive) Leader(rng *rand.Rand, pressure, weight float64) *Member {
	n := len(a.members)
	if n == 0 {
		return nil
	}
	if n == 1 || rng.Float64() >= pressure {
		return a.members[rng.Intn(n)]
	}

	// Map +Inf crowding (boundary members) onto twice the largest finite
	// distance so boundaries stay strongly preferred but samplable.
	maxFinite := 0.0
	for _, m := range a.members {
		if !math.IsInf(m.Crowding, 1) && m.Crowding > maxFinite {
			maxFinite = m.Crowding
		}
	}
	if maxFinite == 0 {
		maxFinite = 1
	}

	weights := make([]float64, n)
	total := 0.0
	for i, m := range a.members {
		c := m.Crowding
		if math.IsInf(c, 1) {
			c = 2 * maxFinite
		}
		weights[i] = math.Pow(c, weight)
		total += weights[i]
	}
	if total == 0 {
		return a.members[rng.Intn(n)]
	}

	draw := rng.Float64() * total
	for i, w := range weights {
		draw -= w
		if draw <= 0 {
			return a.members[i]
		}
	}
	return a.members[n-1]
}
