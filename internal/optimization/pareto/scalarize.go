package pareto

import (
	"math"

	"github.com/zhenwuuu/swarmopt/internal/optimization"
)

// Scalarizer extracts a single preferred solution from a Pareto front. It is
// applied post-hoc, after the run has produced the final archive.
type Scalarizer interface {
	// Select returns the chosen member and its scalar score. It fails only
	// when the scalarizer configuration does not match the front.
	Select(front []*Member) (*Member, float64, error)
}

// WeightedSum picks the member minimizing the weighted sum of oriented
// objective values.
type WeightedSum struct {
	Weights []float64
}

// Select implements Scalarizer.
func (s WeightedSum) Select(front []*Member) (*Member, float64, error) {
	if len(front) == 0 {
		return nil, 0, optimization.NewError("empty pareto front")
	}
	if len(s.Weights) != len(front[0].scores) {
		return nil, 0, optimization.InvalidConfigf("weighted sum needs %d weights, got %d", len(front[0].scores), len(s.Weights))
	}

	var best *Member
	bestScore := math.Inf(1)
	for _, m := range front {
		score := 0.0
		for k, w := range s.Weights {
			score += w * m.scores[k]
		}
		if score < bestScore {
			best, bestScore = m, score
		}
	}
	return best, bestScore, nil
}

// EpsilonConstraint picks the member minimizing the target objective among
// those whose other objectives stay within their epsilon bounds. When no
// member satisfies every bound it falls back to the member with the smallest
// total bound violation. Epsilons are indexed by objective; the entry at
// Target is ignored. Bounds are interpreted on the oriented scale, so a
// maximized objective must reach at least its epsilon.
type EpsilonConstraint struct {
	Target   int
	Epsilons []float64

	// Maximize mirrors the problem's per-objective flags so raw epsilon
	// bounds can be oriented consistently.
	Maximize []bool
}

// Select implements Scalarizer.
func (s EpsilonConstraint) Select(front []*Member) (*Member, float64, error) {
	if len(front) == 0 {
		return nil, 0, optimization.NewError("empty pareto front")
	}
	nObj := len(front[0].scores)
	if s.Target < 0 || s.Target >= nObj {
		return nil, 0, optimization.InvalidConfigf("epsilon constraint target %d out of range [0, %d)", s.Target, nObj)
	}
	if len(s.Epsilons) != nObj {
		return nil, 0, optimization.InvalidConfigf("epsilon constraint needs %d epsilons, got %d", nObj, len(s.Epsilons))
	}

	orientEps := func(k int) float64 {
		if k < len(s.Maximize) && s.Maximize[k] {
			return -s.Epsilons[k]
		}
		return s.Epsilons[k]
	}

	var best, fallback *Member
	bestScore := math.Inf(1)
	leastViolation := math.Inf(1)
	for _, m := range front {
		violation := 0.0
		for k := 0; k < nObj; k++ {
			if k == s.Target {
				continue
			}
			if over := m.scores[k] - orientEps(k); over > 0 {
				violation += over
			}
		}
		if violation == 0 {
			if m.scores[s.Target] < bestScore {
				best, bestScore = m, m.scores[s.Target]
			}
			continue
		}
		if violation < leastViolation {
			fallback, leastViolation = m, violation
		}
	}

	if best != nil {
		return best, bestScore, nil
	}
	return fallback, fallback.scores[s.Target], nil
}
