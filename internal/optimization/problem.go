package optimization

import (
	"math"
)

// ObjectiveFunc evaluates a candidate position and returns its objective
// value. Returning an error (or a non-finite value) marks the evaluation as
// failed for that candidate only; the run continues.
type ObjectiveFunc func(x []float64) (float64, error)

// ConstraintFunc evaluates an inequality constraint g(x). Values <= 0 mean
// the constraint is satisfied at x.
type ConstraintFunc func(x []float64) (float64, error)

// Problem is the immutable description of a search space together with its
// objective(s) and optional constraints. It is constructed once by the caller
// and never mutated by a running optimizer.
type Problem struct {
	// Dimensions is the number of decision variables.
	Dimensions int

	// Bounds holds [min, max] per dimension. Positions are always kept
	// inside these bounds.
	Bounds [][2]float64

	// Objective is the single-objective function. Leave nil for
	// multi-objective problems.
	Objective ObjectiveFunc

	// Objectives holds the objective functions for multi-objective
	// problems. Mutually exclusive with Objective.
	Objectives []ObjectiveFunc

	// Maximize flags objectives that should be maximized instead of
	// minimized. A nil slice means every objective is minimized.
	Maximize []bool

	// Constraints holds inequality constraints; g(x) <= 0 is feasible.
	Constraints []ConstraintFunc
}

// NumObjectives returns the number of objective functions.
func (p *Problem) NumObjectives() int {
	if p.Objective != nil {
		return 1
	}
	return len(p.Objectives)
}

// ObjectiveAt returns the k-th objective function.
func (p *Problem) ObjectiveAt(k int) ObjectiveFunc {
	if p.Objective != nil {
		return p.Objective
	}
	return p.Objectives[k]
}

// MaximizeAt reports whether the k-th objective is maximized.
func (p *Problem) MaximizeAt(k int) bool {
	return k < len(p.Maximize) && p.Maximize[k]
}

// Constrained reports whether the problem has constraints.
func (p *Problem) Constrained() bool { return len(p.Constraints) > 0 }

// Validate checks the problem for structural errors. All failures are
// configuration errors and are reported before any evaluation happens.
func (p *Problem) Validate() error {
	if p.Dimensions <= 0 {
		return InvalidConfigf("dimensions must be positive, got %d", p.Dimensions)
	}
	if len(p.Bounds) != p.Dimensions {
		return InvalidConfigf("dimensions (%d) does not match bounds length (%d)", p.Dimensions, len(p.Bounds))
	}
	for d, b := range p.Bounds {
		if math.IsNaN(b[0]) || math.IsNaN(b[1]) || math.IsInf(b[0], 0) || math.IsInf(b[1], 0) {
			return InvalidConfigf("bounds for dimension %d must be finite", d)
		}
		if b[0] >= b[1] {
			return InvalidConfigf("bounds for dimension %d: min (%v) must be below max (%v)", d, b[0], b[1])
		}
	}
	if p.Objective != nil && len(p.Objectives) > 0 {
		return InvalidConfigf("set either Objective or Objectives, not both")
	}
	if p.Objective == nil && len(p.Objectives) == 0 {
		return InvalidConfigf("an objective function is required")
	}
	if len(p.Maximize) > 0 && len(p.Maximize) != p.NumObjectives() {
		return InvalidConfigf("maximize flags (%d) do not match objective count (%d)", len(p.Maximize), p.NumObjectives())
	}
	return nil
}

// Clamp clips x into the problem bounds in place.
func (p *Problem) Clamp(x []float64) {
	for d := range x {
		if x[d] < p.Bounds[d][0] {
			x[d] = p.Bounds[d][0]
		} else if x[d] > p.Bounds[d][1] {
			x[d] = p.Bounds[d][1]
		}
	}
}

// InBounds reports whether x lies inside the problem bounds.
func (p *Problem) InBounds(x []float64) bool {
	for d := range x {
		if x[d] < p.Bounds[d][0] || x[d] > p.Bounds[d][1] {
			return false
		}
	}
	return true
}

// Violation aggregates the constraint violation at x as the sum of positive
// constraint values. Zero means feasible. A constraint that fails to evaluate
// or returns a non-finite value contributes an infinite violation; errCount
// reports how many constraints failed that way.
func (p *Problem) Violation(x []float64) (violation float64, errCount int) {
	for _, g := range p.Constraints {
		v, err := g(x)
		if err != nil || math.IsNaN(v) {
			errCount++
			violation = math.Inf(1)
			continue
		}
		if v > 0 {
			violation += v
		}
	}
	return violation, errCount
}
