package hybrid

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"
)

// polish refines the best solution with a derivative-free Nelder-Mead restart
// from the incumbent position. The refined point is adopted only if it
// improves the oriented score. Applied to unconstrained single-objective runs
// only; the simplex has no notion of the constraint comparison rules.
func (o *Optimizer) polish() {
	if !o.best.ok {
		return
	}

	evals := 0
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			// The method owns x; evaluate a clamped copy.
			pos := append([]float64(nil), x...)
			o.problem.Clamp(pos)
			evals++
			val, err := o.problem.ObjectiveAt(0)(pos)
			if err != nil || math.IsNaN(val) {
				return math.Inf(1)
			}
			return o.orient(val)
		},
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 50,
		},
	}
	method := &optimize.NelderMead{}

	start := append([]float64(nil), o.best.position...)
	result, err := optimize.Minimize(problem, start, settings, method)
	o.evals.Add(int64(evals))
	if err != nil || result == nil {
		o.log.Debug("polish step failed", zap.Error(err))
		return
	}

	o.problem.Clamp(result.X)
	if result.F < o.best.score {
		copy(o.best.position, result.X)
		o.best.score = result.F
		if o.maximize {
			o.best.fitness = -result.F
		} else {
			o.best.fitness = result.F
		}
		o.curve = append(o.curve, o.best.fitness)
	}
}
