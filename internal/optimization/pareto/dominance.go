// Package pareto extends the hybrid optimizer to vector-valued objectives
// with a bounded non-dominated archive, crowding-distance bookkeeping,
// diversity-biased leader selection and post-hoc scalarization.
package pareto

// dominates reports whether score vector a dominates b: no worse on every
// component and strictly better on at least one. Scores are oriented so that
// lower is better on every component.
func dominates(a, b []float64) bool {
	strict := false
	for k := range a {
		if a[k] > b[k] {
			return false
		}
		if a[k] < b[k] {
			strict = true
		}
	}
	return strict
}

// Dominates reports whether objective vector a dominates b, respecting
// per-objective maximize flags (nil means minimize everything).
func Dominates(a, b []float64, maximize []bool) bool {
	strict := false
	for k := range a {
		av, bv := a[k], b[k]
		if k < len(maximize) && maximize[k] {
			av, bv = -av, -bv
		}
		if av > bv {
			return false
		}
		if av < bv {
			strict = true
		}
	}
	return strict
}
