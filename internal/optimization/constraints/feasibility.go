package constraints

// FeasibilityRules implements Deb's feasibility rules: a feasible candidate
// always beats an infeasible one; between two infeasible candidates the lower
// violation wins; between two feasible candidates the better raw fitness
// wins.
type FeasibilityRules struct{}

// NewFeasibilityRules returns the feasibility-rules handler.
func NewFeasibilityRules() *FeasibilityRules { return &FeasibilityRules{} }

// Better implements Handler.
func (*FeasibilityRules) Better(a, b Candidate) bool {
	switch {
	case a.Feasible() && !b.Feasible():
		return true
	case !a.Feasible() && b.Feasible():
		return false
	case !a.Feasible():
		return a.Violation < b.Violation
	default:
		return a.Fitness < b.Fitness
	}
}

// Observe implements Handler. Feasibility rules carry no tunable state.
func (*FeasibilityRules) Observe(float64) {}
