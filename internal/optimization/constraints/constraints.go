// Package constraints provides the constraint-handling strategies consumed by
// the hybrid optimizer's selection step. A Handler decides which of two
// candidates is preferred; penalty-style handlers additionally fold the
// violation into an adjusted fitness.
package constraints

// Candidate carries the two quantities selection needs. Fitness is oriented
// so that lower is better; Violation is the aggregate constraint violation,
// zero meaning feasible.
type Candidate struct {
	Fitness   float64
	Violation float64
}

// Feasible reports whether the candidate satisfies all constraints.
func (c Candidate) Feasible() bool { return c.Violation == 0 }

// Handler compares candidates for greedy selection. Implementations are
// stateful per run and must not be shared across concurrent runs.
type Handler interface {
	// Better reports whether a is preferred over b.
	Better(a, b Candidate) bool

	// Observe is called once per iteration at the end-of-iteration
	// barrier with the fraction of feasible individuals, letting adaptive
	// handlers retune themselves.
	Observe(feasibleFraction float64)
}
