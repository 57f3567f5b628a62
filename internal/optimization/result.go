package optimization

// Solution represents a solution in the optimization space.
type Solution struct {
	Position   []float64 `json:"position"`
	Objectives []float64 `json:"objectives,omitempty"`
}

// Result contains the outcome of an optimization run. The engine returns it
// even when the run is unsuccessful; Success and Message describe the
// terminal condition.
type Result struct {
	// BestPosition and BestFitness describe the best solution found. For
	// constrained runs the best solution may be infeasible; check
	// BestViolation and Success.
	BestPosition []float64 `json:"best_position"`
	BestFitness  float64   `json:"best_fitness"`

	// BestViolation is the aggregate constraint violation of the best
	// solution; zero means feasible.
	BestViolation float64 `json:"best_violation,omitempty"`

	// ParetoFront holds the non-dominated archive (multi-objective runs).
	ParetoFront []Solution `json:"pareto_front,omitempty"`

	// Curve records the best fitness at the end of each iteration.
	Curve []float64 `json:"convergence_curve"`

	// Evaluations counts objective-function calls; EvalErrors counts
	// evaluations that failed or returned a non-finite value.
	Evaluations int `json:"evaluations"`
	EvalErrors  int `json:"eval_errors"`

	// Iterations is the number of completed iterations.
	Iterations int `json:"iterations"`

	// Success is false when the run terminated without converging to an
	// acceptable solution, e.g. a constrained run ending with no feasible
	// individual.
	Success bool   `json:"success"`
	Message string `json:"message"`
}
