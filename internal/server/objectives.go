package server

import (
	"fmt"
	"sort"

	"github.com/zhenwuuu/swarmopt/internal/optimization"
)

// objectiveEntry describes one registered objective the service can optimize.
// Multi-objective entries carry more than one function.
type objectiveEntry struct {
	Description   string
	Objectives    []optimization.ObjectiveFunc
	Constraints   []optimization.ConstraintFunc
	DefaultBounds [][2]float64
}

// builtinObjectives returns the benchmark registry. Callers embedding the
// engine as a library pass their own objective callables instead; the service
// boundary only ships names.
func builtinObjectives() map[string]objectiveEntry {
	return map[string]objectiveEntry{
		"sphere": {
			Description: "sum of squares, minimum 0 at the origin",
			Objectives:  []optimization.ObjectiveFunc{optimization.Sphere},
		},
		"rosenbrock": {
			Description: "banana valley, minimum 0 at (1, ..., 1)",
			Objectives:  []optimization.ObjectiveFunc{optimization.Rosenbrock},
		},
		"rastrigin": {
			Description: "highly multimodal, minimum 0 at the origin",
			Objectives:  []optimization.ObjectiveFunc{optimization.Rastrigin},
		},
		"ackley": {
			Description: "flat outer region with a deep central hole",
			Objectives:  []optimization.ObjectiveFunc{optimization.Ackley},
		},
		"pressure-vessel": {
			Description:   "constrained pressure-vessel design cost (4 dims, 4 constraints)",
			Objectives:    []optimization.ObjectiveFunc{optimization.PressureVesselCost},
			Constraints:   optimization.PressureVesselConstraints(),
			DefaultBounds: optimization.PressureVesselBounds(),
		},
		"sphere-abs": {
			Description: "two-objective benchmark: sum of squares vs sum of absolute values",
			Objectives:  []optimization.ObjectiveFunc{optimization.Sphere, optimization.AbsSum},
		},
	}
}

// objectiveNames returns the sorted registry keys for listing endpoints.
func objectiveNames(reg map[string]objectiveEntry) []string {
	names := make([]string, 0, len(reg))
	for name := range reg {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildProblem assembles a Problem from a registry entry and request bounds.
func buildProblem(entry objectiveEntry, bounds [][2]float64) (*optimization.Problem, error) {
	if len(bounds) == 0 {
		bounds = entry.DefaultBounds
	}
	if len(bounds) == 0 {
		return nil, fmt.Errorf("bounds are required")
	}

	p := &optimization.Problem{
		Dimensions:  len(bounds),
		Bounds:      bounds,
		Constraints: entry.Constraints,
	}
	if len(entry.Objectives) == 1 {
		p.Objective = entry.Objectives[0]
	} else {
		p.Objectives = entry.Objectives
	}
	return p, p.Validate()
}
