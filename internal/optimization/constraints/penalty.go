package constraints

import (
	"math"
)

const (
	// Adaptation of the penalty factor across iterations.
	penaltyGrowth = 1.5
	penaltyDecay  = 0.75
	// The factor grows while fewer than this fraction of the population is
	// feasible.
	persistThreshold = 0.5
)

// PenaltyMethod selects by adjusted fitness
// raw + factor * violation^exponent. The factor adapts upward while
// violations persist across the population and back downward once the
// population has been fully feasible for FeasibleWindow iterations.
type PenaltyMethod struct {
	Factor   float64
	Exponent float64

	// MinFactor and MaxFactor clamp the adaptive factor.
	MinFactor float64
	MaxFactor float64

	// FeasibleWindow is the number of consecutive fully-feasible
	// iterations before the factor decays.
	FeasibleWindow int

	feasibleStreak int
}

// NewPenaltyMethod returns a penalty handler with the given initial factor
// and exponent. Non-positive arguments fall back to factor 1e3, exponent 2.
func NewPenaltyMethod(factor, exponent float64) *PenaltyMethod {
	if factor <= 0 {
		factor = 1e3
	}
	if exponent <= 0 {
		exponent = 2
	}
	return &PenaltyMethod{
		Factor:         factor,
		Exponent:       exponent,
		MinFactor:      factor * 1e-3,
		MaxFactor:      factor * 1e6,
		FeasibleWindow: 10,
	}
}

// Adjusted returns the penalized fitness of a candidate.
func (p *PenaltyMethod) Adjusted(c Candidate) float64 {
	if c.Violation == 0 {
		return c.Fitness
	}
	return c.Fitness + p.Factor*math.Pow(c.Violation, p.Exponent)
}

// Better implements Handler by plain comparison of adjusted fitness.
func (p *PenaltyMethod) Better(a, b Candidate) bool {
	return p.Adjusted(a) < p.Adjusted(b)
}

// Observe implements Handler, adapting the penalty factor.
func (p *PenaltyMethod) Observe(feasibleFraction float64) {
	switch {
	case feasibleFraction < persistThreshold:
		p.feasibleStreak = 0
		p.Factor = math.Min(p.Factor*penaltyGrowth, p.MaxFactor)
	case feasibleFraction == 1:
		p.feasibleStreak++
		if p.feasibleStreak >= p.FeasibleWindow {
			p.Factor = math.Max(p.Factor*penaltyDecay, p.MinFactor)
			p.feasibleStreak = 0
		}
	default:
		p.feasibleStreak = 0
	}
}
