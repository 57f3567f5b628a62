package hybrid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhenwuuu/swarmopt/internal/optimization"
)

func testProblem(dims int) *optimization.Problem {
	bounds := make([][2]float64, dims)
	for d := range bounds {
		bounds[d] = [2]float64{-5, 5}
	}
	return &optimization.Problem{
		Dimensions: dims,
		Bounds:     bounds,
		Objective:  optimization.Sphere,
	}
}

func TestDETrialWithinBounds(t *testing.T) {
	p := testProblem(5)
	pop := optimization.NewPopulation(p, 20, 11)
	rng := optimization.SerialStream(11)

	// A large F pushes mutants past the bounds regularly; the trial must
	// always come back clipped.
	for trial := 0; trial < 500; trial++ {
		i := trial % len(pop)
		x := DETrial(rng, p, pop, i, 2.0, 0.9)
		assert.Len(t, x, p.Dimensions)
		assert.True(t, p.InBounds(x), "trial %d escaped bounds: %v", trial, x)
	}
}

func TestDETrialForcedDimension(t *testing.T) {
	p := testProblem(6)
	pop := optimization.NewPopulation(p, 20, 3)
	rng := optimization.SerialStream(3)

	// With CR=0 every dimension except the forced one is taken from the
	// target, so at most one dimension may differ.
	for trial := 0; trial < 200; trial++ {
		i := trial % len(pop)
		x := DETrial(rng, p, pop, i, 0.8, 0)
		differing := 0
		for d := range x {
			if x[d] != pop[i].Position[d] {
				differing++
			}
		}
		assert.LessOrEqual(t, differing, 1, "CR=0 must leave at most the forced dimension changed")
	}
}

func TestDETrialFullCrossover(t *testing.T) {
	p := testProblem(4)
	pop := optimization.NewPopulation(p, 10, 5)
	rng := optimization.SerialStream(5)

	// With CR=1 and F=0 the trial is exactly the first donor, clipped.
	x := DETrial(rng, p, pop, 0, 0, 1)
	found := false
	for j := 1; j < len(pop); j++ {
		same := true
		for d := range x {
			if x[d] != pop[j].Position[d] {
				same = false
				break
			}
		}
		if same {
			found = true
			break
		}
	}
	assert.True(t, found, "with CR=1, F=0 the trial must equal some donor position")
}

func TestDETrialDeterministic(t *testing.T) {
	p := testProblem(3)
	pop := optimization.NewPopulation(p, 8, 77)

	a := DETrial(optimization.SubStream(77, 100), p, pop, 2, 0.6, 0.8)
	b := DETrial(optimization.SubStream(77, 100), p, pop, 2, 0.6, 0.8)
	assert.Equal(t, a, b)
}
