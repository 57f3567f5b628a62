package optimization

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemValidate(t *testing.T) {
	valid := func() *Problem {
		return &Problem{
			Dimensions: 2,
			Bounds:     [][2]float64{{-5, 5}, {-5, 5}},
			Objective:  Sphere,
		}
	}

	tests := []struct {
		name    string
		mutate  func(p *Problem)
		wantErr bool
	}{
		{
			name:    "valid problem",
			mutate:  func(p *Problem) {},
			wantErr: false,
		},
		{
			name:    "zero dimensions",
			mutate:  func(p *Problem) { p.Dimensions = 0 },
			wantErr: true,
		},
		{
			name:    "bounds length mismatch",
			mutate:  func(p *Problem) { p.Bounds = p.Bounds[:1] },
			wantErr: true,
		},
		{
			name:    "min above max",
			mutate:  func(p *Problem) { p.Bounds[1] = [2]float64{3, -3} },
			wantErr: true,
		},
		{
			name:    "non-finite bound",
			mutate:  func(p *Problem) { p.Bounds[0] = [2]float64{math.Inf(-1), 5} },
			wantErr: true,
		},
		{
			name:    "missing objective",
			mutate:  func(p *Problem) { p.Objective = nil },
			wantErr: true,
		},
		{
			name: "both objective forms set",
			mutate: func(p *Problem) {
				p.Objectives = []ObjectiveFunc{Sphere, AbsSum}
			},
			wantErr: true,
		},
		{
			name: "maximize flags mismatch",
			mutate: func(p *Problem) {
				p.Maximize = []bool{true, false}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfig), "expected ErrInvalidConfig, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProblemClamp(t *testing.T) {
	p := &Problem{
		Dimensions: 3,
		Bounds:     [][2]float64{{-1, 1}, {0, 2}, {-3, -1}},
		Objective:  Sphere,
	}

	x := []float64{-2, 3, -2}
	p.Clamp(x)
	assert.Equal(t, []float64{-1, 2, -2}, x)
	assert.True(t, p.InBounds(x))
}

func TestProblemViolation(t *testing.T) {
	p := &Problem{
		Dimensions: 1,
		Bounds:     [][2]float64{{-5, 5}},
		Objective:  Sphere,
		Constraints: []ConstraintFunc{
			func(x []float64) (float64, error) { return 1 - x[0], nil }, // x >= 1
			func(x []float64) (float64, error) { return x[0] - 4, nil }, // x <= 4
		},
	}

	v, errs := p.Violation([]float64{2})
	assert.Zero(t, v)
	assert.Zero(t, errs)

	v, errs = p.Violation([]float64{0})
	assert.Equal(t, 1.0, v)
	assert.Zero(t, errs)

	v, errs = p.Violation([]float64{5})
	assert.Equal(t, 1.0, v)
	assert.Zero(t, errs)
}

func TestProblemViolationEvaluationFailure(t *testing.T) {
	p := &Problem{
		Dimensions: 1,
		Bounds:     [][2]float64{{-5, 5}},
		Objective:  Sphere,
		Constraints: []ConstraintFunc{
			func(x []float64) (float64, error) { return 0, fmt.Errorf("boom") },
		},
	}

	v, errs := p.Violation([]float64{0})
	assert.True(t, math.IsInf(v, 1))
	assert.Equal(t, 1, errs)
}
