package optimization

import (
	"math"
)

// Benchmark objective functions shared by the service registry and the test
// suite. All of them follow the ObjectiveFunc signature and are minimized.

// Sphere is f(x) = sum(x_i^2), minimum 0 at the origin.
func Sphere(x []float64) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

// AbsSum is f(x) = sum(|x_i|), minimum 0 at the origin.
func AbsSum(x []float64) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += math.Abs(v)
	}
	return sum, nil
}

// Rosenbrock is the classic banana valley, minimum 0 at (1, ..., 1).
func Rosenbrock(x []float64) (float64, error) {
	sum := 0.0
	for i := 0; i+1 < len(x); i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum, nil
}

// Rastrigin is highly multimodal, minimum 0 at the origin.
func Rastrigin(x []float64) (float64, error) {
	sum := 10.0 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum, nil
}

// Ackley has a nearly flat outer region and a large central hole, minimum 0
// at the origin.
func Ackley(x []float64) (float64, error) {
	n := float64(len(x))
	var sumSq, sumCos float64
	for _, v := range x {
		sumSq += v * v
		sumCos += math.Cos(2 * math.Pi * v)
	}
	return -20*math.Exp(-0.2*math.Sqrt(sumSq/n)) - math.Exp(sumCos/n) + 20 + math.E, nil
}

// PressureVesselCost is the cost function of the classic pressure-vessel
// design problem: x = [shell thickness, head thickness, inner radius,
// cylinder length]. The literature optimum is about 6059.7143 at
// x = [0.8125, 0.4375, 42.0984, 176.6366].
func PressureVesselCost(x []float64) (float64, error) {
	if len(x) != 4 {
		return 0, NewErrorf("pressure vessel needs 4 dimensions, got %d", len(x))
	}
	ts, th, r, l := x[0], x[1], x[2], x[3]
	return 0.6224*ts*r*l +
		1.7781*th*r*r +
		3.1661*ts*ts*l +
		19.84*ts*ts*r, nil
}

// PressureVesselConstraints returns the four inequality constraints of the
// pressure-vessel problem; g(x) <= 0 is feasible.
func PressureVesselConstraints() []ConstraintFunc {
	return []ConstraintFunc{
		func(x []float64) (float64, error) { return -x[0] + 0.0193*x[2], nil },
		func(x []float64) (float64, error) { return -x[1] + 0.00954*x[2], nil },
		func(x []float64) (float64, error) {
			r, l := x[2], x[3]
			return -math.Pi*r*r*l - (4.0/3.0)*math.Pi*r*r*r + 1296000, nil
		},
		func(x []float64) (float64, error) { return x[3] - 240, nil },
	}
}

// PressureVesselBounds returns the standard variable bounds of the
// pressure-vessel problem.
func PressureVesselBounds() [][2]float64 {
	return [][2]float64{
		{0.0625, 6.1875},
		{0.0625, 6.1875},
		{10, 200},
		{10, 240},
	}
}
