package fit

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

// KCurveFunc is the normalized k-curve y = (1 − x)·exp(c·x)
func KCurveFunc(x, c float64) float64 {
	return (1 - x) * math.Exp(c*x)
}

// KCurve fits the single parameter c of the normalized k-curve to data in [0, 1].
//
// The residual sum of squares is minimized with Nelder–Mead starting at c = 1 and the
// minimum is then polished with Gauss–Newton steps. R² uses the same explained/total
// ratio as Polynomial; for this nonlinear model the ratio can exceed 1, in which case its
// reciprocal is reported.
func KCurve(x, y []float64) (Result, error) {
	if len(x) != len(y) {
		return Result{}, ErrLengthMismatch
	}
	if len(x) < 2 {
		return Result{}, ErrTooFewPoints
	}
	if !allFinite(x) || !allFinite(y) {
		return Result{}, ErrNonFinite
	}

	sse := func(c float64) float64 {
		var s float64
		for i := range x {
			r := y[i] - KCurveFunc(x[i], c)
			s += r * r
		}
		return s
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			return sse(p[0])
		},
	}

	c := 1.0
	res, err := optimize.Minimize(problem, []float64{c}, nil, &optimize.NelderMead{})
	if res != nil && len(res.X) == 1 && !math.IsNaN(res.X[0]) && !math.IsInf(res.X[0], 0) {
		c = res.X[0]
	} else if err != nil {
		return Result{}, ErrNoConvergence
	}

	c = gaussNewton(x, y, c, sse)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return Result{}, ErrNoConvergence
	}

	r2, err := Determination(y, func(i int) float64 { return KCurveFunc(x[i], c) })
	if err != nil {
		return Result{}, err
	}
	if r2 > 1 {
		r2 = 1 / r2
	}

	return Result{
		Model:        ModelKCurve,
		Coefficients: []float64{c},
		RSquared:     r2,
	}, nil
}

// gaussNewton refines c while each step lowers the residual sum of squares.
func gaussNewton(x, y []float64, c float64, sse func(float64) float64) float64 {
	best := sse(c)
	for iter := 0; iter < 50; iter++ {
		var jtr, jtj float64
		for i := range x {
			f := KCurveFunc(x[i], c)
			j := x[i] * f // df/dc
			jtr += j * (y[i] - f)
			jtj += j * j
		}
		if jtj == 0 {
			break
		}
		step := jtr / jtj
		next := c + step
		cost := sse(next)
		if math.IsNaN(cost) || cost >= best {
			break
		}
		c, best = next, cost
		if math.Abs(step) < 1e-12*(1+math.Abs(c)) {
			break
		}
	}
	return c
}
