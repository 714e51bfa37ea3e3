package fit

import "math"

// Exponential fits h = a·exp(b·d) by regressing ln(h) on d. Samples with h <= 0 are
// dropped before taking logarithms.
func Exponential(d, h []float64) (Result, error) {
	if len(d) != len(h) {
		return Result{}, ErrLengthMismatch
	}

	var xs, ys []float64
	for i := range h {
		if h[i] > 0 {
			xs = append(xs, d[i])
			ys = append(ys, math.Log(h[i]))
		}
	}
	return logLinear(ModelExponential, xs, ys)
}

// PowerLaw fits h = a·d^b by regressing ln(h) on ln(d). Samples with h <= 0 are dropped
// before taking logarithms; a remaining non-positive distance makes the fit fail.
func PowerLaw(d, h []float64) (Result, error) {
	if len(d) != len(h) {
		return Result{}, ErrLengthMismatch
	}

	var xs, ys []float64
	for i := range h {
		if h[i] > 0 {
			xs = append(xs, math.Log(d[i]))
			ys = append(ys, math.Log(h[i]))
		}
	}
	return logLinear(ModelPowerLaw, xs, ys)
}

func logLinear(model Model, x, y []float64) (Result, error) {
	if len(x) == 0 {
		return Result{}, ErrTooFewPoints
	}
	lin, err := Polynomial(x, y, 1)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Model:        model,
		Coefficients: []float64{math.Exp(lin.Coefficients[1]), lin.Coefficients[0]},
		RSquared:     lin.RSquared,
	}, nil
}
