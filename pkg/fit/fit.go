// Package fit provides the least-squares models used to characterize profile shapes:
// polynomial regression, the normalized k-curve, and log-linearized exponential and
// power-law fits.
package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Model identifies the fitted model family
type Model string

const (
	ModelPolynomial  Model = "polynomial"
	ModelKCurve      Model = "kcurve"
	ModelExponential Model = "exponential"
	ModelPowerLaw    Model = "powerlaw"
)

var (
	ErrLengthMismatch = errors.New("fit: x and y have different lengths")
	ErrTooFewPoints   = errors.New("fit: not enough points for the requested model")
	ErrNonFinite      = errors.New("fit: input contains non-finite values")
	ErrNoVariance     = errors.New("fit: dependent variable has no variance")
	ErrSingular       = errors.New("fit: design matrix is singular")
	ErrNoConvergence  = errors.New("fit: optimizer did not converge")
)

// Result holds the fitted coefficients and the coefficient of determination.
//
// For polynomial models Coefficients are ordered from the highest degree down to the
// intercept. For the exponential and power-law models they are [a, b] where
// y = a·exp(b·x) or y = a·x^b. For the k-curve model they are [c].
type Result struct {
	Model        Model     `json:"model"`
	Coefficients []float64 `json:"coefficients"`
	RSquared     float64   `json:"r_squared"`
}

// Polynomial fits y = c0·x^d + c1·x^(d-1) + ... + cd by ordinary least squares.
//
// R² is reported as the ratio of the explained sum of squares to the total sum of
// squares, which equals 1 − SSres/SStot for a least-squares fit with an intercept.
func Polynomial(x, y []float64, degree int) (Result, error) {
	if len(x) != len(y) {
		return Result{}, ErrLengthMismatch
	}
	if degree < 0 {
		return Result{}, fmt.Errorf("fit: invalid polynomial degree %d", degree)
	}
	n := len(x)
	if n < degree+1 || n < 2 {
		return Result{}, ErrTooFewPoints
	}
	if !allFinite(x) || !allFinite(y) {
		return Result{}, ErrNonFinite
	}

	// Build Vandermonde matrix for polynomial regression
	X := mat.NewDense(n, degree+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= degree; j++ {
			X.Set(i, j, math.Pow(x[i], float64(j)))
		}
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	// Solve using QR decomposition
	var qr mat.QR
	qr.Factorize(X)

	coeffs := mat.NewVecDense(degree+1, nil)
	if err := qr.SolveVecTo(coeffs, false, yv); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) || math.IsNaN(float64(cond)) {
			return Result{}, fmt.Errorf("%w: %v", ErrSingular, err)
		}
	}

	// Reorder to highest degree first
	coeff := make([]float64, degree+1)
	for i := 0; i <= degree; i++ {
		coeff[degree-i] = coeffs.AtVec(i)
	}
	if !allFinite(coeff) {
		return Result{}, ErrSingular
	}

	r2, err := Determination(y, func(i int) float64 { return Eval(coeff, x[i]) })
	if err != nil {
		return Result{}, err
	}

	return Result{
		Model:        ModelPolynomial,
		Coefficients: coeff,
		RSquared:     r2,
	}, nil
}

// Eval evaluates a polynomial whose coefficients are ordered highest degree first.
func Eval(coeff []float64, x float64) float64 {
	v := 0.0
	for _, c := range coeff {
		v = v*x + c
	}
	return v
}

// Determination computes SSreg/SStot for observations y against the predictions
// returned by predict(i).
func Determination(y []float64, predict func(i int) float64) (float64, error) {
	mean := stat.Mean(y, nil)

	var ssReg, ssTot float64
	for i := range y {
		d := predict(i) - mean
		ssReg += d * d
		t := y[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0, ErrNoVariance
	}
	r2 := ssReg / ssTot
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return 0, ErrNonFinite
	}
	return r2, nil
}

func allFinite(v []float64) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
