package cirque

import (
	"math"

	"github.com/chrissnell/cirquemetrics/pkg/fit"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// closureSegments is the number of segments averaged at each end for profile closure
const closureSegments = 3

// HalfProfileMetrics holds the indices of a half-profile running from the valley floor
// up to the crest
type HalfProfileMetrics struct {
	ProfileID   string
	Length      float64
	Height      float64
	WHRatio     float64
	Integral    float64
	Closure     unit.Angle
	Aspect      unit.Angle // clockwise from north
	Gradient    unit.Angle
	Exponential FitValue
	PowerLaw    FitValue
	KCurve      FitValue // A = c
	SL          FitValue // A = slope of height against ln(distance from the crest)
}

// ComputeHalfProfile derives the half-profile indices. The profile is normalized to run
// from low to high elevation first.
func ComputeHalfProfile(p Profile) (HalfProfileMetrics, error) {
	p = Normalize(p)
	s := p.Samples
	n := len(s)
	if n < 2 {
		return HalfProfileMetrics{}, ErrTooFewSamples
	}

	z := Elevations(s)
	d := Distances(s)
	zMin, zMax := floats.Min(z), floats.Max(z)
	height := zMax - zMin
	length := d[n-1] - d[0]
	if height == 0 {
		return HalfProfileMetrics{}, ErrFlatProfile
	}
	if length <= 0 {
		return HalfProfileMetrics{}, ErrZeroLength
	}

	out := HalfProfileMetrics{
		ProfileID: p.ID,
		Length:    length,
		Height:    height,
		WHRatio:   length / height,
		Integral:  (stat.Mean(z, nil) - zMin) / (height + guard),
		Gradient:  unit.Angle(math.Atan(height / length)),
		Aspect:    Aspect(s[0], s[n-1]),
		Closure:   Closure(s),
	}

	h := make([]float64, n)
	for i := range z {
		h[i] = z[i] - zMin
	}

	exp, err := fit.Exponential(d, h)
	out.Exponential = fitValue(exp, err, func(r fit.Result) (float64, float64) {
		return r.Coefficients[0], r.Coefficients[1]
	})

	pow, err := fit.PowerLaw(d, h)
	out.PowerLaw = fitValue(pow, err, func(r fit.Result) (float64, float64) {
		return r.Coefficients[0], r.Coefficients[1]
	})

	// walk from the crest back to the floor for the k-curve and SL index
	maxLen := d[n-1]
	xs := make([]float64, n)
	ys := make([]float64, n)
	var lnRev, hRev []float64
	for j := 0; j < n; j++ {
		i := n - 1 - j
		rev := maxLen - d[i]
		xs[j] = rev / maxLen
		ys[j] = h[i] / height
		if rev > 0 && h[i] > 0 {
			lnRev = append(lnRev, math.Log(rev))
			hRev = append(hRev, h[i])
		}
	}

	kc, err := fit.KCurve(xs, ys)
	out.KCurve = fitValue(kc, err, func(r fit.Result) (float64, float64) {
		return r.Coefficients[0], 0
	})

	sl, err := fit.Polynomial(lnRev, hRev, 1)
	out.SL = fitValue(sl, err, func(r fit.Result) (float64, float64) {
		return r.Coefficients[0], r.Coefficients[1]
	})

	return out, nil
}

// Aspect returns the compass bearing of the direction from last to first, clockwise from
// north within [0, 2π).
func Aspect(first, last Sample) unit.Angle {
	return unit.Angle(math.Atan2(first.X-last.X, first.Y-last.Y)).Mod1()
}

// Closure returns the difference between the mean slope of the last three segments and
// the mean slope of the first three. With four or five segments the steepest of the last
// three is compared with the gentlest of the first three, and shorter profiles use the
// spread of all their slopes. Zero-length segments are skipped.
func Closure(s []Sample) unit.Angle {
	slopes := make([]float64, 0, len(s))
	for i := 1; i < len(s); i++ {
		dx := s[i].Distance - s[i-1].Distance
		if dx == 0 {
			continue
		}
		dz := s[i].Elevation - s[i-1].Elevation
		slopes = append(slopes, math.Atan(dz/dx))
	}

	n := len(slopes)
	switch {
	case n == 0:
		return 0
	case n <= closureSegments:
		return unit.Angle(floats.Max(slopes) - floats.Min(slopes))
	case n < 2*closureSegments:
		return unit.Angle(floats.Max(slopes[n-closureSegments:]) - floats.Min(slopes[:closureSegments]))
	}
	head := stat.Mean(slopes[n-closureSegments:], nil)
	base := stat.Mean(slopes[:closureSegments], nil)
	return unit.Angle(head - base)
}
