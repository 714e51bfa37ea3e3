package cirque

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrissnell/cirquemetrics/pkg/fit"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// guard keeps ratios finite when the denominator height is zero
const guard = 0.001

// bandInterval is the elevation step used to sample width/depth ratios
const bandInterval = 10.0

var (
	ErrTooFewSamples = errors.New("profile has fewer than 2 samples")
	ErrFlatProfile   = errors.New("profile has no elevation range")
	ErrZeroLength    = errors.New("profile has zero planar length")
)

// CrossSectionMetrics holds the shape indices of a full cross section
type CrossSectionMetrics struct {
	ProfileID string
	Length    float64 // planar line length
	Height    float64 // elevation range
	Integral  float64 // hypsometric integral weighted by side
	WHRatio   float64
	Asymmetry float64
	HHRatio   float64
	VIndex    float64
	VWDR      FitValue // A = a, B = b of width/depth = a·depth^b
	Quad      FitValue // A = leading coefficient of the quadratic fit
}

type side struct {
	samples []Sample
	weight  float64
	max     float64
}

// ComputeCrossSection derives the cross-section indices of a profile. The profile is
// divided at its lowest sample into a left and a right side.
func ComputeCrossSection(p Profile) (CrossSectionMetrics, error) {
	s := p.Samples
	n := len(s)
	if n < 2 {
		return CrossSectionMetrics{}, ErrTooFewSamples
	}

	z := Elevations(s)
	m := floats.MinIdx(z)
	zMin := z[m]
	zMax := floats.Max(z)
	length := s[n-1].Distance - s[0].Distance
	height := zMax - zMin
	if height == 0 {
		return CrossSectionMetrics{}, ErrFlatProfile
	}
	if length <= 0 {
		return CrossSectionMetrics{}, ErrZeroLength
	}

	out := CrossSectionMetrics{
		ProfileID: p.ID,
		Length:    length,
		Height:    height,
		WHRatio:   length / height,
	}

	totalSections := float64(n - 1)
	var sides []side
	var leftWeight float64
	if m > 0 {
		left := side{samples: s[:m+1], weight: float64(m) / totalSections}
		leftWeight = left.weight
		sides = append(sides, left)
	}
	if m < n-1 {
		sides = append(sides, side{samples: s[m:], weight: float64(n-1-m) / totalSections})
	}

	var totalWeight, sumHeights, sumUnder float64
	for i := range sides {
		sd := &sides[i]
		sz := Elevations(sd.samples)
		sd.max = floats.Max(sz)
		h := sd.max - zMin
		pr := (stat.Mean(sz, nil) - zMin) / (h + guard)
		out.Integral += sd.weight * pr
		totalWeight += sd.weight

		span := sd.samples[len(sd.samples)-1].Distance - sd.samples[0].Distance
		sumHeights += h
		sumUnder += h * span * 0.5
	}
	out.Asymmetry = leftWeight / totalWeight

	out.HHRatio = (z[0] - zMin) / (z[n-1] - zMin + guard)

	// The V reference spans the profile between the two side peaks; the profile's
	// own opening is that area minus the ground lying above the minimum.
	totalArea := sumHeights * length
	if len(sides) > 1 {
		totalArea *= 0.5
	}
	vArea := totalArea - sumUnder
	if vArea == 0 {
		vArea = guard
	}
	crossArea := totalArea - trapezoidArea(s, zMin)
	out.VIndex = crossArea/vArea - 1

	out.VWDR = widthDepthRatio(s, zMin, sides)

	quad, err := fit.Polynomial(Distances(s), z, 2)
	out.Quad = fitValue(quad, err, func(r fit.Result) (float64, float64) {
		return r.Coefficients[0], r.Coefficients[1]
	})

	return out, nil
}

// trapezoidArea integrates the height above base along the profile distance
func trapezoidArea(s []Sample, base float64) float64 {
	area := 0.0
	for i := 1; i < len(s); i++ {
		dx := s[i].Distance - s[i-1].Distance
		area += dx * ((s[i-1].Elevation - base) + (s[i].Elevation - base)) / 2
	}
	return area
}

// widthDepthRatio samples the cross section every bandInterval units above the floor
// and fits width/depth = a·depth^b.
func widthDepthRatio(s []Sample, zMin float64, sides []side) FitValue {
	if len(sides) == 0 {
		return FitValue{Err: ErrTooFewSamples}
	}
	maxElev := math.Min(sides[0].max, sides[len(sides)-1].max)
	if maxElev < zMin+bandInterval {
		maxElev = math.Max(sides[0].max, sides[len(sides)-1].max)
	}

	bands := int((maxElev - zMin) / bandInterval)
	depths := make([]float64, 0, bands)
	ratios := make([]float64, 0, bands)
	for i := 0; i < bands; i++ {
		elev := math.Min(zMin+float64(i+1)*bandInterval, maxElev)
		width, ok := bandWidth(s, elev)
		if !ok {
			continue
		}
		depth := elev - zMin
		depths = append(depths, depth)
		ratios = append(ratios, width/depth)
	}

	res, err := fit.PowerLaw(depths, ratios)
	return fitValue(res, err, func(r fit.Result) (float64, float64) {
		return r.Coefficients[0], r.Coefficients[1]
	})
}

// bandWidth returns the planar distance between the outermost crossings of elev
func bandWidth(s []Sample, elev float64) (float64, bool) {
	first, last := -1, -1
	for i := range s {
		if s[i].Elevation < elev {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, false
	}

	x1, y1 := s[first].X, s[first].Y
	if first > 0 {
		x1, y1 = InterpolateAtElevation(s[first], s[first-1], elev)
	}
	x2, y2 := s[last].X, s[last].Y
	if last < len(s)-1 {
		x2, y2 = InterpolateAtElevation(s[last], s[last+1], elev)
	}
	return math.Hypot(x2-x1, y2-y1), true
}

func fitValue(r fit.Result, err error, ab func(fit.Result) (float64, float64)) FitValue {
	if err != nil {
		return FitValue{Err: err}
	}
	a, b := ab(r)
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return FitValue{Err: fmt.Errorf("%w: coefficients", fit.ErrNonFinite)}
	}
	return FitValue{A: a, B: b, R2: r.RSquared}
}
