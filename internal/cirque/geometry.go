// Package cirque computes morphometric indices for glacial-cirque profiles: turning
// point detection, profile segmentation, orientation and the derived shape metrics.
package cirque

import "math"

// Distance returns the planar distance between two samples
func Distance(a, b Sample) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// CumulativeLength assigns each sample the running planar length from the first sample
func CumulativeLength(samples []Sample) {
	total := 0.0
	for i := range samples {
		if i > 0 {
			total += Distance(samples[i-1], samples[i])
		}
		samples[i].Distance = total
	}
}

// LineLength returns the total planar length of the samples
func LineLength(samples []Sample) float64 {
	total := 0.0
	for i := 1; i < len(samples); i++ {
		total += Distance(samples[i-1], samples[i])
	}
	return total
}

// InterpolateAtElevation linearly interpolates the planar position at which the segment
// between two samples reaches the target elevation. When both samples have the same
// elevation the coordinates of the sample nearer to the target are returned.
func InterpolateAtElevation(below, above Sample, target float64) (x, y float64) {
	dz := above.Elevation - below.Elevation
	if dz == 0 {
		if math.Abs(above.Elevation-target) < math.Abs(below.Elevation-target) {
			return above.X, above.Y
		}
		return below.X, below.Y
	}
	t := (target - below.Elevation) / dz
	return below.X + (above.X-below.X)*t, below.Y + (above.Y-below.Y)*t
}
