package cirque

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// BoundaryMode selects which boundary points are used to cut the cross sections
type BoundaryMode string

const (
	BoundaryNone    BoundaryMode = "none"
	BoundaryHighest BoundaryMode = "highest"
	BoundaryConvex  BoundaryMode = "convex"
)

// ParseBoundaryMode converts a configuration string to a BoundaryMode
func ParseBoundaryMode(s string) (BoundaryMode, error) {
	switch BoundaryMode(s) {
	case "", BoundaryNone:
		return BoundaryNone, nil
	case BoundaryHighest:
		return BoundaryHighest, nil
	case BoundaryConvex:
		return BoundaryConvex, nil
	default:
		return "", fmt.Errorf("unknown boundary mode %q (want none, highest or convex)", s)
	}
}

const (
	// DefaultMinHalfSamples is the smallest half-profile used for boundary detection
	DefaultMinHalfSamples = 5

	// minHeadSamples is the smallest run above the floor band examined for convex points
	minHeadSamples = 3

	// BoundaryTolerance is the planar distance within which a boundary point cuts a line
	BoundaryTolerance = 1.0
)

// SegmentParams controls boundary detection on a cross section
type SegmentParams struct {
	Mode           BoundaryMode
	MinHalfSamples int
	MinHeight      float64 // height above the profile minimum below which convex points are ignored
	CellSize       float64 // terrain resolution; sets the shortest profile that is split
	Turning        TurningParams
}

// MinIndex returns the index of the lowest sample, the first one on ties
func MinIndex(samples []Sample) int {
	return floats.MinIdx(Elevations(samples))
}

// MaxIndex returns the index of the highest sample, the first one on ties
func MaxIndex(samples []Sample) int {
	return floats.MaxIdx(Elevations(samples))
}

// SplitAtMinimum cuts the samples at the global minimum. The minimum terminates both
// halves. Halves with fewer than minSamples samples are dropped.
func SplitAtMinimum(samples []Sample, minSamples int) []Segment {
	if len(samples) == 0 {
		return nil
	}
	m := MinIndex(samples)
	n := len(samples)

	var halves []Segment
	if m+1 >= minSamples {
		halves = append(halves, Segment{Role: RoleLeftHalf, Start: 0, End: m, Samples: samples[:m+1]})
	}
	if n-m >= minSamples {
		halves = append(halves, Segment{Role: RoleRightHalf, Start: m, End: n - 1, Samples: samples[m:]})
	}
	return halves
}

// HighestPoint returns the index of the highest sample within the segment
func HighestPoint(seg Segment) int {
	return MaxIndex(seg.Samples)
}

// crestToFloor returns a copy of the half running from its highest sample down to the
// low end, with distance measured from the crest.
func crestToFloor(half Segment) []Sample {
	s := half.Samples
	idx := HighestPoint(half)

	var out []Sample
	if s[0].Elevation > s[len(s)-1].Elevation {
		out = append(out, s[idx:]...)
		base := out[0].Distance
		for i := range out {
			out[i].Distance -= base
		}
		return out
	}

	top := s[idx].Distance
	for i := idx; i >= 0; i-- {
		p := s[i]
		p.Distance = top - p.Distance
		out = append(out, p)
	}
	return out
}

// HeadRuns returns the runs of consecutive samples lying above threshold that have at
// least three samples
func HeadRuns(samples []Sample, threshold float64) []Segment {
	var runs []Segment
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start+1 >= minHeadSamples {
			runs = append(runs, Segment{Role: RoleHead, Start: start, End: end, Samples: samples[start : end+1]})
		}
		start = -1
	}
	for i, s := range samples {
		if s.Elevation > threshold {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i - 1)
	}
	flush(len(samples) - 1)
	return runs
}

// ConvexPoints finds the most prominent convex turning points of a half-profile above
// the floor band [zMin, zMin+MinHeight], strongest first. At most Turning.Count points
// are returned across all head runs of the half.
func ConvexPoints(half Segment, zMin float64, p SegmentParams) []Sample {
	if half.Len() < 2 {
		return nil
	}
	count := p.Turning.Count
	if count <= 0 {
		count = 1
	}

	type found struct {
		sample Sample
		offset float64
	}
	var all []found
	for _, run := range HeadRuns(crestToFloor(half), zMin+p.MinHeight) {
		params := p.Turning
		params.Count = count
		for _, tp := range TurningPoints(run.Samples, params) {
			all = append(all, found{sample: run.Samples[tp.Index], offset: tp.Offset})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].offset > all[j].offset
	})
	if len(all) > count {
		all = all[:count]
	}

	points := make([]Sample, len(all))
	for i, f := range all {
		points[i] = f.sample
	}
	return points
}

// DetectBoundaries returns the boundary points of a cross section: the highest point of
// each half and, in convex mode, each half's most prominent convex points. Profiles
// shorter than MinHalfLength(CellSize) are not split and yield no points.
func DetectBoundaries(p Profile, sp SegmentParams) []BoundaryPoint {
	n := len(p.Samples)
	if sp.Mode == BoundaryNone || sp.Mode == "" || n < 2 {
		return nil
	}
	if p.Samples[n-1].Distance-p.Samples[0].Distance < MinHalfLength(sp.CellSize) {
		return nil
	}
	minSamples := sp.MinHalfSamples
	if minSamples <= 0 {
		minSamples = DefaultMinHalfSamples
	}

	zMin := p.Samples[MinIndex(p.Samples)].Elevation

	var points []BoundaryPoint
	for _, half := range SplitAtMinimum(p.Samples, minSamples) {
		hi := half.Samples[HighestPoint(half)]
		points = append(points, BoundaryPoint{ProfileID: p.ID, X: hi.X, Y: hi.Y, Type: PointHighest})

		if sp.Mode != BoundaryConvex {
			continue
		}
		for _, cp := range ConvexPoints(half, zMin, sp) {
			points = append(points, BoundaryPoint{ProfileID: p.ID, X: cp.X, Y: cp.Y, Type: PointConvex})
		}
	}
	return points
}

// Refine cuts the profile at every boundary point lying within tolerance of one of its
// samples and keeps the piece that contains the lowest sample. Boundary points that do
// not touch the line are ignored.
func Refine(p Profile, boundaries []BoundaryPoint, tolerance float64) Profile {
	n := len(p.Samples)
	if n < 2 || len(boundaries) == 0 {
		return p
	}
	m := MinIndex(p.Samples)

	lo, hi := 0, n-1
	for _, b := range boundaries {
		idx := nearestSample(p.Samples, b, tolerance)
		switch {
		case idx < 0 || idx == m:
		case idx < m && idx > lo:
			lo = idx
		case idx > m && idx < hi:
			hi = idx
		}
	}
	if lo == 0 && hi == n-1 {
		return p
	}

	out := p
	out.Samples = make([]Sample, hi-lo+1)
	copy(out.Samples, p.Samples[lo:hi+1])
	base := out.Samples[0].Distance
	for i := range out.Samples {
		out.Samples[i].Distance -= base
	}
	return out
}

func nearestSample(samples []Sample, b BoundaryPoint, tolerance float64) int {
	best := -1
	bestDist := tolerance
	for i, s := range samples {
		d := math.Hypot(s.X-b.X, s.Y-b.Y)
		if d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// MinHalfLength is the shortest half-profile, in distance units, worth characterizing
func MinHalfLength(cellsize float64) float64 {
	return math.Max(3*cellsize, 100)
}

// HalfProfiles splits the profile at its global minimum into left and right halves for
// the half-profile metrics. Halves shorter than MinHalfLength(cellsize) are dropped.
// Distances of each half restart at zero.
func HalfProfiles(p Profile, cellsize float64) []Profile {
	n := len(p.Samples)
	if n < 2 {
		return nil
	}
	m := MinIndex(p.Samples)
	minLen := MinHalfLength(cellsize)

	var halves []Profile
	add := func(role Role, part []Sample) {
		if len(part) < 2 || part[len(part)-1].Distance-part[0].Distance < minLen {
			return
		}
		samples := make([]Sample, len(part))
		copy(samples, part)
		base := samples[0].Distance
		for i := range samples {
			samples[i].Distance -= base
		}
		halves = append(halves, Profile{
			ID:      fmt.Sprintf("%s/%s", p.ID, role),
			Samples: samples,
			PlotRef: p.PlotRef,
		})
	}
	add(RoleLeftHalf, p.Samples[:m+1])
	add(RoleRightHalf, p.Samples[m:])
	return halves
}
