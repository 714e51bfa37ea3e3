package cirque

import (
	"math"
	"sort"
)

// MinTurningOffset is the smallest perpendicular offset a selected turning point may have
const MinTurningOffset = 0.01

// TurningPoint is a convex break in a profile, located in the (distance, elevation) plane
type TurningPoint struct {
	Index     int     // index into the examined sample slice
	Offset    float64 // signed perpendicular distance to the chord it was found against
	Along     float64 // cumulative length of the sample
	Elevation float64
}

// TurningParams controls detection and selection of turning points
type TurningParams struct {
	Epsilon       float64 // minimum |offset| for a range to be split further
	Count         int     // maximum number of points to emit
	ClusterRadius float64 // candidates closer than this along the profile are suppressed
}

// DefaultTurningParams returns the detector settings used for convex boundary detection
func DefaultTurningParams(cellsize float64) TurningParams {
	return TurningParams{
		Epsilon:       0.01,
		Count:         1,
		ClusterRadius: math.Trunc(cellsize) * 3,
	}
}

type indexRange struct {
	start, end int
}

// DetectTurningPoints runs a Ramer–Douglas–Peucker style search over the samples and
// returns every convex candidate it encounters.
//
// Each range is measured against the chord joining its first and last sample. The
// interior sample farthest from the chord splits the range when its distance exceeds
// epsilon; it is emitted only when it lies on the positive (convex) side. Ranges are
// processed from an explicit stack in the same left-first order as a recursive search.
func DetectTurningPoints(samples []Sample, epsilon float64) []TurningPoint {
	var candidates []TurningPoint
	if len(samples) < 3 {
		return candidates
	}

	stack := []indexRange{{0, len(samples) - 1}}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if r.end-r.start+1 < 3 {
			continue
		}

		first, last := samples[r.start], samples[r.end]
		cx := last.Distance - first.Distance
		cy := last.Elevation - first.Elevation
		norm := math.Hypot(cx, cy)
		if norm == 0 {
			continue
		}

		maxIdx := -1
		maxOffset := 0.0
		for i := r.start + 1; i < r.end; i++ {
			px := samples[i].Distance - first.Distance
			py := samples[i].Elevation - first.Elevation
			offset := (cx*py - cy*px) / norm
			if maxIdx < 0 || math.Abs(offset) > math.Abs(maxOffset) {
				maxIdx = i
				maxOffset = offset
			}
		}

		if math.Abs(maxOffset) <= epsilon {
			continue
		}
		if maxOffset > 0 {
			candidates = append(candidates, TurningPoint{
				Index:     maxIdx,
				Offset:    maxOffset,
				Along:     samples[maxIdx].Distance,
				Elevation: samples[maxIdx].Elevation,
			})
		}

		// right first so that the left range is popped next
		stack = append(stack, indexRange{maxIdx, r.end}, indexRange{r.start, maxIdx})
	}

	return candidates
}

// SelectTurningPoints picks up to n of the strongest candidates. After each pick every
// remaining candidate within clusterRadius of it along the profile is discarded, and
// selection stops once the strongest remaining offset drops below MinTurningOffset.
// Each emitted point is mapped back to the sample whose elevation is closest to it.
func SelectTurningPoints(samples []Sample, candidates []TurningPoint, n int, clusterRadius float64) []TurningPoint {
	order := make([]TurningPoint, len(candidates))
	copy(order, candidates)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Offset > order[j].Offset
	})

	var selected []TurningPoint
	for len(selected) < n && len(order) > 0 {
		best := order[0]
		if best.Offset < MinTurningOffset {
			break
		}

		best.Index = resolveIndex(samples, best)
		selected = append(selected, best)

		remaining := order[:0]
		for _, c := range order[1:] {
			if math.Abs(c.Along-best.Along) >= clusterRadius {
				remaining = append(remaining, c)
			}
		}
		order = remaining
	}

	return selected
}

// TurningPoints detects and selects turning points in one call
func TurningPoints(samples []Sample, p TurningParams) []TurningPoint {
	return SelectTurningPoints(samples, DetectTurningPoints(samples, p.Epsilon), p.Count, p.ClusterRadius)
}

// resolveIndex finds the first sample whose elevation is closest to the candidate's.
// A match further than one elevation unit away falls back to the candidate's own index.
func resolveIndex(samples []Sample, tp TurningPoint) int {
	best := -1
	bestDiff := math.Inf(1)
	for i, s := range samples {
		d := math.Abs(s.Elevation - tp.Elevation)
		if d < bestDiff {
			best, bestDiff = i, d
		}
	}
	if best < 0 || bestDiff >= 1 {
		return tp.Index
	}
	return best
}
