package cirque

import "fmt"

// Sample is a single point of a profile as produced by the terrain sampler
type Sample struct {
	Distance  float64 `json:"distance" msgpack:"distance"` // cumulative planar length from the profile start
	Elevation float64 `json:"elevation" msgpack:"elevation"`
	X         float64 `json:"x" msgpack:"x"`
	Y         float64 `json:"y" msgpack:"y"`
}

// Profile is an ordered sequence of samples along a line
type Profile struct {
	ID       string   `json:"id" msgpack:"id"`
	Samples  []Sample `json:"samples" msgpack:"samples"`
	PlotRef  string   `json:"plot_ref,omitempty" msgpack:"plot_ref,omitempty"`
	Oriented bool     `json:"oriented,omitempty" msgpack:"oriented,omitempty"`
}

// Len returns the number of samples in the profile
func (p Profile) Len() int {
	return len(p.Samples)
}

// Elevations returns the elevation series of the samples
func Elevations(samples []Sample) []float64 {
	z := make([]float64, len(samples))
	for i, s := range samples {
		z[i] = s.Elevation
	}
	return z
}

// Distances returns the cumulative-length series of the samples
func Distances(samples []Sample) []float64 {
	d := make([]float64, len(samples))
	for i, s := range samples {
		d[i] = s.Distance
	}
	return d
}

// Role tags a segment with its place in the profile
type Role string

const (
	RoleLeftHalf  Role = "left-half"
	RoleRightHalf Role = "right-half"
	RoleHead      Role = "head" // run of samples above the floor band, used for convex detection
	RoleRefined   Role = "refined"
)

// Segment is a contiguous slice of a profile. Start and End are inclusive indices into
// the parent sample slice.
type Segment struct {
	Role    Role
	Start   int
	End     int
	Samples []Sample
}

// Len returns the number of samples in the segment
func (s Segment) Len() int {
	return len(s.Samples)
}

// PointType identifies how a boundary point was found
type PointType int

const (
	PointHighest PointType = 1
	PointConvex  PointType = 2
)

func (t PointType) String() string {
	switch t {
	case PointHighest:
		return "Highest"
	case PointConvex:
		return "Convex"
	default:
		return fmt.Sprintf("PointType(%d)", int(t))
	}
}

// MarshalText renders the point type by name
func (t PointType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a point type name
func (t *PointType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Highest":
		*t = PointHighest
	case "Convex":
		*t = PointConvex
	default:
		return fmt.Errorf("unknown point type %q", string(b))
	}
	return nil
}

// BoundaryPoint is a planar location where a cross-section line is cut
type BoundaryPoint struct {
	ProfileID string    `json:"profile_id" msgpack:"profile_id"`
	X         float64   `json:"x" msgpack:"x"`
	Y         float64   `json:"y" msgpack:"y"`
	Type      PointType `json:"type" msgpack:"type"`
}

// FitValue is the outcome of one curve fit inside a record. A failed fit keeps its
// reason in Err; the -999 sentinel is only produced when records are rendered for output.
type FitValue struct {
	A   float64
	B   float64
	R2  float64
	Err error
}

// OK reports whether the fit succeeded
func (f FitValue) OK() bool {
	return f.Err == nil
}

// Point is a planar coordinate
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// MetricRecord is the analysis result for one input profile
type MetricRecord struct {
	ProfileID    string
	PlotRef      string
	LowPoint     Point
	CrossSection *CrossSectionMetrics
	Halves       []HalfProfileMetrics
	Boundaries   []BoundaryPoint
	Err          error
}

// OK reports whether the record was computed without a per-profile failure
func (r MetricRecord) OK() bool {
	return r.Err == nil
}
