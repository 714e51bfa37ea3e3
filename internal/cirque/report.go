package cirque

import (
	"sort"

	"github.com/google/uuid"
)

// Failure names a profile whose analysis did not produce a cross section
type Failure struct {
	ProfileID string `json:"profile_id" msgpack:"profile_id"`
	Error     string `json:"error" msgpack:"error"`
}

// Report is the rendered output of a batch, ordered by profile ID
type Report struct {
	RunID         uuid.UUID         `json:"run_id" msgpack:"run_id"`
	CrossSections []CrossSectionRow `json:"cross_sections" msgpack:"cross_sections"`
	HalfProfiles  []HalfProfileRow  `json:"half_profiles" msgpack:"half_profiles"`
	Boundaries    []BoundaryPoint   `json:"boundaries,omitempty" msgpack:"boundaries,omitempty"`
	LowPoints     []LowPoint        `json:"low_points" msgpack:"low_points"`
	Failures      []Failure         `json:"failures,omitempty" msgpack:"failures,omitempty"`
}

// LowPoint is the planar location of a profile's lowest sample
type LowPoint struct {
	ProfileID string  `json:"profile_id" msgpack:"profile_id"`
	X         float64 `json:"x" msgpack:"x"`
	Y         float64 `json:"y" msgpack:"y"`
}

// NewReport renders every record of the batch
func NewReport(res *BatchResult) Report {
	ids := make([]string, 0, len(res.Records))
	for id := range res.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rep := Report{
		RunID:         res.RunID,
		CrossSections: []CrossSectionRow{},
		HalfProfiles:  []HalfProfileRow{},
		Boundaries:    res.Boundaries,
		LowPoints:     []LowPoint{},
	}
	for _, id := range ids {
		rec := res.Records[id]
		if !rec.OK() {
			rep.Failures = append(rep.Failures, Failure{ProfileID: id, Error: rec.Err.Error()})
			continue
		}
		cs, halves := rec.Rows()
		if cs != nil {
			rep.CrossSections = append(rep.CrossSections, *cs)
		}
		rep.HalfProfiles = append(rep.HalfProfiles, halves...)
		rep.LowPoints = append(rep.LowPoints, LowPoint{ProfileID: id, X: rec.LowPoint.X, Y: rec.LowPoint.Y})
	}
	return rep
}
