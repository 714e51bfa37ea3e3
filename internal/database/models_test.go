package database

import (
	"testing"
	"time"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestRowsRoundTrip(t *testing.T) {
	rep := cirque.Report{
		RunID: uuid.New(),
		CrossSections: []cirque.CrossSectionRow{
			{ProfileID: "a", PlotRef: "plot-1", Length: 40, VIndex: 0.1, QuadC: cirque.Sentinel},
		},
		HalfProfiles: []cirque.HalfProfileRow{
			{ProfileID: "a/left-half", ParentID: "a", Aspect: 270, KCurveC: 1.5},
		},
		Boundaries: []cirque.BoundaryPoint{{ProfileID: "a", X: 3, Y: 4, Type: cirque.PointConvex}},
		LowPoints:  []cirque.LowPoint{{ProfileID: "a", X: 20}},
		Failures:   []cirque.Failure{{ProfileID: "b", Error: "profile has fewer than 2 samples"}},
	}

	rows := RowsFromReport(rep, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	if rows.Run.Profiles != 2 || rows.Run.Failures != 1 {
		t.Errorf("unexpected run counts %+v", rows.Run)
	}
	if rows.Boundaries[0].RunID != rep.RunID {
		t.Errorf("boundary row not linked to run")
	}

	if diff := cmp.Diff(rep, rows.Report()); diff != "" {
		t.Errorf("report mismatch after conversion (-want +got):\n%s", diff)
	}
}
