package cirque

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDetectTurningPoints(t *testing.T) {
	tests := []struct {
		name        string
		samples     []Sample
		wantIndexes []int
	}{
		{
			name:    "too short",
			samples: line(10, 0, 5),
		},
		{
			name:    "straight line",
			samples: line(1, 0, 2, 4, 6, 8, 10, 12),
		},
		{
			name:        "single bump",
			samples:     line(1, 0, 0, 5, 0, 0),
			wantIndexes: []int{2},
		},
		{
			name:    "concave only",
			samples: line(1, 4, 2, 0, 2, 4),
		},
		{
			name:        "shoulder above chord",
			samples:     line(10, 100, 97.5, 95, 92.5, 90, 67.5, 45, 22.5),
			wantIndexes: []int{4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectTurningPoints(tt.samples, 0.01)
			var idx []int
			for _, tp := range got {
				if tp.Offset <= 0 {
					t.Errorf("candidate %d has non-positive offset %v", tp.Index, tp.Offset)
				}
				idx = append(idx, tp.Index)
			}
			if len(idx) > 0 || len(tt.wantIndexes) > 0 {
				if diff := cmp.Diff(tt.wantIndexes, idx); diff != "" {
					t.Errorf("candidate indexes mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestSelectTurningPoints(t *testing.T) {
	samples := make([]Sample, 11)
	for i := range samples {
		samples[i] = Sample{Distance: float64(i) * 10, Elevation: float64(i) * 10}
	}
	candidates := []TurningPoint{
		{Index: 1, Offset: 5, Along: 10, Elevation: 10},
		{Index: 2, Offset: 4, Along: 15, Elevation: 20},
		{Index: 5, Offset: 3, Along: 50, Elevation: 50},
		{Index: 9, Offset: 0.005, Along: 100, Elevation: 90},
	}

	tests := []struct {
		name   string
		n      int
		radius float64
		want   []int
	}{
		{name: "cluster suppressed and floor applied", n: 3, radius: 10, want: []int{1, 5}},
		{name: "capped", n: 1, radius: 10, want: []int{1}},
		{name: "no suppression", n: 3, radius: 1, want: []int{1, 2, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectTurningPoints(samples, candidates, tt.n, tt.radius)
			var idx []int
			for _, tp := range got {
				idx = append(idx, tp.Index)
			}
			if diff := cmp.Diff(tt.want, idx); diff != "" {
				t.Errorf("selected indexes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectTurningPointsResolvesByElevation(t *testing.T) {
	samples := line(1, 0, 3, 7, 3, 0)
	candidates := []TurningPoint{{Index: 0, Offset: 2, Along: 2, Elevation: 6.5}}

	got := SelectTurningPoints(samples, candidates, 1, 3)
	if len(got) != 1 || got[0].Index != 2 {
		t.Fatalf("expected the sample at index 2, got %+v", got)
	}

	// no sample within one unit of elevation keeps the candidate's index
	candidates[0].Elevation = 20
	got = SelectTurningPoints(samples, candidates, 1, 3)
	if len(got) != 1 || got[0].Index != 0 {
		t.Fatalf("expected the candidate index to be kept, got %+v", got)
	}
}

func TestTurningPointsLongProfile(t *testing.T) {
	const n = 100000
	samples := make([]Sample, n)
	for i := range samples {
		d := float64(i)
		samples[i] = Sample{Distance: d, Elevation: 100 * math.Sin(2*math.Pi*d/20000)}
	}

	got := TurningPoints(samples, TurningParams{Epsilon: 0.01, Count: 3, ClusterRadius: 30})
	if len(got) != 3 {
		t.Fatalf("expected 3 turning points, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Offset > got[i-1].Offset {
			t.Errorf("turning points not ordered by offset: %v before %v", got[i-1].Offset, got[i].Offset)
		}
	}
}
