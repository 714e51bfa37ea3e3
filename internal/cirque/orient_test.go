package cirque

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		samples   []Sample
		wantElev  []float64
		wantDist  []float64
		wantFlips int
	}{
		{
			name:      "high to low is flipped",
			samples:   []Sample{{Distance: 0, Elevation: 100}, {Distance: 10, Elevation: 50}, {Distance: 30, Elevation: 0}},
			wantElev:  []float64{0, 50, 100},
			wantDist:  []float64{0, 20, 30},
			wantFlips: 1,
		},
		{
			name:     "low to high is unchanged",
			samples:  []Sample{{Distance: 0, Elevation: 0}, {Distance: 5, Elevation: 20}, {Distance: 12, Elevation: 40}},
			wantElev: []float64{0, 20, 40},
			wantDist: []float64{0, 5, 12},
		},
		{
			name:      "equal ends are flipped once",
			samples:   []Sample{{Distance: 0, Elevation: 10}, {Distance: 4, Elevation: 0}, {Distance: 10, Elevation: 10}},
			wantElev:  []float64{10, 0, 10},
			wantDist:  []float64{0, 6, 10},
			wantFlips: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, flips := NormalizeAll([]Profile{{ID: "p", Samples: tt.samples}})
			if flips != tt.wantFlips {
				t.Errorf("expected %d flips, got %d", tt.wantFlips, flips)
			}
			got := out[0]
			if !got.Oriented {
				t.Error("expected profile to be marked oriented")
			}
			if diff := cmp.Diff(tt.wantElev, Elevations(got.Samples)); diff != "" {
				t.Errorf("elevations mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantDist, Distances(got.Samples)); diff != "" {
				t.Errorf("distances mismatch (-want +got):\n%s", diff)
			}

			again := Normalize(got)
			if diff := cmp.Diff(got, again); diff != "" {
				t.Errorf("normalize is not idempotent (-first +second):\n%s", diff)
			}
		})
	}
}

func TestNormalizeKeepsAscendingSamples(t *testing.T) {
	samples := []Sample{{Distance: 0, Elevation: 0, X: 1}, {Distance: 5, Elevation: 20, X: 2}, {Distance: 12, Elevation: 40, X: 3}}
	in := Profile{ID: "p", PlotRef: "plot-1", Samples: samples}

	got := Normalize(in)
	if &got.Samples[0] != &samples[0] || len(got.Samples) != len(samples) {
		t.Error("expected the input sample slice to be returned as is")
	}
	if diff := cmp.Diff(samples, got.Samples); diff != "" {
		t.Errorf("samples changed (-want +got):\n%s", diff)
	}

	// only the bookkeeping flag differs from the input
	got.Oriented = false
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("profile changed (-want +got):\n%s", diff)
	}
}

func TestNormalizeDoesNotModifyInput(t *testing.T) {
	samples := []Sample{{Distance: 0, Elevation: 9}, {Distance: 1, Elevation: 3}}
	Normalize(Profile{Samples: samples})
	if samples[0].Elevation != 9 || samples[1].Distance != 1 {
		t.Errorf("input samples were modified: %+v", samples)
	}
}
