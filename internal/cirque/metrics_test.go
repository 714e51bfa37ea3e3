package cirque

import (
	"errors"
	"math"
	"testing"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uProfile is a parabolic valley 400 units across and 400 units deep
func uProfile(id string) Profile {
	z := make([]float64, 21)
	for i := range z {
		x := float64(i) * 20
		z[i] = (x - 200) * (x - 200) / 100
	}
	return Profile{ID: id, Samples: line(20, z...)}
}

func TestComputeCrossSection(t *testing.T) {
	tests := []struct {
		name      string
		samples   []Sample
		wh        float64
		asymmetry float64
		hh        float64
		vIndex    float64
		checkV    bool
	}{
		{
			name:      "rounded v",
			samples:   line(10, 50, 20, 0, 20, 50),
			wh:        0.8,
			asymmetry: 0.5,
			hh:        1,
			vIndex:    0.1,
			checkV:    true,
		},
		{
			name:      "straight sided v",
			samples:   line(10, 50, 25, 0, 25, 50),
			wh:        0.8,
			asymmetry: 0.5,
			hh:        1,
			vIndex:    0,
			checkV:    true,
		},
		{
			name:      "asymmetric",
			samples:   line(10, 60, 30, 0, 20, 40, 50),
			wh:        50.0 / 60.0,
			asymmetry: 0.4,
			hh:        60.0 / 50.001,
		},
		{
			name:      "no left side",
			samples:   line(10, 0, 10, 20, 30),
			wh:        1,
			asymmetry: 0,
			hh:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ComputeCrossSection(Profile{ID: tt.name, Samples: tt.samples})
			require.NoError(t, err)

			assert.InDelta(t, tt.wh, m.WHRatio, 1e-9)
			assert.InDelta(t, tt.asymmetry, m.Asymmetry, 1e-9)
			assert.InDelta(t, tt.hh, m.HHRatio, 1e-4)
			if tt.checkV {
				assert.InDelta(t, tt.vIndex, m.VIndex, 1e-9)
			}
			assert.True(t, m.Quad.OK(), "quadratic fit failed: %v", m.Quad.Err)
		})
	}
}

func TestComputeCrossSectionIntegral(t *testing.T) {
	m, err := ComputeCrossSection(Profile{Samples: line(10, 50, 20, 0, 20, 50)})
	require.NoError(t, err)

	// each side averages (50+20+0)/3 over a height of 50
	assert.InDelta(t, 70.0/3/50.001, m.Integral, 1e-9)
	assert.InDelta(t, 40.0, m.Length, 1e-9)
	assert.InDelta(t, 50.0, m.Height, 1e-9)
}

func TestComputeCrossSectionWidthDepth(t *testing.T) {
	m, err := ComputeCrossSection(Profile{Samples: line(10, 50, 20, 0, 20, 50)})
	require.NoError(t, err)
	require.True(t, m.VWDR.OK(), "width/depth fit failed: %v", m.VWDR.Err)

	// the valley narrows relative to its depth as it deepens
	assert.Less(t, m.VWDR.B, 0.0)
	assert.Greater(t, m.VWDR.A, 0.0)
}

func TestComputeCrossSectionErrors(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		want    error
	}{
		{name: "single sample", samples: line(10, 5), want: ErrTooFewSamples},
		{name: "flat", samples: line(10, 5, 5, 5), want: ErrFlatProfile},
		{name: "zero length", samples: line(0, 5, 0, 5), want: ErrZeroLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeCrossSection(Profile{Samples: tt.samples})
			assert.True(t, errors.Is(err, tt.want), "expected %v, got %v", tt.want, err)
		})
	}
}

func TestComputeHalfProfile(t *testing.T) {
	halves := HalfProfiles(uProfile("u"), 10)
	require.Len(t, halves, 2)

	wantAspect := []float64{90, 270}
	for i, half := range halves {
		t.Run(half.ID, func(t *testing.T) {
			m, err := ComputeHalfProfile(half)
			require.NoError(t, err)

			assert.Equal(t, half.ID, m.ProfileID)
			assert.InDelta(t, 200.0, m.Length, 1e-9)
			assert.InDelta(t, 400.0, m.Height, 1e-9)
			assert.InDelta(t, 0.5, m.WHRatio, 1e-9)
			assert.InDelta(t, 140/400.001, m.Integral, 1e-9)
			assert.InDelta(t, math.Atan(2)*180/math.Pi, m.Gradient.Deg(), 1e-9)
			assert.InDelta(t, wantAspect[i], m.Aspect.Deg(), 1e-9)
			assert.Greater(t, m.Closure.Deg(), 0.0)

			require.True(t, m.PowerLaw.OK(), "power law fit failed: %v", m.PowerLaw.Err)
			assert.InDelta(t, 0.01, m.PowerLaw.A, 1e-9)
			assert.InDelta(t, 2.0, m.PowerLaw.B, 1e-9)
			assert.InDelta(t, 1.0, m.PowerLaw.R2, 1e-9)

			assert.True(t, m.Exponential.OK(), "exponential fit failed: %v", m.Exponential.Err)
			assert.True(t, m.SL.OK(), "SL fit failed: %v", m.SL.Err)
		})
	}
}

func TestAspect(t *testing.T) {
	tests := []struct {
		name        string
		first, last Sample
		want        float64
	}{
		{name: "facing east", first: Sample{X: 10}, last: Sample{X: 0}, want: 90},
		{name: "facing north", first: Sample{Y: 10}, last: Sample{Y: 0}, want: 0},
		{name: "facing west", first: Sample{X: 0}, last: Sample{X: 10}, want: 270},
		{name: "facing south", first: Sample{Y: 0}, last: Sample{Y: 10}, want: 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Aspect(tt.first, tt.last).Deg(), 1e-9)
		})
	}
}

func TestClosure(t *testing.T) {
	deg := func(slope float64) float64 {
		return math.Atan(slope) * 180 / math.Pi
	}

	tests := []struct {
		name    string
		samples []Sample
		want    float64
	}{
		{
			name:    "three gentle then three steep segments",
			samples: line(10, 0, 1, 2, 3, 13, 23, 33),
			want:    deg(1) - deg(0.1),
		},
		{
			name:    "five segments compare the ends",
			samples: line(10, 0, 1, 3, 6, 1, 11),
			want:    deg(1) - deg(0.1),
		},
		{
			name:    "four segments overlap at the ends",
			samples: line(10, 0, 5, 6, 8, 11),
			want:    deg(0.3) - deg(0.1),
		},
		{
			name:    "short profiles use the spread of their slopes",
			samples: line(10, 0, 1, 11),
			want:    deg(1) - deg(0.1),
		},
		{
			name:    "zero-length segments are skipped",
			samples: line(0, 0, 5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Closure(tt.samples).Deg(), 1e-9)
		})
	}
}

func TestRows(t *testing.T) {
	failed := errors.New("fit failed")
	rec := MetricRecord{
		ProfileID: "p1",
		PlotRef:   "plot-7",
		CrossSection: &CrossSectionMetrics{
			ProfileID: "p1",
			Length:    123.456,
			Asymmetry: 0.45678,
			VWDR:      FitValue{A: 1.234567, B: -0.98767, R2: 0.912345},
			Quad:      FitValue{Err: failed},
		},
		Halves: []HalfProfileMetrics{
			{ProfileID: "p1/left-half", Aspect: unit.AngleFromDeg(271.26), KCurve: FitValue{Err: failed}},
		},
	}

	cs, halves := rec.Rows()
	require.NotNil(t, cs)
	assert.Equal(t, "plot-7", cs.PlotRef)
	assert.Equal(t, 123.5, cs.Length)
	assert.Equal(t, 0.457, cs.Asymmetry)
	assert.Equal(t, 1.2346, cs.VWDRA)
	assert.Equal(t, -0.9877, cs.VWDRB)
	assert.Equal(t, 0.9123, cs.VWDRR2)
	assert.Equal(t, Sentinel, cs.QuadC)
	assert.Equal(t, Sentinel, cs.QuadR2)

	require.Len(t, halves, 1)
	assert.Equal(t, "p1", halves[0].ParentID)
	assert.Equal(t, 271.3, halves[0].Aspect)
	assert.Equal(t, Sentinel, halves[0].KCurveC)
	assert.Equal(t, Sentinel, halves[0].KCurveR2)

	cs, _ = MetricRecord{ProfileID: "p2", Err: failed}.Rows()
	assert.Nil(t, cs)
}
