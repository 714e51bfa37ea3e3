package cirque

import "math"

// Sentinel marks a failed fit in rendered output
const Sentinel = -999.0

// CrossSectionRow is a cross-section record rounded for output
type CrossSectionRow struct {
	ProfileID string  `json:"profile_id" msgpack:"profile_id"`
	PlotRef   string  `json:"plot_ref,omitempty" msgpack:"plot_ref,omitempty"`
	Length    float64 `json:"length" msgpack:"length"`
	Height    float64 `json:"height" msgpack:"height"`
	Integral  float64 `json:"integral" msgpack:"integral"`
	WHRatio   float64 `json:"wh_ratio" msgpack:"wh_ratio"`
	Asymmetry float64 `json:"asymmetry" msgpack:"asymmetry"`
	HHRatio   float64 `json:"hh_ratio" msgpack:"hh_ratio"`
	VIndex    float64 `json:"v_index" msgpack:"v_index"`
	QuadC     float64 `json:"quad_c" msgpack:"quad_c"`
	QuadR2    float64 `json:"quad_r2" msgpack:"quad_r2"`
	VWDRA     float64 `json:"vwdr_a" msgpack:"vwdr_a"`
	VWDRB     float64 `json:"vwdr_b" msgpack:"vwdr_b"`
	VWDRR2    float64 `json:"vwdr_r2" msgpack:"vwdr_r2"`
}

// HalfProfileRow is a half-profile record rounded for output
type HalfProfileRow struct {
	ProfileID string  `json:"profile_id" msgpack:"profile_id"`
	ParentID  string  `json:"parent_id" msgpack:"parent_id"`
	Length    float64 `json:"length" msgpack:"length"`
	Height    float64 `json:"height" msgpack:"height"`
	WHRatio   float64 `json:"wh_ratio" msgpack:"wh_ratio"`
	Integral  float64 `json:"integral" msgpack:"integral"`
	Closure   float64 `json:"closure" msgpack:"closure"`
	Aspect    float64 `json:"aspect" msgpack:"aspect"`
	Gradient  float64 `json:"gradient" msgpack:"gradient"`
	ExpA      float64 `json:"exp_a" msgpack:"exp_a"`
	ExpB      float64 `json:"exp_b" msgpack:"exp_b"`
	ExpR2     float64 `json:"exp_r2" msgpack:"exp_r2"`
	PowA      float64 `json:"pow_a" msgpack:"pow_a"`
	PowB      float64 `json:"pow_b" msgpack:"pow_b"`
	PowR2     float64 `json:"pow_r2" msgpack:"pow_r2"`
	KCurveC   float64 `json:"kcurve_c" msgpack:"kcurve_c"`
	KCurveR2  float64 `json:"kcurve_r2" msgpack:"kcurve_r2"`
	SL        float64 `json:"sl" msgpack:"sl"`
	SLR2      float64 `json:"sl_r2" msgpack:"sl_r2"`
}

// Round rounds v to the given number of decimal digits
func Round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

// Rendered returns a, b and R² rounded to the given digits, or the sentinel for all
// three when the fit failed.
func (f FitValue) Rendered(coefDigits, r2Digits int) (a, b, r2 float64) {
	if !f.OK() {
		return Sentinel, Sentinel, Sentinel
	}
	return Round(f.A, coefDigits), Round(f.B, coefDigits), Round(f.R2, r2Digits)
}

// Row renders the metrics at their output precision
func (m CrossSectionMetrics) Row(plotRef string) CrossSectionRow {
	row := CrossSectionRow{
		ProfileID: m.ProfileID,
		PlotRef:   plotRef,
		Length:    Round(m.Length, 1),
		Height:    Round(m.Height, 1),
		Integral:  Round(m.Integral, 2),
		WHRatio:   Round(m.WHRatio, 2),
		Asymmetry: Round(m.Asymmetry, 3),
		HHRatio:   Round(m.HHRatio, 2),
		VIndex:    Round(m.VIndex, 3),
	}
	row.QuadC, _, row.QuadR2 = m.Quad.Rendered(4, 3)
	row.VWDRA, row.VWDRB, row.VWDRR2 = m.VWDR.Rendered(4, 4)
	return row
}

// Row renders the metrics at their output precision
func (m HalfProfileMetrics) Row(parentID string) HalfProfileRow {
	row := HalfProfileRow{
		ProfileID: m.ProfileID,
		ParentID:  parentID,
		Length:    Round(m.Length, 1),
		Height:    Round(m.Height, 1),
		WHRatio:   Round(m.WHRatio, 2),
		Integral:  Round(m.Integral, 2),
		Closure:   Round(m.Closure.Deg(), 1),
		Aspect:    Round(m.Aspect.Deg(), 1),
		Gradient:  Round(m.Gradient.Deg(), 1),
	}
	row.ExpA, row.ExpB, row.ExpR2 = m.Exponential.Rendered(4, 3)
	row.PowA, row.PowB, row.PowR2 = m.PowerLaw.Rendered(4, 3)
	row.KCurveC, _, row.KCurveR2 = m.KCurve.Rendered(4, 3)
	row.SL, _, row.SLR2 = m.SL.Rendered(4, 3)
	return row
}

// Rows renders the record's cross section and half profiles. A record without a cross
// section yields a nil row.
func (r MetricRecord) Rows() (*CrossSectionRow, []HalfProfileRow) {
	var cs *CrossSectionRow
	if r.CrossSection != nil {
		row := r.CrossSection.Row(r.PlotRef)
		cs = &row
	}
	halves := make([]HalfProfileRow, 0, len(r.Halves))
	for _, h := range r.Halves {
		halves = append(halves, h.Row(r.ProfileID))
	}
	return cs, halves
}
