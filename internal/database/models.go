package database

import (
	"time"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/google/uuid"
)

// Run is one stored batch
type Run struct {
	RunID     uuid.UUID `gorm:"primaryKey;type:uuid;column:run_id"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	Profiles  int       `gorm:"column:profiles;not null"`
	Failures  int       `gorm:"column:failures;not null"`
}

// TableName specifies the table name for Run
func (Run) TableName() string {
	return "runs"
}

// CrossSection is one cross-section row of a run
type CrossSection struct {
	RunID     uuid.UUID `gorm:"primaryKey;type:uuid;column:run_id"`
	ProfileID string    `gorm:"primaryKey;column:profile_id"`
	PlotRef   string    `gorm:"column:plot_ref"`
	Length    float64   `gorm:"column:length"`
	Height    float64   `gorm:"column:height"`
	Integral  float64   `gorm:"column:integral"`
	WHRatio   float64   `gorm:"column:wh_ratio"`
	Asymmetry float64   `gorm:"column:asymmetry"`
	HHRatio   float64   `gorm:"column:hh_ratio"`
	VIndex    float64   `gorm:"column:v_index"`
	QuadC     float64   `gorm:"column:quad_c"`
	QuadR2    float64   `gorm:"column:quad_r2"`
	VWDRA     float64   `gorm:"column:vwdr_a"`
	VWDRB     float64   `gorm:"column:vwdr_b"`
	VWDRR2    float64   `gorm:"column:vwdr_r2"`
}

// TableName specifies the table name for CrossSection
func (CrossSection) TableName() string {
	return "cross_sections"
}

// HalfProfile is one half-profile row of a run
type HalfProfile struct {
	RunID     uuid.UUID `gorm:"primaryKey;type:uuid;column:run_id"`
	ProfileID string    `gorm:"primaryKey;column:profile_id"`
	ParentID  string    `gorm:"column:parent_id;not null"`
	Length    float64   `gorm:"column:length"`
	Height    float64   `gorm:"column:height"`
	WHRatio   float64   `gorm:"column:wh_ratio"`
	Integral  float64   `gorm:"column:integral"`
	Closure   float64   `gorm:"column:closure"`
	Aspect    float64   `gorm:"column:aspect"`
	Gradient  float64   `gorm:"column:gradient"`
	ExpA      float64   `gorm:"column:exp_a"`
	ExpB      float64   `gorm:"column:exp_b"`
	ExpR2     float64   `gorm:"column:exp_r2"`
	PowA      float64   `gorm:"column:pow_a"`
	PowB      float64   `gorm:"column:pow_b"`
	PowR2     float64   `gorm:"column:pow_r2"`
	KCurveC   float64   `gorm:"column:kcurve_c"`
	KCurveR2  float64   `gorm:"column:kcurve_r2"`
	SL        float64   `gorm:"column:sl"`
	SLR2      float64   `gorm:"column:sl_r2"`
}

// TableName specifies the table name for HalfProfile
func (HalfProfile) TableName() string {
	return "half_profiles"
}

// BoundaryPoint is one boundary point of a run
type BoundaryPoint struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	RunID     uuid.UUID `gorm:"type:uuid;index;column:run_id;not null"`
	ProfileID string    `gorm:"column:profile_id;not null"`
	X         float64   `gorm:"column:x"`
	Y         float64   `gorm:"column:y"`
	PointType int       `gorm:"column:point_type"`
}

// TableName specifies the table name for BoundaryPoint
func (BoundaryPoint) TableName() string {
	return "boundary_points"
}

// LowPoint is the lowest sample of one profile of a run
type LowPoint struct {
	RunID     uuid.UUID `gorm:"primaryKey;type:uuid;column:run_id"`
	ProfileID string    `gorm:"primaryKey;column:profile_id"`
	X         float64   `gorm:"column:x"`
	Y         float64   `gorm:"column:y"`
}

// TableName specifies the table name for LowPoint
func (LowPoint) TableName() string {
	return "low_points"
}

// Failure records a profile that could not be analysed
type Failure struct {
	RunID     uuid.UUID `gorm:"primaryKey;type:uuid;column:run_id"`
	ProfileID string    `gorm:"primaryKey;column:profile_id"`
	Error     string    `gorm:"column:error;not null"`
}

// TableName specifies the table name for Failure
func (Failure) TableName() string {
	return "failures"
}

// AllModels lists every table for auto migration
func AllModels() []any {
	return []any{&Run{}, &CrossSection{}, &HalfProfile{}, &BoundaryPoint{}, &LowPoint{}, &Failure{}}
}

// Rows holds the table rows of one report
type Rows struct {
	Run           Run
	CrossSections []CrossSection
	HalfProfiles  []HalfProfile
	Boundaries    []BoundaryPoint
	LowPoints     []LowPoint
	Failures      []Failure
}

// RowsFromReport converts a report to table rows
func RowsFromReport(rep cirque.Report, createdAt time.Time) Rows {
	id := rep.RunID
	rows := Rows{
		Run: Run{
			RunID:     id,
			CreatedAt: createdAt,
			Profiles:  len(rep.CrossSections) + len(rep.Failures),
			Failures:  len(rep.Failures),
		},
	}
	for _, r := range rep.CrossSections {
		rows.CrossSections = append(rows.CrossSections, CrossSection{
			RunID: id, ProfileID: r.ProfileID, PlotRef: r.PlotRef,
			Length: r.Length, Height: r.Height, Integral: r.Integral, WHRatio: r.WHRatio,
			Asymmetry: r.Asymmetry, HHRatio: r.HHRatio, VIndex: r.VIndex,
			QuadC: r.QuadC, QuadR2: r.QuadR2, VWDRA: r.VWDRA, VWDRB: r.VWDRB, VWDRR2: r.VWDRR2,
		})
	}
	for _, r := range rep.HalfProfiles {
		rows.HalfProfiles = append(rows.HalfProfiles, HalfProfile{
			RunID: id, ProfileID: r.ProfileID, ParentID: r.ParentID,
			Length: r.Length, Height: r.Height, WHRatio: r.WHRatio, Integral: r.Integral,
			Closure: r.Closure, Aspect: r.Aspect, Gradient: r.Gradient,
			ExpA: r.ExpA, ExpB: r.ExpB, ExpR2: r.ExpR2, PowA: r.PowA, PowB: r.PowB, PowR2: r.PowR2,
			KCurveC: r.KCurveC, KCurveR2: r.KCurveR2, SL: r.SL, SLR2: r.SLR2,
		})
	}
	for _, b := range rep.Boundaries {
		rows.Boundaries = append(rows.Boundaries, BoundaryPoint{
			RunID: id, ProfileID: b.ProfileID, X: b.X, Y: b.Y, PointType: int(b.Type),
		})
	}
	for _, lp := range rep.LowPoints {
		rows.LowPoints = append(rows.LowPoints, LowPoint{RunID: id, ProfileID: lp.ProfileID, X: lp.X, Y: lp.Y})
	}
	for _, f := range rep.Failures {
		rows.Failures = append(rows.Failures, Failure{RunID: id, ProfileID: f.ProfileID, Error: f.Error})
	}
	return rows
}

// Report converts table rows back to a report
func (r Rows) Report() cirque.Report {
	rep := cirque.Report{
		RunID:         r.Run.RunID,
		CrossSections: make([]cirque.CrossSectionRow, 0, len(r.CrossSections)),
		HalfProfiles:  make([]cirque.HalfProfileRow, 0, len(r.HalfProfiles)),
		LowPoints:     make([]cirque.LowPoint, 0, len(r.LowPoints)),
	}
	for _, c := range r.CrossSections {
		rep.CrossSections = append(rep.CrossSections, cirque.CrossSectionRow{
			ProfileID: c.ProfileID, PlotRef: c.PlotRef,
			Length: c.Length, Height: c.Height, Integral: c.Integral, WHRatio: c.WHRatio,
			Asymmetry: c.Asymmetry, HHRatio: c.HHRatio, VIndex: c.VIndex,
			QuadC: c.QuadC, QuadR2: c.QuadR2, VWDRA: c.VWDRA, VWDRB: c.VWDRB, VWDRR2: c.VWDRR2,
		})
	}
	for _, h := range r.HalfProfiles {
		rep.HalfProfiles = append(rep.HalfProfiles, cirque.HalfProfileRow{
			ProfileID: h.ProfileID, ParentID: h.ParentID,
			Length: h.Length, Height: h.Height, WHRatio: h.WHRatio, Integral: h.Integral,
			Closure: h.Closure, Aspect: h.Aspect, Gradient: h.Gradient,
			ExpA: h.ExpA, ExpB: h.ExpB, ExpR2: h.ExpR2, PowA: h.PowA, PowB: h.PowB, PowR2: h.PowR2,
			KCurveC: h.KCurveC, KCurveR2: h.KCurveR2, SL: h.SL, SLR2: h.SLR2,
		})
	}
	for _, b := range r.Boundaries {
		rep.Boundaries = append(rep.Boundaries, cirque.BoundaryPoint{
			ProfileID: b.ProfileID, X: b.X, Y: b.Y, Type: cirque.PointType(b.PointType),
		})
	}
	for _, lp := range r.LowPoints {
		rep.LowPoints = append(rep.LowPoints, cirque.LowPoint{ProfileID: lp.ProfileID, X: lp.X, Y: lp.Y})
	}
	for _, f := range r.Failures {
		rep.Failures = append(rep.Failures, cirque.Failure{ProfileID: f.ProfileID, Error: f.Error})
	}
	return rep
}
