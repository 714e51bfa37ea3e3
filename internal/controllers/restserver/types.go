package restserver

import (
	"time"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/internal/storage"
)

// AnalyzeRequest is the body of POST /api/v1/profiles/analyze
type AnalyzeRequest struct {
	Profiles []cirque.Profile `json:"profiles"`
	Options  *AnalysisOptions `json:"options,omitempty"`
}

// AnalysisOptions overrides the server's analysis settings for one request
type AnalysisOptions struct {
	MinHeight         *float64 `json:"min_height,omitempty"`
	TurningPointCount *int     `json:"turning_point_count,omitempty"`
	ClusterRadius     *float64 `json:"cluster_radius,omitempty"`
	BoundaryMode      string   `json:"boundary_mode,omitempty"`
	HalfProfiles      *bool    `json:"half_profiles,omitempty"`
}

// apply returns base with the options laid over it
func (o *AnalysisOptions) apply(base cirque.Params) (cirque.Params, error) {
	if o == nil {
		return base, nil
	}
	if o.MinHeight != nil {
		base.MinHeight = *o.MinHeight
	}
	if o.TurningPointCount != nil {
		base.TurningPointCount = *o.TurningPointCount
	}
	if o.ClusterRadius != nil {
		base.ClusterRadius = *o.ClusterRadius
	}
	if o.HalfProfiles != nil {
		base.HalfProfiles = *o.HalfProfiles
	}
	if o.BoundaryMode != "" {
		mode, err := cirque.ParseBoundaryMode(o.BoundaryMode)
		if err != nil {
			return base, err
		}
		base.Mode = mode
	}
	if base.MinHeight < 0 || base.TurningPointCount < 0 || base.ClusterRadius < 0 {
		return base, errBadOption
	}
	return base, nil
}

// AnalyzeResponse wraps the report with whether it was stored
type AnalyzeResponse struct {
	cirque.Report
	Stored bool `json:"stored"`
}

// RunsResponse lists stored runs
type RunsResponse struct {
	Runs []storage.Run `json:"runs"`
}

// HealthResponse reports server and storage status
type HealthResponse struct {
	Status  string                    `json:"status"`
	Time    time.Time                 `json:"time"`
	Storage map[string]storage.Health `json:"storage,omitempty"`
}
