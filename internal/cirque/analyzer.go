package cirque

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Params holds the analysis settings supplied with a batch of profiles
type Params struct {
	Epsilon           float64      // turning point tolerance in elevation units
	MinHeight         float64      // floor band excluded from convex detection
	TurningPointCount int          // convex boundary points kept per half
	ClusterRadius     float64      // suppression radius; zero derives 3 × cellsize
	CellSize          float64      // terrain resolution of the sampled surface
	Mode              BoundaryMode // boundary points used to refine the cross sections
	HalfProfiles      bool         // derive half-profile metrics
	Workers           int          // worker pool size; zero uses one per CPU
}

// DefaultParams returns the settings used when none are configured
func DefaultParams() Params {
	return Params{
		Epsilon:           0.01,
		TurningPointCount: 1,
		CellSize:          10,
		Mode:              BoundaryNone,
		HalfProfiles:      true,
	}
}

// Turning returns the turning point settings derived from the params
func (p Params) Turning() TurningParams {
	tp := DefaultTurningParams(p.CellSize)
	if p.Epsilon > 0 {
		tp.Epsilon = p.Epsilon
	}
	if p.TurningPointCount > 0 {
		tp.Count = p.TurningPointCount
	}
	if p.ClusterRadius > 0 {
		tp.ClusterRadius = p.ClusterRadius
	}
	return tp
}

// Segment returns the boundary detection settings derived from the params
func (p Params) Segment() SegmentParams {
	return SegmentParams{
		Mode:           p.Mode,
		MinHalfSamples: DefaultMinHalfSamples,
		MinHeight:      p.MinHeight,
		CellSize:       p.CellSize,
		Turning:        p.Turning(),
	}
}

// BatchResult holds the records of one batch keyed by profile ID
type BatchResult struct {
	RunID      uuid.UUID
	Params     Params
	Records    map[string]MetricRecord
	Boundaries []BoundaryPoint
}

// Failed returns the IDs of profiles whose analysis failed
func (b *BatchResult) Failed() []string {
	var ids []string
	for id, r := range b.Records {
		if !r.OK() {
			ids = append(ids, id)
		}
	}
	return ids
}

// ErrInvalidInput marks a batch rejected before analysis
var ErrInvalidInput = errors.New("invalid input")

// Analyzer runs the morphometric pipeline over profiles
type Analyzer struct {
	params Params
	logger *zap.SugaredLogger
}

// NewAnalyzer creates an Analyzer. A nil logger discards log output.
func NewAnalyzer(params Params, logger *zap.SugaredLogger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if params.Mode == "" {
		params.Mode = BoundaryNone
	}
	return &Analyzer{params: params, logger: logger}
}

// Params returns the analyzer's settings
func (a *Analyzer) Params() Params {
	return a.params
}

// Validate rejects malformed input before any analysis starts. Profiles without an ID
// are given their position in the batch as ID.
func Validate(profiles []Profile) error {
	var errs []error
	seen := make(map[string]bool, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		if p.ID == "" {
			p.ID = strconv.Itoa(i)
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("profile %s: duplicate id", p.ID))
		}
		seen[p.ID] = true

		if len(p.Samples) < 2 {
			errs = append(errs, fmt.Errorf("profile %s: %w", p.ID, ErrTooFewSamples))
			continue
		}
		for j, s := range p.Samples {
			if !finite(s.Distance) || !finite(s.Elevation) || !finite(s.X) || !finite(s.Y) {
				errs = append(errs, fmt.Errorf("profile %s: sample %d has non-finite values", p.ID, j))
				break
			}
		}
	}
	return errors.Join(errs...)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Prepare returns a copy of the profile with cumulative planar lengths assigned. Profiles
// without planar coordinates keep the distances they were supplied with.
func Prepare(p Profile) Profile {
	out := p
	out.Samples = make([]Sample, len(p.Samples))
	copy(out.Samples, p.Samples)
	if LineLength(out.Samples) > 0 {
		CumulativeLength(out.Samples)
	}
	return out
}

// Boundaries detects the boundary points of one prepared profile
func (a *Analyzer) Boundaries(p Profile) (points []BoundaryPoint) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warnf("boundary detection failed for profile %s: %v", p.ID, r)
			points = nil
		}
	}()
	return DetectBoundaries(p, a.params.Segment())
}

// Analyze computes the record of one prepared profile. boundaries may include points of
// other profiles; only those touching this profile cut it. Failures are reported on
// the record and never escape as panics.
func (a *Analyzer) Analyze(p Profile, boundaries []BoundaryPoint) (rec MetricRecord) {
	rec = MetricRecord{ProfileID: p.ID, PlotRef: p.PlotRef}
	defer func() {
		if r := recover(); r != nil {
			rec.Err = fmt.Errorf("profile %s: unexpected failure: %v", p.ID, r)
			a.logger.Errorf("%v", rec.Err)
		}
	}()

	if len(p.Samples) < 2 {
		rec.Err = fmt.Errorf("profile %s: %w", p.ID, ErrTooFewSamples)
		return rec
	}

	low := p.Samples[MinIndex(p.Samples)]
	rec.LowPoint = Point{X: low.X, Y: low.Y}
	for _, b := range boundaries {
		if b.ProfileID == p.ID {
			rec.Boundaries = append(rec.Boundaries, b)
		}
	}

	refined := p
	// boundary points are located in plan, so profiles without coordinates are not cut
	if a.params.Mode != BoundaryNone && LineLength(p.Samples) > 0 {
		refined = Refine(p, boundaries, BoundaryTolerance)
		a.logger.Debugf("profile %s refined from %d to %d samples", p.ID, len(p.Samples), len(refined.Samples))
	}

	cs, err := ComputeCrossSection(refined)
	if err != nil {
		rec.Err = fmt.Errorf("profile %s: cross section: %w", p.ID, err)
		a.logger.Warnf("%v", rec.Err)
		return rec
	}
	rec.CrossSection = &cs

	if !a.params.HalfProfiles {
		return rec
	}
	for _, half := range HalfProfiles(refined, a.params.CellSize) {
		hm, err := ComputeHalfProfile(half)
		if err != nil {
			a.logger.Warnf("half profile %s skipped: %v", half.ID, err)
			continue
		}
		rec.Halves = append(rec.Halves, hm)
	}
	return rec
}

// AnalyzeProfile validates, prepares and analyzes a single profile
func (a *Analyzer) AnalyzeProfile(p Profile) (MetricRecord, error) {
	profiles := []Profile{p}
	if err := Validate(profiles); err != nil {
		return MetricRecord{}, err
	}
	prepared := Prepare(profiles[0])
	return a.Analyze(prepared, a.Boundaries(prepared)), nil
}

// AnalyzeBatch analyzes profiles concurrently on a worker pool. Malformed input rejects
// the whole batch before any work starts; after that, each profile succeeds or fails on
// its own. Boundary points of every profile are applied to every profile.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, profiles []Profile) (*BatchResult, error) {
	in := make([]Profile, len(profiles))
	copy(in, profiles)
	if err := Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	result := &BatchResult{
		RunID:   uuid.New(),
		Params:  a.params,
		Records: make(map[string]MetricRecord, len(in)),
	}
	a.logger.Infof("analysing %d profiles (run %s, boundary mode %s)", len(in), result.RunID, a.params.Mode)

	prepared := make([]Profile, len(in))
	for i := range in {
		prepared[i] = Prepare(in[i])
	}

	if a.params.Mode != BoundaryNone {
		perProfile := make([][]BoundaryPoint, len(prepared))
		err := a.run(ctx, len(prepared), func(i int) {
			perProfile[i] = a.Boundaries(prepared[i])
		})
		if err != nil {
			return nil, err
		}
		for _, pts := range perProfile {
			result.Boundaries = append(result.Boundaries, pts...)
		}
		a.logger.Infof("detected %d boundary points", len(result.Boundaries))
	}

	var mu sync.Mutex
	err := a.run(ctx, len(prepared), func(i int) {
		rec := a.Analyze(prepared[i], result.Boundaries)
		mu.Lock()
		result.Records[rec.ProfileID] = rec
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	if failed := result.Failed(); len(failed) > 0 {
		a.logger.Warnf("%d of %d profiles could not be analysed", len(failed), len(in))
	}
	return result, nil
}

// run calls fn for every index in [0, n) on an ants pool and waits for completion
func (a *Analyzer) run(ctx context.Context, n int, fn func(i int)) error {
	workers := a.params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return fmt.Errorf("could not create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			fn(i)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return fmt.Errorf("could not submit profile %d: %w", i, err)
		}
	}
	wg.Wait()
	return ctx.Err()
}
