package profileio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/vmihailenco/msgpack/v5"
)

// WriteReport encodes the whole report as JSON or MessagePack. CSV output is split into
// one table per record kind; use the Write*CSV functions for it.
func WriteReport(w io.Writer, rep cirque.Report, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(rep)
	default:
		return fmt.Errorf("format %q cannot hold a whole report", f)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteCrossSectionsCSV writes one row per cross section
func WriteCrossSectionsCSV(w io.Writer, rows []cirque.CrossSectionRow) error {
	header := []string{
		"profile_id", "plot_ref", "length", "height", "integral", "wh_ratio", "asymmetry",
		"hh_ratio", "v_index", "quad_c", "quad_r2", "vwdr_a", "vwdr_b", "vwdr_r2",
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.ProfileID, r.PlotRef,
			formatFloat(r.Length), formatFloat(r.Height), formatFloat(r.Integral),
			formatFloat(r.WHRatio), formatFloat(r.Asymmetry), formatFloat(r.HHRatio),
			formatFloat(r.VIndex), formatFloat(r.QuadC), formatFloat(r.QuadR2),
			formatFloat(r.VWDRA), formatFloat(r.VWDRB), formatFloat(r.VWDRR2),
		})
	}
	return writeCSV(w, header, out)
}

// WriteHalfProfilesCSV writes one row per half profile
func WriteHalfProfilesCSV(w io.Writer, rows []cirque.HalfProfileRow) error {
	header := []string{
		"profile_id", "parent_id", "length", "height", "wh_ratio", "integral", "closure",
		"aspect", "gradient", "exp_a", "exp_b", "exp_r2", "pow_a", "pow_b", "pow_r2",
		"kcurve_c", "kcurve_r2", "sl", "sl_r2",
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.ProfileID, r.ParentID,
			formatFloat(r.Length), formatFloat(r.Height), formatFloat(r.WHRatio),
			formatFloat(r.Integral), formatFloat(r.Closure), formatFloat(r.Aspect),
			formatFloat(r.Gradient),
			formatFloat(r.ExpA), formatFloat(r.ExpB), formatFloat(r.ExpR2),
			formatFloat(r.PowA), formatFloat(r.PowB), formatFloat(r.PowR2),
			formatFloat(r.KCurveC), formatFloat(r.KCurveR2),
			formatFloat(r.SL), formatFloat(r.SLR2),
		})
	}
	return writeCSV(w, header, out)
}

// WriteBoundariesCSV writes the boundary points with their type
func WriteBoundariesCSV(w io.Writer, points []cirque.BoundaryPoint) error {
	out := make([][]string, 0, len(points))
	for _, p := range points {
		out = append(out, []string{p.ProfileID, formatFloat(p.X), formatFloat(p.Y), p.Type.String()})
	}
	return writeCSV(w, []string{"profile_id", "x", "y", "type"}, out)
}

// WriteLowPointsCSV writes the lowest sample of each profile
func WriteLowPointsCSV(w io.Writer, points []cirque.LowPoint) error {
	out := make([][]string, 0, len(points))
	for _, p := range points {
		out = append(out, []string{p.ProfileID, formatFloat(p.X), formatFloat(p.Y)})
	}
	return writeCSV(w, []string{"profile_id", "x", "y"}, out)
}

// WriteFailuresCSV writes the profiles that could not be analysed
func WriteFailuresCSV(w io.Writer, failures []cirque.Failure) error {
	out := make([][]string, 0, len(failures))
	for _, f := range failures {
		out = append(out, []string{f.ProfileID, f.Error})
	}
	return writeCSV(w, []string{"profile_id", "error"}, out)
}

// Table file names written by WriteTables
const (
	CrossSectionsFile = "cross_sections.csv"
	HalfProfilesFile  = "half_profiles.csv"
	BoundariesFile    = "boundaries.csv"
	LowPointsFile     = "low_points.csv"
	FailuresFile      = "failures.csv"
)

// WriteTables writes every table of the report as a CSV file in dir, creating dir if
// needed. Boundary and failure tables are only written when they have rows. It returns
// the paths written.
func WriteTables(dir string, rep cirque.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tables := []struct {
		name  string
		skip  bool
		write func(io.Writer) error
	}{
		{CrossSectionsFile, false, func(w io.Writer) error { return WriteCrossSectionsCSV(w, rep.CrossSections) }},
		{HalfProfilesFile, false, func(w io.Writer) error { return WriteHalfProfilesCSV(w, rep.HalfProfiles) }},
		{LowPointsFile, false, func(w io.Writer) error { return WriteLowPointsCSV(w, rep.LowPoints) }},
		{BoundariesFile, len(rep.Boundaries) == 0, func(w io.Writer) error { return WriteBoundariesCSV(w, rep.Boundaries) }},
		{FailuresFile, len(rep.Failures) == 0, func(w io.Writer) error { return WriteFailuresCSV(w, rep.Failures) }},
	}

	var written []string
	for _, t := range tables {
		if t.skip {
			continue
		}
		path := filepath.Join(dir, t.name)
		if err := writeFile(path, t.write); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
