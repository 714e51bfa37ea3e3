// Package profileio reads sampled profiles and writes analysis reports in CSV, JSON and
// MessagePack.
package profileio

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/vmihailenco/msgpack/v5"
)

// Format is a serialization format for profiles and reports
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat converts a format name to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "msgpack", "mpk":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unknown format %q (want csv, json or msgpack)", s)
	}
}

// FormatFromPath guesses the format from a file extension
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot determine format of %s", path)
	}
	return ParseFormat(ext)
}

var requiredColumns = []string{"profile_id", "x", "y", "z"}

// ReadProfiles decodes profiles in the given format
func ReadProfiles(r io.Reader, f Format) ([]cirque.Profile, error) {
	switch f {
	case FormatCSV:
		return ReadCSV(r)
	case FormatJSON:
		var profiles []cirque.Profile
		if err := json.NewDecoder(r).Decode(&profiles); err != nil {
			return nil, fmt.Errorf("could not decode JSON profiles: %w", err)
		}
		return profiles, nil
	case FormatMsgpack:
		var profiles []cirque.Profile
		if err := msgpack.NewDecoder(r).Decode(&profiles); err != nil {
			return nil, fmt.Errorf("could not decode msgpack profiles: %w", err)
		}
		return profiles, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

// ReadCSV reads sampled profile points. The header must name profile_id, x, y and z;
// distance and plot_ref columns are optional. Rows of one profile are kept in file order
// and profiles are returned in order of first appearance.
func ReadCSV(r io.Reader) ([]cirque.Profile, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty profile file")
		}
		return nil, fmt.Errorf("could not read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	distCol, hasDist := cols["distance"]
	plotCol, hasPlot := cols["plot_ref"]

	var profiles []cirque.Profile
	index := make(map[string]int)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		id := strings.TrimSpace(rec[cols["profile_id"]])
		var s cirque.Sample
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"x", &s.X},
			{"y", &s.Y},
			{"z", &s.Elevation},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[f.col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line, f.col, err)
			}
			*f.dst = v
		}
		if hasDist {
			if s.Distance, err = strconv.ParseFloat(strings.TrimSpace(rec[distCol]), 64); err != nil {
				return nil, fmt.Errorf("line %d: column distance: %w", line, err)
			}
		}

		i, ok := index[id]
		if !ok {
			i = len(profiles)
			index[id] = i
			profiles = append(profiles, cirque.Profile{ID: id})
			if hasPlot {
				profiles[i].PlotRef = strings.TrimSpace(rec[plotCol])
			}
		}
		profiles[i].Samples = append(profiles[i].Samples, s)
	}

	return profiles, nil
}
