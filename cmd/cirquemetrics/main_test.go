package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/internal/profileio"
	"github.com/chrissnell/cirquemetrics/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProfiles writes two parabolic profiles and one flat profile as CSV
func writeProfiles(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("profile_id,x,y,z\n")
	for _, id := range []string{"a", "b"} {
		for i := 0; i <= 20; i++ {
			x := float64(i) * 20
			fmt.Fprintf(&b, "%s,%g,0,%g\n", id, x, (x-200)*(x-200)/100)
		}
	}
	b.WriteString("flat,0,0,5\nflat,10,0,5\n")

	path := filepath.Join(t.TempDir(), "profiles.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func defaults(t *testing.T) *config.ConfigData {
	t.Helper()
	cfg, err := loadConfig("", "yaml")
	require.NoError(t, err)
	return cfg
}

func TestRunWritesTables(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	o := options{input: writeProfiles(t), outputDir: out, minHeight: -1}

	require.NoError(t, run(context.Background(), o, defaults(t)))

	f, err := os.Open(filepath.Join(out, profileio.CrossSectionsFile))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "profile_id", rows[0][0])
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "b", rows[2][0])

	assert.FileExists(t, filepath.Join(out, profileio.HalfProfilesFile))
	assert.FileExists(t, filepath.Join(out, profileio.LowPointsFile))
	assert.FileExists(t, filepath.Join(out, profileio.FailuresFile))
}

func TestRunWritesJSONReport(t *testing.T) {
	out := t.TempDir()
	o := options{input: writeProfiles(t), outputDir: out, format: "json", noHalves: true, minHeight: -1}

	require.NoError(t, run(context.Background(), o, defaults(t)))

	b, err := os.ReadFile(filepath.Join(out, "report.json"))
	require.NoError(t, err)
	var rep cirque.Report
	require.NoError(t, json.Unmarshal(b, &rep))
	assert.Len(t, rep.CrossSections, 2)
	assert.Empty(t, rep.HalfProfiles)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "flat", rep.Failures[0].ProfileID)
}

func TestRunStoresReport(t *testing.T) {
	cfg := defaults(t)
	cfg.Storage.SQLite = &config.SQLiteData{Path: filepath.Join(t.TempDir(), "reports.db")}
	o := options{input: writeProfiles(t), outputDir: t.TempDir(), store: true, minHeight: -1}

	require.NoError(t, run(context.Background(), o, cfg))

	o.store = true
	assert.Error(t, run(context.Background(), o, defaults(t)), "no backend configured")
}

func TestRunRejectsBadSettings(t *testing.T) {
	o := options{input: writeProfiles(t), outputDir: t.TempDir(), boundaryMode: "lowest", minHeight: -1}
	assert.Error(t, run(context.Background(), o, defaults(t)))

	o = options{input: filepath.Join(t.TempDir(), "missing.csv"), minHeight: -1}
	assert.Error(t, run(context.Background(), o, defaults(t)))
}

func TestApplyOverrides(t *testing.T) {
	cfg := defaults(t)
	applyOverrides(options{
		boundaryMode:  "convex",
		minHeight:     15,
		turningPoints: 2,
		cellSize:      5,
		noHalves:      true,
		format:        "msgpack",
	}, cfg)

	assert.Equal(t, "convex", cfg.Analysis.BoundaryMode)
	assert.Equal(t, 15.0, cfg.Analysis.MinHeight)
	assert.Equal(t, 2, cfg.Analysis.TurningPointCount)
	assert.Equal(t, 5.0, cfg.Analysis.CellSize)
	assert.False(t, cfg.Analysis.HalfProfilesEnabled())
	assert.Equal(t, "msgpack", cfg.Output.Format)
	assert.Equal(t, config.DefaultEpsilon, cfg.Analysis.Epsilon)
}
