package managers

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/internal/storage"
	"github.com/chrissnell/cirquemetrics/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestStorageManagerWithoutBackends(t *testing.T) {
	s, err := NewStorageManager(context.Background(), config.StorageData{}, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.Enabled())
	assert.Equal(t, "", s.Primary())
	assert.NoError(t, s.SaveReport(context.Background(), cirque.Report{RunID: uuid.New()}))

	_, err = s.Report(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrRunNotFound)
	assert.Equal(t, storage.StatusHealthy, s.CheckHealth(context.Background()).Status)
}

func TestStorageManagerSQLite(t *testing.T) {
	ctx := context.Background()
	c := config.StorageData{SQLite: &config.SQLiteData{Path: filepath.Join(t.TempDir(), "reports.db")}}

	s, err := NewStorageManager(ctx, c, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.Enabled())
	assert.Equal(t, "sqlite", s.Primary())

	rep := cirque.Report{
		RunID:         uuid.New(),
		CrossSections: []cirque.CrossSectionRow{{ProfileID: "a", Length: 400, Height: 400, WHRatio: 1}},
		HalfProfiles:  []cirque.HalfProfileRow{},
		LowPoints:     []cirque.LowPoint{{ProfileID: "a", X: 200}},
	}
	require.NoError(t, s.SaveReport(ctx, rep))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rep.RunID, runs[0].ID)

	got, err := s.Report(ctx, rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, rep.CrossSections, got.CrossSections)

	h := s.CheckHealth(ctx)
	assert.Equal(t, storage.StatusHealthy, h.Status)
	assert.True(t, s.Health.IsHealthy("sqlite", time.Minute))
}

func TestStorageManagerHealthMonitors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := config.StorageData{SQLite: &config.SQLiteData{Path: filepath.Join(t.TempDir(), "reports.db")}}
	s, err := NewStorageManager(ctx, c, nil)
	require.NoError(t, err)
	defer s.Close()

	s.StartHealthMonitors(ctx, time.Hour)
	assert.Eventually(t, func() bool {
		_, ok := s.Health.GetHealth("sqlite")
		return ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStorageManagerBadBackend(t *testing.T) {
	c := config.StorageData{SQLite: &config.SQLiteData{Path: filepath.Join(t.TempDir(), "missing", "reports.db")}}
	_, err := NewStorageManager(context.Background(), c, nil)
	assert.Error(t, err)
}
