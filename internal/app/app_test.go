package app

import (
	"context"
	"errors"
	"testing"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticProvider struct {
	cfg *config.ConfigData
	err error
}

func (p staticProvider) LoadConfig() (*config.ConfigData, error) { return p.cfg, p.err }
func (p staticProvider) IsReadOnly() bool { return true }
func (p staticProvider) Close() error { return nil }

func TestParams(t *testing.T) {
	off := false
	got, err := Params(config.AnalysisData{
		Epsilon:           0.5,
		MinHeight:         20,
		TurningPointCount: 2,
		CellSize:          5,
		BoundaryMode:      "convex",
		HalfProfiles:      &off,
		Workers:           3,
	})
	require.NoError(t, err)
	assert.Equal(t, cirque.Params{
		Epsilon:           0.5,
		MinHeight:         20,
		TurningPointCount: 2,
		CellSize:          5,
		Mode:              cirque.BoundaryConvex,
		HalfProfiles:      false,
		Workers:           3,
	}, got)

	got, err = Params(config.AnalysisData{})
	require.NoError(t, err)
	assert.True(t, got.HalfProfiles)

	_, err = Params(config.AnalysisData{BoundaryMode: "lowest"})
	assert.Error(t, err)
}

func TestRunRequiresRESTConfig(t *testing.T) {
	a := New(staticProvider{cfg: &config.ConfigData{}}, zap.NewNop().Sugar())
	err := a.Run(context.Background())
	assert.ErrorContains(t, err, "rest")
}

func TestRunPropagatesConfigErrors(t *testing.T) {
	a := New(staticProvider{err: errors.New("boom")}, zap.NewNop().Sugar())
	err := a.Run(context.Background())
	assert.ErrorContains(t, err, "boom")
}
