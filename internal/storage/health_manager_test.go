package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeStore struct {
	ReportStore
	err error
}

func (f fakeStore) CheckHealth(context.Context) *Health {
	if f.err != nil {
		return NewHealth(StatusUnhealthy, "ping failed", f.err)
	}
	return NewHealth(StatusHealthy, "ok", nil)
}

func TestHealthManager(t *testing.T) {
	hm := NewHealthManager()
	assert.False(t, hm.IsHealthy("sqlite", time.Minute))

	hm.UpdateHealth("sqlite", NewHealth(StatusHealthy, "ok", nil))
	assert.True(t, hm.IsHealthy("sqlite", time.Minute))

	hm.UpdateHealth("postgres", NewHealth(StatusUnhealthy, "ping failed", errors.New("refused")))
	assert.False(t, hm.IsHealthy("postgres", time.Minute))

	all := hm.GetAllHealth()
	assert.Len(t, all, 2)
	assert.Equal(t, "refused", all["postgres"].Error)
}

func TestStartHealthMonitor(t *testing.T) {
	hm := NewHealthManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartHealthMonitor(ctx, hm, "fake", fakeStore{err: errors.New("down")}, time.Hour, zap.NewNop().Sugar())

	assert.Eventually(t, func() bool {
		h, ok := hm.GetHealth("fake")
		return ok && h.Status == StatusUnhealthy
	}, time.Second, 10*time.Millisecond)
}

func TestRunFromReport(t *testing.T) {
	rep := cirque.Report{
		RunID:         uuid.New(),
		CrossSections: []cirque.CrossSectionRow{{ProfileID: "a"}, {ProfileID: "b"}},
		Failures:      []cirque.Failure{{ProfileID: "c"}},
	}
	run := RunFromReport(rep)
	assert.Equal(t, rep.RunID, run.ID)
	assert.Equal(t, 3, run.Profiles)
	assert.Equal(t, 1, run.Failures)
}
