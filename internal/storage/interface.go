// Package storage defines the interface and shared helpers of the report storage backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a stored run does not exist
var ErrRunNotFound = errors.New("run not found")

// Run summarizes one stored batch
type Run struct {
	ID        uuid.UUID `json:"run_id" msgpack:"run_id"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	Profiles  int       `json:"profiles" msgpack:"profiles"`
	Failures  int       `json:"failures" msgpack:"failures"`
}

// RunFromReport summarizes a report before it is stored
func RunFromReport(rep cirque.Report) Run {
	return Run{
		ID:        rep.RunID,
		CreatedAt: time.Now().UTC(),
		Profiles:  len(rep.CrossSections) + len(rep.Failures),
		Failures:  len(rep.Failures),
	}
}

// ReportStore persists batch reports
type ReportStore interface {
	SaveReport(ctx context.Context, rep cirque.Report) error
	Runs(ctx context.Context) ([]Run, error)
	Report(ctx context.Context, runID uuid.UUID) (cirque.Report, error)
	CheckHealth(ctx context.Context) *Health
	Close() error
}
