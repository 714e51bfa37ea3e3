package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/internal/storage"
	"github.com/chrissnell/cirquemetrics/internal/storage/postgres"
	"github.com/chrissnell/cirquemetrics/internal/storage/sqlite"
	"github.com/chrissnell/cirquemetrics/pkg/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageManager holds our active report storage backends. Reports are written to
// every engine; reads are served by the first one.
type StorageManager struct {
	Engines []StorageEngine
	Health  *storage.HealthManager
	logger  *zap.SugaredLogger
}

// StorageEngine is one configured backend
type StorageEngine struct {
	Name   string
	Engine storage.ReportStore
}

// NewStorageManager creates a StorageManager object, populated with all configured StorageEngines
func NewStorageManager(ctx context.Context, c config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &StorageManager{
		Health: storage.NewHealthManager(),
		logger: logger,
	}

	// Check the configuration for the supported storage backends and enable them if found

	if c.SQLite != nil {
		if err := s.AddEngine(ctx, "sqlite", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add SQLite storage backend: %w", err)
		}
	}

	if c.Postgres != nil {
		if err := s.AddEngine(ctx, "postgres", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add PostgreSQL storage backend: %w", err)
		}
	}

	return s, nil
}

// AddEngine adds a new StorageEngine of name engineName
func (s *StorageManager) AddEngine(ctx context.Context, engineName string, c config.StorageData) error {
	var engine storage.ReportStore
	var err error

	switch engineName {
	case "sqlite":
		engine, err = sqlite.New(c.SQLite.Path, s.logger.Named("sqlite"))
	case "postgres":
		engine, err = postgres.New(ctx, c.Postgres.ConnectionString, s.logger.Named("postgres"))
	default:
		return fmt.Errorf("unknown storage backend %q", engineName)
	}
	if err != nil {
		return err
	}

	s.Engines = append(s.Engines, StorageEngine{Name: engineName, Engine: engine})
	s.logger.Infof("%s storage backend enabled", engineName)
	return nil
}

// Enabled reports whether any backend is configured
func (s *StorageManager) Enabled() bool {
	return len(s.Engines) > 0
}

// Primary returns the name of the backend that serves reads
func (s *StorageManager) Primary() string {
	if len(s.Engines) == 0 {
		return ""
	}
	return s.Engines[0].Name
}

// StartHealthMonitors checks every backend at interval until ctx is cancelled
func (s *StorageManager) StartHealthMonitors(ctx context.Context, interval time.Duration) {
	for _, e := range s.Engines {
		storage.StartHealthMonitor(ctx, s.Health, e.Name, e.Engine, interval, s.logger)
	}
}

// SaveReport stores the report in every backend
func (s *StorageManager) SaveReport(ctx context.Context, rep cirque.Report) error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Engine.SaveReport(ctx, rep); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Runs lists the runs of the primary backend
func (s *StorageManager) Runs(ctx context.Context) ([]storage.Run, error) {
	if len(s.Engines) == 0 {
		return nil, nil
	}
	return s.Engines[0].Engine.Runs(ctx)
}

// Report loads a run from the primary backend
func (s *StorageManager) Report(ctx context.Context, runID uuid.UUID) (cirque.Report, error) {
	if len(s.Engines) == 0 {
		return cirque.Report{}, storage.ErrRunNotFound
	}
	return s.Engines[0].Engine.Report(ctx, runID)
}

// CheckHealth checks every backend and reports the worst result
func (s *StorageManager) CheckHealth(ctx context.Context) *storage.Health {
	if len(s.Engines) == 0 {
		return storage.NewHealth(storage.StatusHealthy, "no storage configured", nil)
	}
	var worst *storage.Health
	for _, e := range s.Engines {
		h := e.Engine.CheckHealth(ctx)
		s.Health.UpdateHealth(e.Name, h)
		if worst == nil || h.Status != storage.StatusHealthy {
			worst = h
		}
	}
	return worst
}

// Close closes every backend
func (s *StorageManager) Close() error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}
