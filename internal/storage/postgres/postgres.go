// Package postgres stores batch reports in PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/internal/database"
	"github.com/chrissnell/cirquemetrics/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Tabler customizes the table name of a model
type Tabler interface {
	TableName() string
}

// Store is a PostgreSQL backed report store
type Store struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New connects to PostgreSQL and migrates the report tables
func New(ctx context.Context, connectionString string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	db, err := database.CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}
	return NewWithDB(ctx, db, logger)
}

// NewWithDB wraps an open gorm connection and migrates the report tables
func NewWithDB(ctx context.Context, db *gorm.DB, logger *zap.SugaredLogger) (*Store, error) {
	logger.Info("migrating report tables...")
	if err := db.WithContext(ctx).AutoMigrate(database.AllModels()...); err != nil {
		return nil, fmt.Errorf("could not migrate report tables: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// SaveReport stores every row of the report in one transaction
func (s *Store) SaveReport(ctx context.Context, rep cirque.Report) error {
	run := storage.RunFromReport(rep)
	rows := database.RowsFromReport(rep, run.CreatedAt)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows.Run).Error; err != nil {
			return fmt.Errorf("could not store run: %w", err)
		}
		if err := createAll(tx, rows.CrossSections); err != nil {
			return fmt.Errorf("could not store cross sections: %w", err)
		}
		if err := createAll(tx, rows.HalfProfiles); err != nil {
			return fmt.Errorf("could not store half profiles: %w", err)
		}
		if err := createAll(tx, rows.Boundaries); err != nil {
			return fmt.Errorf("could not store boundary points: %w", err)
		}
		if err := createAll(tx, rows.LowPoints); err != nil {
			return fmt.Errorf("could not store low points: %w", err)
		}
		if err := createAll(tx, rows.Failures); err != nil {
			return fmt.Errorf("could not store failures: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Errorf("could not store run %s: %v", rep.RunID, err)
		return err
	}
	s.logger.Infof("stored run %s (%d profiles)", rep.RunID, run.Profiles)
	return nil
}

func createAll[T Tabler](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(&rows, 500).Error
}

// Runs lists the stored runs, newest first
func (s *Store) Runs(ctx context.Context) ([]storage.Run, error) {
	var rows []database.Run
	if err := s.db.WithContext(ctx).Order("created_at DESC, run_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}
	runs := make([]storage.Run, 0, len(rows))
	for _, r := range rows {
		runs = append(runs, storage.Run{ID: r.RunID, CreatedAt: r.CreatedAt, Profiles: r.Profiles, Failures: r.Failures})
	}
	return runs, nil
}

// Report loads every stored row of one run
func (s *Store) Report(ctx context.Context, runID uuid.UUID) (cirque.Report, error) {
	db := s.db.WithContext(ctx)

	var rows database.Rows
	err := db.Where("run_id = ?", runID).First(&rows.Run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cirque.Report{}, storage.ErrRunNotFound
	}
	if err != nil {
		return cirque.Report{}, fmt.Errorf("error querying run: %w", err)
	}

	for _, q := range []struct {
		dest  any
		order string
	}{
		{&rows.CrossSections, "profile_id"},
		{&rows.HalfProfiles, "profile_id"},
		{&rows.Boundaries, "id"},
		{&rows.LowPoints, "profile_id"},
		{&rows.Failures, "profile_id"},
	} {
		if err := db.Where("run_id = ?", runID).Order(q.order).Find(q.dest).Error; err != nil {
			return cirque.Report{}, fmt.Errorf("error querying run %s: %w", runID, err)
		}
	}

	return rows.Report(), nil
}

// CheckHealth pings the database and runs a trivial query
func (s *Store) CheckHealth(ctx context.Context) *storage.Health {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storage.NewHealth(storage.StatusUnhealthy, "failed to get underlying database connection", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storage.NewHealth(storage.StatusUnhealthy, "database ping failed", err)
	}
	var result int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error; err != nil {
		return storage.NewHealth(storage.StatusUnhealthy, "test query failed", err)
	}
	return storage.NewHealth(storage.StatusHealthy, "PostgreSQL connection active", nil)
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
