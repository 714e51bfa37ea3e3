// Package sqlite stores batch reports in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/internal/storage"
	"github.com/chrissnell/cirquemetrics/pkg/migrate"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the schema migrations of the report database
func Migrations() migrate.Provider {
	return migrate.NewFSProvider(migrations, "migrations")
}

// Store is a SQLite backed report store
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// New opens the database at path and brings its schema up to date
func New(path string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	m := migrate.NewMigrator(db, Migrations(), migrate.WithLogger(logger.Infof))
	if err := m.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate SQLite database: %w", err)
	}

	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CheckHealth pings the database
func (s *Store) CheckHealth(ctx context.Context) *storage.Health {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return storage.NewHealth(storage.StatusUnhealthy, "ping failed", err)
	}
	return storage.NewHealth(storage.StatusHealthy, s.path, nil)
}

// SaveReport stores every row of the report in one transaction
func (s *Store) SaveReport(ctx context.Context, rep cirque.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	run := storage.RunFromReport(rep)
	id := rep.RunID.String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, profiles, failures) VALUES (?, ?, ?, ?)`,
		id, run.CreatedAt, run.Profiles, run.Failures); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, r := range rep.CrossSections {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cross_sections (run_id, profile_id, plot_ref, length, height, integral,
				wh_ratio, asymmetry, hh_ratio, v_index, quad_c, quad_r2, vwdr_a, vwdr_b, vwdr_r2)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, r.ProfileID, r.PlotRef, r.Length, r.Height, r.Integral,
			r.WHRatio, r.Asymmetry, r.HHRatio, r.VIndex, r.QuadC, r.QuadR2, r.VWDRA, r.VWDRB, r.VWDRR2)
		if err != nil {
			return fmt.Errorf("failed to insert cross section %s: %w", r.ProfileID, err)
		}
	}

	for _, r := range rep.HalfProfiles {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO half_profiles (run_id, profile_id, parent_id, length, height, wh_ratio,
				integral, closure, aspect, gradient, exp_a, exp_b, exp_r2, pow_a, pow_b, pow_r2,
				kcurve_c, kcurve_r2, sl, sl_r2)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, r.ProfileID, r.ParentID, r.Length, r.Height, r.WHRatio,
			r.Integral, r.Closure, r.Aspect, r.Gradient, r.ExpA, r.ExpB, r.ExpR2, r.PowA, r.PowB, r.PowR2,
			r.KCurveC, r.KCurveR2, r.SL, r.SLR2)
		if err != nil {
			return fmt.Errorf("failed to insert half profile %s: %w", r.ProfileID, err)
		}
	}

	for _, b := range rep.Boundaries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO boundary_points (run_id, profile_id, x, y, point_type) VALUES (?, ?, ?, ?, ?)`,
			id, b.ProfileID, b.X, b.Y, int(b.Type)); err != nil {
			return fmt.Errorf("failed to insert boundary point: %w", err)
		}
	}

	for _, lp := range rep.LowPoints {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO low_points (run_id, profile_id, x, y) VALUES (?, ?, ?, ?)`,
			id, lp.ProfileID, lp.X, lp.Y); err != nil {
			return fmt.Errorf("failed to insert low point: %w", err)
		}
	}

	for _, f := range rep.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO failures (run_id, profile_id, error) VALUES (?, ?, ?)`,
			id, f.ProfileID, f.Error); err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	s.logger.Infof("stored run %s (%d profiles)", id, run.Profiles)
	return nil
}

// Runs lists the stored runs, newest first
func (s *Store) Runs(ctx context.Context) ([]storage.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, created_at, profiles, failures FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []storage.Run
	for rows.Next() {
		var r storage.Run
		var id string
		if err := rows.Scan(&id, &r.CreatedAt, &r.Profiles, &r.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Report loads every stored row of one run
func (s *Store) Report(ctx context.Context, runID uuid.UUID) (cirque.Report, error) {
	id := runID.String()
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE run_id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return cirque.Report{}, storage.ErrRunNotFound
	}
	if err != nil {
		return cirque.Report{}, fmt.Errorf("failed to query run: %w", err)
	}

	rep := cirque.Report{
		RunID:         runID,
		CrossSections: []cirque.CrossSectionRow{},
		HalfProfiles:  []cirque.HalfProfileRow{},
		LowPoints:     []cirque.LowPoint{},
	}

	err = s.query(ctx, `
		SELECT profile_id, COALESCE(plot_ref, ''), length, height, integral, wh_ratio, asymmetry,
			hh_ratio, v_index, quad_c, quad_r2, vwdr_a, vwdr_b, vwdr_r2
		FROM cross_sections WHERE run_id = ? ORDER BY profile_id`, id,
		func(rows *sql.Rows) error {
			var r cirque.CrossSectionRow
			if err := rows.Scan(&r.ProfileID, &r.PlotRef, &r.Length, &r.Height, &r.Integral, &r.WHRatio,
				&r.Asymmetry, &r.HHRatio, &r.VIndex, &r.QuadC, &r.QuadR2, &r.VWDRA, &r.VWDRB, &r.VWDRR2); err != nil {
				return err
			}
			rep.CrossSections = append(rep.CrossSections, r)
			return nil
		})
	if err != nil {
		return cirque.Report{}, fmt.Errorf("failed to load cross sections: %w", err)
	}

	err = s.query(ctx, `
		SELECT profile_id, parent_id, length, height, wh_ratio, integral, closure, aspect, gradient,
			exp_a, exp_b, exp_r2, pow_a, pow_b, pow_r2, kcurve_c, kcurve_r2, sl, sl_r2
		FROM half_profiles WHERE run_id = ? ORDER BY profile_id`, id,
		func(rows *sql.Rows) error {
			var r cirque.HalfProfileRow
			if err := rows.Scan(&r.ProfileID, &r.ParentID, &r.Length, &r.Height, &r.WHRatio, &r.Integral,
				&r.Closure, &r.Aspect, &r.Gradient, &r.ExpA, &r.ExpB, &r.ExpR2, &r.PowA, &r.PowB, &r.PowR2,
				&r.KCurveC, &r.KCurveR2, &r.SL, &r.SLR2); err != nil {
				return err
			}
			rep.HalfProfiles = append(rep.HalfProfiles, r)
			return nil
		})
	if err != nil {
		return cirque.Report{}, fmt.Errorf("failed to load half profiles: %w", err)
	}

	err = s.query(ctx, `SELECT profile_id, x, y, point_type FROM boundary_points WHERE run_id = ? ORDER BY rowid`, id,
		func(rows *sql.Rows) error {
			var b cirque.BoundaryPoint
			var t int
			if err := rows.Scan(&b.ProfileID, &b.X, &b.Y, &t); err != nil {
				return err
			}
			b.Type = cirque.PointType(t)
			rep.Boundaries = append(rep.Boundaries, b)
			return nil
		})
	if err != nil {
		return cirque.Report{}, fmt.Errorf("failed to load boundary points: %w", err)
	}

	err = s.query(ctx, `SELECT profile_id, x, y FROM low_points WHERE run_id = ? ORDER BY profile_id`, id,
		func(rows *sql.Rows) error {
			var lp cirque.LowPoint
			if err := rows.Scan(&lp.ProfileID, &lp.X, &lp.Y); err != nil {
				return err
			}
			rep.LowPoints = append(rep.LowPoints, lp)
			return nil
		})
	if err != nil {
		return cirque.Report{}, fmt.Errorf("failed to load low points: %w", err)
	}

	err = s.query(ctx, `SELECT profile_id, error FROM failures WHERE run_id = ? ORDER BY profile_id`, id,
		func(rows *sql.Rows) error {
			var f cirque.Failure
			if err := rows.Scan(&f.ProfileID, &f.Error); err != nil {
				return err
			}
			rep.Failures = append(rep.Failures, f)
			return nil
		})
	if err != nil {
		return cirque.Report{}, fmt.Errorf("failed to load failures: %w", err)
	}

	return rep, nil
}

func (s *Store) query(ctx context.Context, q string, arg any, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, q, arg)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
