// Package app wires configuration, storage and the analysis API into the long-running server.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/internal/controllers/restserver"
	"github.com/chrissnell/cirquemetrics/internal/managers"
	"github.com/chrissnell/cirquemetrics/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Params converts the analysis configuration into analyzer settings
func Params(a config.AnalysisData) (cirque.Params, error) {
	mode, err := cirque.ParseBoundaryMode(a.BoundaryMode)
	if err != nil {
		return cirque.Params{}, err
	}
	return cirque.Params{
		Epsilon:           a.Epsilon,
		MinHeight:         a.MinHeight,
		TurningPointCount: a.TurningPointCount,
		ClusterRadius:     a.ClusterRadius,
		CellSize:          a.CellSize,
		Mode:              mode,
		HalfProfiles:      a.HalfProfilesEnabled(),
		Workers:           a.Workers,
	}, nil
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if cfg.REST == nil {
		return errors.New("no rest section in configuration; nothing to serve")
	}

	params, err := Params(cfg.Analysis)
	if err != nil {
		return err
	}

	// Initialize the storage manager
	storageManager, err := managers.NewStorageManager(ctx, cfg.Storage, a.logger)
	if err != nil {
		return err
	}
	defer storageManager.Close()

	opts := restserver.Options{}
	if storageManager.Enabled() {
		interval, err := cfg.REST.HealthCheckInterval()
		if err != nil {
			return err
		}
		storageManager.StartHealthMonitors(ctx, interval)
		opts = restserver.Options{
			Store:   storageManager,
			Backend: storageManager.Primary(),
			Health:  storageManager.Health,
		}
	}

	rs, err := restserver.NewController(ctx, &wg, *cfg.REST, params, opts, a.logger.Named("rest"))
	if err != nil {
		return err
	}
	if err := rs.StartController(); err != nil {
		return err
	}

	a.logger.Info("application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}
