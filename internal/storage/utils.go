package storage

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartHealthMonitor checks the store every interval and records the result until ctx
// is cancelled
func StartHealthMonitor(ctx context.Context, hm *HealthManager, backend string, store ReportStore, interval time.Duration, logger *zap.SugaredLogger) {
	go func() {
		update := func() {
			h := store.CheckHealth(ctx)
			hm.UpdateHealth(backend, h)
			logger.Debugf("updated %s health status: %s", backend, h.Status)
		}

		update()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				update()
			case <-ctx.Done():
				logger.Infof("stopping %s health monitor", backend)
				return
			}
		}
	}()
}
