package mode

import (
	"context"
	"time"

	"geoassist-be/internal/pkg/logger"
)

const DefaultSweepInterval = time.Minute

// Janitor runs Manager.Sweep on a fixed interval.
type Janitor struct {
	manager  *Manager
	interval time.Duration
	logger   logger.ILogger
}

func NewJanitor(manager *Manager, interval time.Duration, log logger.ILogger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Janitor{manager: manager, interval: interval, logger: log}
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("JANITOR", "Session sweep started", map[string]interface{}{"interval": j.interval.String()})
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("JANITOR", "Session sweep stopped", nil)
			return nil
		case now := <-ticker.C:
			if n := j.manager.Sweep(ctx, now); n > 0 {
				j.logger.Info("JANITOR", "Expired sessions evicted", map[string]interface{}{
					"evicted":   n,
					"remaining": j.manager.ActiveSessions(),
				})
			}
		}
	}
}
