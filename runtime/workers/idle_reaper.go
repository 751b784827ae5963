package workers

import (
	"context"
	"log/slog"
	"time"

	"restaurant-hub/domain"
	"restaurant-hub/metrics"
)

type idleRegistry interface {
	Idle(since time.Time) []domain.ConnectionID
	Disconnect(id domain.ConnectionID)
}

// IdleReaper closes connections that stopped talking. Ping frames and
// commands both count as activity.
type IdleReaper struct {
	log         *slog.Logger
	registry    idleRegistry
	idleTimeout time.Duration
	interval    time.Duration
	now         func() time.Time
}

func NewIdleReaper(log *slog.Logger, registry idleRegistry, idleTimeout, interval time.Duration) *IdleReaper {
	return &IdleReaper{
		log:         log,
		registry:    registry,
		idleTimeout: idleTimeout,
		interval:    interval,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (w *IdleReaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping idle reaper")
			return nil
		case <-ticker.C:
			w.Reap()
		}
	}
}

// Reap disconnects every idle connection and returns how many were closed.
func (w *IdleReaper) Reap() int {
	idle := w.registry.Idle(w.now().Add(-w.idleTimeout))
	for _, id := range idle {
		w.registry.Disconnect(id)
		metrics.IdleConnectionsReaped.Inc()
		w.log.Info("Idle connection closed", "connection_id", id)
	}
	return len(idle)
}
