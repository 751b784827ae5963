package workers

import (
	"context"
	"log/slog"
	"time"

	"restaurant-hub/metrics"
	"restaurant-hub/observability"
	"restaurant-hub/runtime"
)

type statsSource interface {
	Stats() runtime.Stats
}

type processSampler interface {
	Sample() (observability.ProcessStats, error)
}

// StatsReporter samples the registry and the process at a fixed interval
// and publishes the result to the monitor and the gauges.
type StatsReporter struct {
	log      *slog.Logger
	registry statsSource
	sampler  processSampler
	monitor  *observability.Monitor
	interval time.Duration
}

func NewStatsReporter(log *slog.Logger, registry statsSource, sampler processSampler,
	monitor *observability.Monitor, interval time.Duration) *StatsReporter {
	return &StatsReporter{log: log, registry: registry, sampler: sampler, monitor: monitor, interval: interval}
}

func (w *StatsReporter) Run(ctx context.Context) error {
	w.Report()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Report()
		}
	}
}

func (w *StatsReporter) Report() {
	hub := w.registry.Stats()
	snapshot := observability.Snapshot{Hub: hub, SampledAt: time.Now().UTC()}

	proc, err := w.sampler.Sample()
	if err != nil {
		w.log.Error("Failed to collect self stats", "err", err)
	} else {
		snapshot.Process = proc
		metrics.ProcessRSSBytes.Set(float64(proc.RSSBytes))
		metrics.ProcessCPUPercent.Set(proc.CPUPercent)
	}
	w.monitor.Update(snapshot)
	w.log.Debug("Hub stats",
		"connections", hub.Connections,
		"rooms", hub.Rooms,
		"memberships", hub.Memberships,
		"rss", proc.RSSBytes)
}
