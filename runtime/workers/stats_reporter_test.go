package workers

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"restaurant-hub/observability"
	"restaurant-hub/runtime"

	"github.com/stretchr/testify/require"
)

type fixedStats runtime.Stats

func (f fixedStats) Stats() runtime.Stats { return runtime.Stats(f) }

type fakeSampler struct {
	stats observability.ProcessStats
	err   error
}

func (f fakeSampler) Sample() (observability.ProcessStats, error) { return f.stats, f.err }

func TestStatsReporter_Updates_Monitor(t *testing.T) {
	req := require.New(t)
	monitor := observability.NewMonitor()
	sampler := fakeSampler{stats: observability.ProcessStats{PID: 42, RSSBytes: 1 << 20}}
	reporter := NewStatsReporter(slog.Default(), fixedStats{Connections: 3, Rooms: 2}, sampler, monitor, time.Second)

	reporter.Report()

	latest := monitor.GetLatest()
	req.Equal(int32(42), latest.Process.PID)
	req.Equal(runtime.Stats{Connections: 3, Rooms: 2}, latest.Hub)
	req.False(latest.SampledAt.IsZero())
}

func TestStatsReporter_Keeps_Hub_Stats_When_Sampling_Fails(t *testing.T) {
	req := require.New(t)
	monitor := observability.NewMonitor()
	reporter := NewStatsReporter(slog.Default(), fixedStats{Connections: 1}, fakeSampler{err: fmt.Errorf("no /proc")}, monitor, time.Second)

	reporter.Report()

	latest := monitor.GetLatest()
	req.Equal(runtime.Stats{Connections: 1}, latest.Hub)
	req.Zero(latest.Process.PID)
}

func TestChannelCapacityWorker_Sample(t *testing.T) {
	outbound := make(chan int, 4)
	outbound <- 1
	worker := NewChannelCapacityWorker(slog.Default(), []NamedChannel{
		{Name: "bridge_outbound", Channel: outbound},
		{Name: "not_a_channel", Channel: 12},
	}, time.Second)

	// Then sampling tolerates foreign values
	worker.Sample()
	require.Len(t, outbound, 1)
}
