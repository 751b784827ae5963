package observability

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats describes the hub process itself.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	Threads    int32   `json:"threads"`
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Goroutines int     `json:"goroutines"`
}

type ProcessSampler struct {
	p *process.Process
}

func NewProcessSampler() (*ProcessSampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &ProcessSampler{p: p}, nil
}

// Sample retrieves technical metrics (Memory, CPU, threads) for the current process.
func (s *ProcessSampler) Sample() (ProcessStats, error) {
	memInfo, err := s.p.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	cpuPercent, err := s.p.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}
	threads, err := s.p.NumThreads()
	if err != nil {
		return ProcessStats{}, err
	}
	return ProcessStats{
		PID:        s.p.Pid,
		Threads:    threads,
		RSSBytes:   memInfo.RSS,
		CPUPercent: cpuPercent,
		Goroutines: runtime.NumGoroutine(),
	}, nil
}

// Snapshot is the latest view published on /stats.
type Snapshot struct {
	Process   ProcessStats `json:"process"`
	Hub       any          `json:"hub"`
	SampledAt time.Time    `json:"sampledAt"`
}

// Monitor keeps the latest snapshot for readers that must not wait on a
// sample being taken.
type Monitor struct {
	mu     sync.RWMutex
	latest Snapshot
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) Update(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = s
}

func (m *Monitor) GetLatest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}
