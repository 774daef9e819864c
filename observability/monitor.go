// Package observability keeps the latest process and connection metrics in memory.
package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ProcessStats is one sample of the server process.
type ProcessStats struct {
	PID        int32     `json:"pid"`
	Status     string    `json:"status"`
	CPUPercent float64   `json:"cpu_percent"`
	RAMPercent float32   `json:"ram_percent"`
	RSSMb      uint64    `json:"rss_mb"`
	Goroutines int       `json:"goroutines"`
	AllocMemMb uint64    `json:"alloc_mem_mb"`
	NumGC      uint32    `json:"num_gc"`
	SampledAt  time.Time `json:"sampled_at"`
}

type ConnectionStats struct {
	Open            int64  `json:"open"`
	Accepted        uint64 `json:"accepted"`
	ClosedWithError uint64 `json:"closed_with_error"`
}

type Snapshot struct {
	Process     ProcessStats    `json:"process"`
	Connections ConnectionStats `json:"connections"`
}

type Monitor struct {
	log     *slog.Logger
	mu      sync.RWMutex
	process ProcessStats

	open            atomic.Int64
	accepted        atomic.Uint64
	closedWithError atomic.Uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	return &Monitor{log: log}
}

func (m *Monitor) ConnectionOpened() {
	m.open.Add(1)
	m.accepted.Add(1)
}

func (m *Monitor) ConnectionClosed(withError bool) {
	m.open.Add(-1)
	if withError {
		m.closedWithError.Add(1)
	}
}

// Record stores a process sample, completing it with Go runtime figures.
func (m *Monitor) Record(stats ProcessStats) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats.AllocMemMb = mem.Alloc / 1024 / 1024
	stats.NumGC = mem.NumGC
	stats.Goroutines = runtime.NumGoroutine()

	m.mu.Lock()
	m.process = stats
	m.mu.Unlock()

	m.log.Debug("Process sampled",
		"cpu", stats.CPUPercent,
		"ram", stats.RAMPercent,
		"goroutines", stats.Goroutines,
		"open_connections", m.open.Load(),
	)
}

func (m *Monitor) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Process: m.process,
		Connections: ConnectionStats{
			Open:            m.open.Load(),
			Accepted:        m.accepted.Load(),
			ClosedWithError: m.closedWithError.Load(),
		},
	}
}
