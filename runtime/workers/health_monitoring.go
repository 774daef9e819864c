package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker samples the server process and feeds the monitor.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	monitor        *observability.Monitor
	metricInterval time.Duration
	pid            int32
}

func NewHealthMonitoringWorker(log *slog.Logger, monitor *observability.Monitor, metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		monitor:        monitor,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			stats, err := w.sample(p)
			if err != nil {
				w.log.Error("Error while sampling process", "pid", w.pid, "error", err)
				continue
			}
			w.monitor.Record(stats)
		}
	}
}

func (w *HealthMonitoringWorker) sample(p *process.Process) (observability.ProcessStats, error) {
	status, err := p.Status()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	return observability.ProcessStats{
		PID:        w.pid,
		Status:     status,
		CPUPercent: cpu,
		RAMPercent: ram,
		RSSMb:      mem.RSS / 1024 / 1024,
		SampledAt:  time.Now().UTC(),
	}, nil
}
