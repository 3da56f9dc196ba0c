package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"guild-chat/observability"

	"github.com/shirou/gopsutil/process"
)

// GaugeRefresher republishes gauges derived from in-memory state.
type GaugeRefresher interface {
	Refresh()
}

// HeartbeatWorker samples the server process (CPU, RAM) and the connection gauges.
type HeartbeatWorker struct {
	log      *slog.Logger
	metrics  *observability.Metrics
	gauges   GaugeRefresher
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, metrics *observability.Metrics, gauges GaugeRefresher, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, metrics: metrics, gauges: gauges, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.gauges.Refresh()
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.metrics.SetProcess(cpu, rss)
		}
	}
}

func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
