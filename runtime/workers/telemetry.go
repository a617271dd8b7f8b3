package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"peerdesk/observability"
)

// TelemetryWorker periodically logs process health plus the admission
// audit counters, so silently dropped traffic stays visible to the
// operator.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
	audit    *observability.Audit
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration, audit *observability.Audit) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval, audit: audit}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
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
			w.report(p)
		}
	}
}

func (w *TelemetryWorker) report(p *process.Process) {
	attrs := []any{
		"goroutines", runtime.NumGoroutine(),
		"applied", w.audit.AppliedCount(),
		"relayed", w.audit.RelayedCount(),
	}
	if mem, err := p.MemoryInfo(); err == nil {
		attrs = append(attrs, "rss_mb", mem.RSS/(1024*1024))
	}
	if cpu, err := p.CPUPercent(); err == nil {
		attrs = append(attrs, "cpu_pct", cpu)
	}
	for reason, n := range w.audit.Drops() {
		attrs = append(attrs, "drop_"+string(reason), n)
	}
	w.log.Info("Session telemetry", attrs...)
}
