// Package selfstat periodically samples the benchmark process's own CPU
// and memory usage, purely for diagnostics: it never feeds back into load
// shaping and never appears in the stdout report. Samples are written to
// the structured log at debug level only, so they show up only with
// --log-level debug; they are not exported on the metrics endpoint.
package selfstat

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// Sample is one point-in-time reading of process resource usage.
type Sample struct {
	CPUPercent float64
	RSSBytes   uint64
}

// Monitor samples the current process on an interval until its context
// is canceled, logging each sample at debug level.
type Monitor struct {
	proc   *process.Process
	logger zerolog.Logger
}

// NewMonitor opens a gopsutil handle on the current process.
func NewMonitor(logger zerolog.Logger) (*Monitor, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{proc: p, logger: logger}, nil
}

// Sample takes one reading immediately.
func (m *Monitor) Sample() (Sample, error) {
	cpuPct, err := m.proc.CPUPercent()
	if err != nil {
		return Sample{}, err
	}
	mem, err := m.proc.MemoryInfo()
	if err != nil {
		return Sample{}, err
	}
	return Sample{CPUPercent: cpuPct, RSSBytes: mem.RSS}, nil
}

// Run samples every interval until ctx is canceled, logging each result.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, err := m.Sample()
			if err != nil {
				m.logger.Debug().Err(err).Msg("self-stat sample failed")
				continue
			}
			m.logger.Debug().
				Float64("cpu_percent", s.CPUPercent).
				Uint64("rss_bytes", s.RSSBytes).
				Msg("self-stat sample")
		}
	}
}
