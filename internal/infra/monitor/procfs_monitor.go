package monitor

import (
	"context"
	"fmt"
	"time"

	"wildfire-dashboard/internal/domain/ports/adapter"

	"github.com/prometheus/procfs"
)

var _ adapter.ResourceSampler = (*ProcMonitor)(nil)

// ProcMonitor samples host CPU and memory from /proc. CPU utilization is the
// busy share of two /proc/stat readings taken window apart, so a single spike
// between scheduler ticks does not dominate.
type ProcMonitor struct {
	fs     procfs.FS
	window time.Duration
}

func NewProcMonitor(window time.Duration) (*ProcMonitor, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	if window <= 0 {
		window = 200 * time.Millisecond
	}
	return &ProcMonitor{fs: fs, window: window}, nil
}

func (m *ProcMonitor) Sample(ctx context.Context) (adapter.ResourceSample, error) {
	first, err := m.fs.Stat()
	if err != nil {
		return adapter.ResourceSample{}, fmt.Errorf("read stat: %w", err)
	}

	t := time.NewTimer(m.window)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return adapter.ResourceSample{}, ctx.Err()
	case <-t.C:
	}

	second, err := m.fs.Stat()
	if err != nil {
		return adapter.ResourceSample{}, fmt.Errorf("read stat: %w", err)
	}
	mem, err := m.fs.Meminfo()
	if err != nil {
		return adapter.ResourceSample{}, fmt.Errorf("read meminfo: %w", err)
	}

	return adapter.ResourceSample{
		CPUPercent:      cpuPercent(first.CPUTotal, second.CPUTotal),
		MemoryUsedBytes: memoryUsed(mem),
	}, nil
}

func cpuPercent(a, b procfs.CPUStat) float64 {
	idle := (b.Idle + b.Iowait) - (a.Idle + a.Iowait)
	total := cpuTotal(b) - cpuTotal(a)
	if total <= 0 {
		return 0
	}
	busy := total - idle
	if busy < 0 {
		busy = 0
	}
	return busy / total * 100
}

func cpuTotal(s procfs.CPUStat) float64 {
	// guest time is already counted in user/nice
	return s.User + s.Nice + s.System + s.Idle + s.Iowait + s.IRQ + s.SoftIRQ + s.Steal
}

// memoryUsed is MemTotal - MemAvailable in bytes; meminfo reports kB.
func memoryUsed(mi procfs.Meminfo) uint64 {
	if mi.MemTotal == nil || mi.MemAvailable == nil {
		return 0
	}
	if *mi.MemAvailable > *mi.MemTotal {
		return 0
	}
	return (*mi.MemTotal - *mi.MemAvailable) * 1024
}
