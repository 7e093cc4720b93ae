package monitor

import (
	"fmt"
	"time"

	"wildfire-dashboard/internal/config"
	"wildfire-dashboard/internal/domain/ports/adapter"
)

// Pause is one throttle decision that fired.
type Pause struct {
	Reason   string // cpu | memory
	Duration time.Duration
	Message  string
}

// Policy turns a resource sample into zero, one or two pauses. The CPU and
// memory checks are independent.
type Policy struct {
	CPUThresholdPercent  float64
	MemoryThresholdBytes uint64
	CPUPause             time.Duration
	MemoryPause          time.Duration
}

func PolicyFromConfig(c config.ThrottleConfig) Policy {
	return Policy{
		CPUThresholdPercent:  c.CPUThresholdPercent,
		MemoryThresholdBytes: c.MemoryThresholdBytes,
		CPUPause:             c.CPUPause,
		MemoryPause:          c.MemoryPause,
	}
}

func (p Policy) Decide(s adapter.ResourceSample) []Pause {
	var out []Pause
	if s.CPUPercent > p.CPUThresholdPercent {
		out = append(out, Pause{
			Reason:   "cpu",
			Duration: p.CPUPause,
			Message:  fmt.Sprintf("CPU usage %.1f%% above %.0f%%, pausing", s.CPUPercent, p.CPUThresholdPercent),
		})
	}
	if s.MemoryUsedBytes > p.MemoryThresholdBytes {
		out = append(out, Pause{
			Reason:   "memory",
			Duration: p.MemoryPause,
			Message:  fmt.Sprintf("memory usage %.2f GiB above %.2f GiB, pausing", gib(s.MemoryUsedBytes), gib(p.MemoryThresholdBytes)),
		})
	}
	return out
}

func gib(b uint64) float64 { return float64(b) / (1 << 30) }
