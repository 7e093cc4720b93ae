package adapter

import "context"

// ResourceSample is one CPU/memory reading.
type ResourceSample struct {
	CPUPercent      float64
	MemoryUsedBytes uint64
}

// ResourceSampler measures host utilization over a short window.
type ResourceSampler interface {
	Sample(ctx context.Context) (ResourceSample, error)
}
