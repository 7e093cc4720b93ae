package scheduler

import (
	"context"
	"sync"
	"time"

	"wildfire-dashboard/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper evicts expired job results.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Reaper drops progress sessions nobody updated for a while.
type Reaper interface {
	ReapStale(olderThan time.Duration) int
	Len() int
}

// PoolReporter publishes database pool statistics.
type PoolReporter interface {
	ReportPoolStats()
}

// Janitor runs the periodic housekeeping of the job subsystem on a cron
// schedule: result eviction, stale session reaping and gauge refresh.
type Janitor struct {
	spec     string
	results  Sweeper
	sessions Reaper
	pool     PoolReporter // optional
	maxIdle  time.Duration
	log      *zerolog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewJanitor reaps sessions idle for longer than maxIdle. If spec is empty it
// runs every minute.
func NewJanitor(spec string, results Sweeper, sessions Reaper, maxIdle time.Duration, pool PoolReporter, logger *zerolog.Logger) *Janitor {
	if spec == "" {
		spec = "@every 1m"
	}
	l := logger.With().Str("component", "Janitor").Logger()
	return &Janitor{
		spec:     spec,
		results:  results,
		sessions: sessions,
		pool:     pool,
		maxIdle:  maxIdle,
		log:      &l,
	}
}

// Start schedules the sweep. Calling Start twice has no effect.
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(j.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		j.RunOnce(ctx)
	}); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	j.log.Info().Str("schedule", j.spec).Msg("janitor started")
	return nil
}

// Stop waits for a running sweep to finish. It is idempotent.
func (j *Janitor) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	j.log.Info().Msg("janitor stopped")
}

// RunOnce performs one sweep.
func (j *Janitor) RunOnce(ctx context.Context) {
	if j.results != nil {
		n, err := j.results.Sweep(ctx)
		if err != nil {
			j.log.Error().Err(err).Msg("result sweep failed")
		}
		if n > 0 {
			metrics.AddResultsEvicted(n)
			j.log.Info().Int("count", n).Msg("expired results evicted")
		}
	}

	if j.sessions != nil {
		if n := j.sessions.ReapStale(j.maxIdle); n > 0 {
			j.log.Info().Int("count", n).Msg("stale sessions reaped")
		}
		metrics.SetSessions(j.sessions.Len())
	}

	if j.pool != nil {
		j.pool.ReportPoolStats()
	}
}
