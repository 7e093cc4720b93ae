package usecase

import (
	"context"
	"time"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/adapter"
	"wildfire-dashboard/internal/domain/ports/repository"
	"wildfire-dashboard/internal/infra/metrics"
	"wildfire-dashboard/internal/infra/monitor"

	"github.com/rs/zerolog"
)

// Tracker is the only channel a job body has back to the outside world: it
// reports progress, answers "was I cancelled?" and applies the throttle policy
// between units of work.
type Tracker struct {
	id      string
	table   repository.ProgressTable
	sampler adapter.ResourceSampler // nil disables throttling
	policy  monitor.Policy
	log     *zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func newTracker(id string, table repository.ProgressTable, sampler adapter.ResourceSampler, policy monitor.Policy, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		id:      id,
		table:   table,
		sampler: sampler,
		policy:  policy,
		log:     logger,
		sleep:   sleepCtx,
	}
}

func (t *Tracker) SessionID() string { return t.id }

// Report publishes a percentage-bearing update. Updates after the job context
// ended are dropped so a cancelled job cannot resurrect a reaped session.
func (t *Tracker) Report(ctx context.Context, value int, phase, msg string) {
	if ctx.Err() != nil {
		return
	}
	t.table.Set(t.id, model.Update{Value: value, Phase: phase, Message: msg})
}

// Step publishes an indeterminate sub-step carrying only a label.
func (t *Tracker) Step(ctx context.Context, phase, msg string) {
	t.Report(ctx, model.Indeterminate, phase, msg)
}

func (t *Tracker) Cancelled(ctx context.Context) bool {
	return ctx.Err() != nil || t.table.IsCancelRequested(t.id)
}

// Checkpoint runs between units of work: it returns ErrCancelled when the job
// should stop, and otherwise pauses while the host is under CPU or memory
// pressure, announcing each pause with a "throttling" event first.
func (t *Tracker) Checkpoint(ctx context.Context) error {
	if t.Cancelled(ctx) {
		return domain.ErrCancelled
	}
	if t.sampler == nil {
		return nil
	}
	s, err := t.sampler.Sample(ctx)
	if err != nil {
		if t.Cancelled(ctx) {
			return domain.ErrCancelled
		}
		t.log.Debug().Err(err).Msg("resource sample failed; not throttling")
		return nil
	}
	for _, p := range t.policy.Decide(s) {
		t.Step(ctx, model.PhaseThrottling, p.Message)
		t.log.Debug().Str("reason", p.Reason).Dur("pause", p.Duration).Msg("throttling")
		metrics.ObserveThrottle(p.Reason, p.Duration)
		if err := t.sleep(ctx, p.Duration); err != nil {
			return domain.ErrCancelled
		}
	}
	if t.Cancelled(ctx) {
		return domain.ErrCancelled
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// percent is completed/total as a rounded integer percentage.
func percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (completed*100 + total/2) / total
}

// byteCounter turns transfer deltas into whole-percent progress for one
// download. It is owned by that download alone.
type byteCounter struct {
	total  int64
	done   int64
	last   int
	report func(pct int)
}

var _ adapter.ByteObserver = (*byteCounter)(nil)

func newByteCounter(total int64, report func(pct int)) *byteCounter {
	return &byteCounter{total: total, report: report}
}

func (c *byteCounter) OnBytesTransferred(delta int64) {
	c.done += delta
	if c.total <= 0 {
		return
	}
	pct := int(c.done * 100 / c.total)
	if pct > 100 {
		pct = 100
	}
	if pct > c.last {
		c.last = pct
		c.report(pct)
	}
}
