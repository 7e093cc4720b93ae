//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"wildfire-dashboard/internal/config"
	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/adapter"
	"wildfire-dashboard/internal/infra/monitor"
	"wildfire-dashboard/internal/infra/progress"
)

func newTestTracker(sampler adapter.ResourceSampler) (*Tracker, *progress.Table, *[]time.Duration) {
	table := progress.NewTable()
	_ = table.Register("s1")
	tr := newTracker("s1", table, sampler, monitor.PolicyFromConfig(config.Default().Throttle), newTestLogger())
	var slept []time.Duration
	tr.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return tr, table, &slept
}

func TestTracker_CheckpointThrottles(t *testing.T) {
	ctx := context.Background()

	t.Run("cpu and memory pause independently", func(t *testing.T) {
		tr, table, slept := newTestTracker(fakeSampler{sample: adapter.ResourceSample{CPUPercent: 80, MemoryUsedBytes: 9 << 30}})
		if err := tr.Checkpoint(ctx); err != nil {
			t.Fatalf("checkpoint: %v", err)
		}
		if len(*slept) != 2 || (*slept)[0] != 500*time.Millisecond || (*slept)[1] != time.Second {
			t.Fatalf("unexpected pauses: %v", *slept)
		}
		evs, _, _ := table.Events("s1", 0)
		if len(evs) != 2 {
			t.Fatalf("expected one throttling event per pause, got %+v", evs)
		}
		for _, ev := range evs {
			if ev.Phase != model.PhaseThrottling || !ev.Indeterminate() {
				t.Errorf("unexpected event: %+v", ev)
			}
		}
	})

	t.Run("below thresholds proceeds", func(t *testing.T) {
		tr, table, slept := newTestTracker(fakeSampler{sample: adapter.ResourceSample{CPUPercent: 10, MemoryUsedBytes: 1 << 30}})
		if err := tr.Checkpoint(ctx); err != nil {
			t.Fatalf("checkpoint: %v", err)
		}
		if len(*slept) != 0 {
			t.Fatalf("did not expect pauses: %v", *slept)
		}
		if evs, _, _ := table.Events("s1", 0); len(evs) != 0 {
			t.Fatalf("did not expect events: %+v", evs)
		}
	})

	t.Run("sampler failure does not block", func(t *testing.T) {
		tr, _, slept := newTestTracker(fakeSampler{err: errors.New("no /proc")})
		if err := tr.Checkpoint(ctx); err != nil {
			t.Fatalf("checkpoint: %v", err)
		}
		if len(*slept) != 0 {
			t.Fatal("a failed sample must not pause")
		}
	})

	t.Run("cancel during pause", func(t *testing.T) {
		tr, table, _ := newTestTracker(fakeSampler{sample: adapter.ResourceSample{CPUPercent: 99}})
		tr.sleep = func(ctx context.Context, d time.Duration) error {
			_ = table.RequestCancel("s1")
			return nil
		}
		if err := tr.Checkpoint(ctx); !errors.Is(err, domain.ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
	})
}

func TestTracker_ReportAfterContextEnds(t *testing.T) {
	tr, table, _ := newTestTracker(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr.Report(ctx, 50, "loading", "")
	if p, _ := table.Get("s1"); p.Value != 0 {
		t.Fatalf("report after cancel must be dropped, got %+v", p)
	}
	if !tr.Cancelled(ctx) {
		t.Fatal("a done context counts as cancelled")
	}
}

func TestPercent(t *testing.T) {
	cases := []struct{ done, total, want int }{
		{1, 3, 33}, {2, 3, 67}, {3, 3, 100},
		{1, 34, 3}, {17, 34, 50}, {34, 34, 100},
		{0, 0, 0},
	}
	for _, c := range cases {
		if got := percent(c.done, c.total); got != c.want {
			t.Errorf("percent(%d, %d) = %d, want %d", c.done, c.total, got, c.want)
		}
	}
}

func TestByteCounter(t *testing.T) {
	var got []int
	c := newByteCounter(1000, func(pct int) { got = append(got, pct) })
	for i := 0; i < 250; i++ {
		c.OnBytesTransferred(4)
	}
	if len(got) != 100 {
		t.Fatalf("expected one report per whole percent, got %d", len(got))
	}
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("report %d = %d", i, v)
		}
	}

	unknown := newByteCounter(0, func(int) { t.Fatal("unknown size must not report") })
	unknown.OnBytesTransferred(10)
}
