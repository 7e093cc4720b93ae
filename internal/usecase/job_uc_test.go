//go:build !integration

package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
)

func TestJobUseCase_StartReturnsBeforeProgress(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	id, err := h.uc.Start(ctx, model.JobRequest{Kind: model.JobForecast})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id == "" {
		t.Fatal("expected a session id")
	}
	if h.pool.pending() != 1 {
		t.Fatalf("expected the job to be queued, got %d pending", h.pool.pending())
	}

	p, err := h.uc.Status(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if p.Value != 0 || p.Phase != model.PhaseStarting || p.Status != model.SessionRunning {
		t.Fatalf("unexpected snapshot before run: %+v", p)
	}
	if _, err := h.uc.Result(ctx, id); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady while running, got %v", err)
	}

	other, _ := h.uc.Start(ctx, model.JobRequest{Kind: model.JobForecast})
	if other == id {
		t.Fatal("session ids must be unique")
	}
}

func TestJobUseCase_DownloadSkipsExistingFile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	local := h.data.Path(h.data.CombinedFile)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(local, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	id, err := h.uc.Start(ctx, model.JobRequest{Kind: model.JobDownload})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	h.pool.runAll()

	evs := h.events(id)
	if len(evs) != 1 {
		t.Fatalf("expected exactly one event, got %+v", evs)
	}
	if evs[0].Value != 100 || evs[0].Phase != model.PhaseDownloadSkip || evs[0].Status != model.SessionSucceeded {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
	if h.store.callCount() != 0 {
		t.Fatal("storage must not be contacted when the file exists")
	}
	res, err := h.uc.Result(ctx, id)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Data.(map[string]any)["skipped"] != true {
		t.Fatalf("expected skipped result, got %+v", res.Data)
	}
}

func TestJobUseCase_DownloadReportsBytes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.sizes["modis/combined.parquet"] = 1000

	id, _ := h.uc.Start(ctx, model.JobRequest{Kind: model.JobDownload})
	h.pool.runAll()

	evs := h.events(id)
	if len(evs) != 12 {
		t.Fatalf("expected 12 events (start, 10 chunks, done), got %d", len(evs))
	}
	for i := 1; i <= 10; i++ {
		if evs[i].Value != i*10 || evs[i].Phase != model.PhaseDownloading {
			t.Fatalf("event %d: %+v", i, evs[i])
		}
	}
	last := evs[len(evs)-1]
	if last.Phase != model.PhaseDownloadComplete || last.Value != 100 {
		t.Fatalf("unexpected final event: %+v", last)
	}
	if _, err := os.Stat(h.data.Path(h.data.CombinedFile)); err != nil {
		t.Fatalf("file not written: %v", err)
	}
}

func TestJobUseCase_DownloadAllResetsPerItem(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.sizes["modis/combined.parquet"] = 200
	h.store.sizes["models/fire_model.json"] = 200

	id, _ := h.uc.Start(ctx, model.JobRequest{Kind: model.JobDownloadAll})
	h.pool.runAll()

	var phases []string
	for _, ev := range h.events(id) {
		if len(phases) == 0 || phases[len(phases)-1] != ev.Phase {
			phases = append(phases, ev.Phase)
		}
	}
	want := []string{"downloading dataset", "downloading model", model.PhaseAllComplete}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases = %v, want %v", phases, want)
		}
	}
	p, _ := h.table.Get(id)
	if p.Status != model.SessionSucceeded {
		t.Fatalf("expected succeeded, got %+v", p)
	}
}

func TestJobUseCase_CancelDuringDownload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.sizes["modis/combined.parquet"] = 1000

	id, _ := h.uc.Start(ctx, model.JobRequest{Kind: model.JobDownload})
	chunks := 0
	h.store.onChunk = func() {
		chunks++
		if chunks == 3 {
			_ = h.uc.Cancel(ctx, id)
		}
	}
	h.pool.runAll()

	p, _ := h.table.Get(id)
	if p.Value != 0 || p.Phase != model.PhaseCancelled || p.Status != model.SessionCancelled {
		t.Fatalf("unexpected snapshot: %+v", p)
	}
	evs := h.events(id)
	if last := evs[len(evs)-1]; last.Phase != model.PhaseCancelled {
		t.Fatalf("no update may follow the cancel, last event %+v", last)
	}
	if _, err := h.uc.Result(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected no result, got %v", err)
	}
	if run, _ := h.history.get(id); run.Status != model.SessionCancelled {
		t.Fatalf("history status = %s", run.Status)
	}
}

func TestJobUseCase_RepartitionSortedKeys(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.cols.parts[h.data.CombinedFile] = []model.FireRecord{
		{Year: "2003"}, {Year: "2001"}, {Year: "2002"}, {Year: "2001"},
	}

	id, err := h.uc.Start(ctx, model.JobRequest{Kind: model.JobRepartition})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	h.pool.runAll()

	var got []model.ProgressEvent
	for _, ev := range h.events(id) {
		if ev.Phase == model.PhaseSplitting {
			got = append(got, ev)
		}
	}
	want := []struct {
		v   int
		key string
	}{{33, "2001"}, {67, "2002"}, {100, "2003"}}
	if len(got) != len(want) {
		t.Fatalf("expected %d splitting events, got %+v", len(want), got)
	}
	for i, w := range want {
		if got[i].Value != w.v || got[i].Message != w.key {
			t.Errorf("event %d = (%d, %s), want (%d, %s)", i, got[i].Value, got[i].Message, w.v, w.key)
		}
	}
	if len(h.cols.parts["parquet/2001.parquet"]) != 2 {
		t.Fatal("2001 partition should hold two rows")
	}
	p, _ := h.table.Get(id)
	if p.Status != model.SessionSucceeded || p.Value != 100 {
		t.Fatalf("unexpected final snapshot: %+v", p)
	}
}

func TestJobUseCase_ForecastEventCount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.cols.parts["parquet/2010.parquet"] = []model.FireRecord{{AcqDate: "2010-07-01"}, {AcqDate: "2010-07-09"}}

	id, err := h.uc.Start(ctx, model.JobRequest{Kind: model.JobForecast, Forecast: &model.ForecastParams{Periods: 10}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	h.pool.runAll()

	evs := h.events(id)
	if len(evs) != 35 {
		t.Fatalf("expected 34 progress events plus the final one, got %d", len(evs))
	}
	for k, ev := range evs[:34] {
		wantPhase := model.PhaseLoading
		if k >= 24 {
			wantPhase = model.PhaseForecasting
		}
		if ev.Phase != wantPhase {
			t.Fatalf("event %d phase = %s, want %s", k, ev.Phase, wantPhase)
		}
		if want := ((k+1)*100 + 17) / 34; ev.Value != want {
			t.Fatalf("event %d value = %d, want %d", k, ev.Value, want)
		}
	}
	if evs[24].Message != "2025-01" || evs[33].Message != "2025-10" {
		t.Fatalf("unexpected forecast dates %q..%q", evs[24].Message, evs[33].Message)
	}
	if final := evs[34]; final.Phase != model.PhaseDone || final.Status != model.SessionSucceeded {
		t.Fatalf("unexpected final event: %+v", final)
	}
	if len(h.fc.series) != 24*12 || h.fc.series[9*12+6] != 2 {
		t.Fatalf("series not built from monthly counts: len=%d", len(h.fc.series))
	}

	res, err := h.uc.Result(ctx, id)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	data := res.Data.(model.ForecastData)
	if len(data.Forecast) != 10 || len(data.History) != 288 {
		t.Fatalf("unexpected forecast payload sizes: %d/%d", len(data.Forecast), len(data.History))
	}
}

func TestJobUseCase_CancelBeforeFirstLoad(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	id, err := h.uc.Start(ctx, model.JobRequest{Kind: model.JobAnalyze, Analyze: &model.AnalyzeFilters{StartYear: 2001, EndYear: 2003}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.uc.Cancel(ctx, id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	h.pool.runAll()

	if n := h.cols.readCount(); n != 0 {
		t.Fatalf("expected no partition reads, got %d", n)
	}
	p, _ := h.table.Get(id)
	if p.Value != 0 || p.Phase != model.PhaseCancelled || p.Status != model.SessionCancelled {
		t.Fatalf("unexpected snapshot: %+v", p)
	}
	if _, err := h.uc.Result(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("no result may be stored, got %v", err)
	}
}

func TestJobUseCase_Cancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id, _ := h.uc.Start(ctx, model.JobRequest{Kind: model.JobForecast})

	t.Run("idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if err := h.uc.Cancel(ctx, id); err != nil {
				t.Fatalf("cancel #%d: %v", i+1, err)
			}
		}
		if len(h.events(id)) != 1 {
			t.Fatalf("second cancel must not add events: %+v", h.events(id))
		}
	})

	t.Run("missing id", func(t *testing.T) {
		if err := h.uc.Cancel(ctx, ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if err := h.uc.Cancel(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestJobUseCase_FailureResetsToZero(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.cols.fail["parquet/2001.parquet"] = errors.New("disk on fire")

	id, _ := h.uc.Start(ctx, model.JobRequest{Kind: model.JobAnalyze, Analyze: &model.AnalyzeFilters{StartYear: 2001, EndYear: 2001}})
	h.pool.runAll()

	p, _ := h.table.Get(id)
	if p.Value != 0 || p.Phase != model.PhaseError || p.Status != model.SessionFailed {
		t.Fatalf("unexpected snapshot: %+v", p)
	}
	if p.Message != "load 2001: disk on fire" {
		t.Fatalf("unexpected message %q", p.Message)
	}
	if _, err := h.uc.Result(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("failed job must not store a result, got %v", err)
	}
	run, ok := h.history.get(id)
	if !ok || run.Status != model.SessionFailed || run.LastError == "" || run.FinishedAt == nil {
		t.Fatalf("unexpected history record: %+v", run)
	}
}

func TestJobUseCase_PanicBecomesError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.fc.panics = true

	id, _ := h.uc.Start(ctx, model.JobRequest{Kind: model.JobForecast, Forecast: &model.ForecastParams{Periods: 1}})
	h.pool.runAll()

	p, _ := h.table.Get(id)
	if p.Status != model.SessionFailed || p.Phase != model.PhaseError || p.Message != "internal error" {
		t.Fatalf("unexpected snapshot: %+v", p)
	}
}

func TestJobUseCase_QueueFull(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.pool.err = domain.ErrQueueFull

	_, err := h.uc.Start(ctx, model.JobRequest{Kind: model.JobForecast})
	if !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if h.table.Len() != 0 {
		t.Fatal("a rejected job must not leave a session behind")
	}
}

func TestJobUseCase_Validation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	cases := []struct {
		name string
		req  model.JobRequest
		want error
	}{
		{"unknown kind", model.JobRequest{Kind: "train"}, domain.ErrUnknownJobKind},
		{"analyze without filters", model.JobRequest{Kind: model.JobAnalyze}, domain.ErrInvalidArgument},
		{"analyze reversed years", model.JobRequest{Kind: model.JobAnalyze, Analyze: &model.AnalyzeFilters{StartYear: 2005, EndYear: 2001}}, domain.ErrInvalidArgument},
		{"bad daynight", model.JobRequest{Kind: model.JobAnalyze, Analyze: &model.AnalyzeFilters{StartYear: 2001, EndYear: 2001, DayNight: "X"}}, domain.ErrInvalidArgument},
		{"bad repartition key", model.JobRequest{Kind: model.JobRepartition, Repartition: &model.RepartitionParams{Key: "brightness"}}, domain.ErrInvalidArgument},
		{"download outside data root", model.JobRequest{Kind: model.JobDownload, Download: &model.DownloadParams{LocalPath: "../../etc/passwd"}}, domain.ErrInvalidArgument},
		{"repartition absolute output", model.JobRequest{Kind: model.JobRepartition, Repartition: &model.RepartitionParams{Output: "/tmp"}}, domain.ErrInvalidArgument},
		{"malformed session id", model.JobRequest{Kind: model.JobForecast, SessionID: "a/b"}, domain.ErrInvalidArgument},
		{"negative periods", model.JobRequest{Kind: model.JobForecast, Forecast: &model.ForecastParams{Periods: -1}}, domain.ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.uc.Start(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if h.table.Len() != 0 {
		t.Fatal("rejected requests must not register sessions")
	}
}

func TestJobUseCase_History(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id, _ := h.uc.Start(ctx, model.JobRequest{Kind: model.JobForecast, Forecast: &model.ForecastParams{Periods: 1}})
	h.pool.runAll()

	runs, err := h.uc.History(ctx, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(runs) != 1 || runs[0].SessionID != id || runs[0].Status != model.SessionSucceeded {
		t.Fatalf("unexpected history: %+v", runs)
	}
}

func TestJobUseCase_ReusedSessionID(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	req := model.JobRequest{Kind: model.JobForecast, SessionID: "client-1", Forecast: &model.ForecastParams{Periods: 1}}

	if _, err := h.uc.Start(ctx, req); err != nil {
		t.Fatalf("first start: %v", err)
	}
	h.pool.runAll()
	first, err := h.uc.Result(ctx, "client-1")
	if err != nil {
		t.Fatalf("first result: %v", err)
	}
	// a stream reaps the finished session; the result outlives it
	h.table.Remove("client-1")

	t.Run("rejected while a result is stored", func(t *testing.T) {
		if _, err := h.uc.Start(ctx, req); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		if h.pool.pending() != 0 {
			t.Fatalf("rejected start must not queue, got %d pending", h.pool.pending())
		}
		if _, err := h.table.Get("client-1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("rejected start must not register, got %v", err)
		}
		got, err := h.uc.Result(ctx, "client-1")
		if err != nil || got != first {
			t.Fatalf("stored result changed: %v", err)
		}
	})

	t.Run("allowed after eviction", func(t *testing.T) {
		_ = h.results.Delete(ctx, "client-1")
		if _, err := h.uc.Start(ctx, req); err != nil {
			t.Fatalf("start after eviction: %v", err)
		}
		if _, err := h.uc.Result(ctx, "client-1"); !errors.Is(err, domain.ErrNotReady) {
			t.Fatalf("expected ErrNotReady for the new run, got %v", err)
		}
		h.pool.runAll()
		p, _ := h.table.Get("client-1")
		if p.Status != model.SessionSucceeded {
			t.Fatalf("second run should succeed: %+v", p)
		}
	})
}

func TestJobUseCase_ResultHiddenUntilSucceeded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id, err := h.uc.Start(ctx, model.JobRequest{Kind: model.JobForecast})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	// the job stored its result but has not published 100 yet
	if err := h.results.Put(ctx, &model.JobResult{SessionID: id}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := h.uc.Result(ctx, id); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady before the final update, got %v", err)
	}

	if err := h.uc.Cancel(ctx, id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := h.uc.Result(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cancelled session must not expose a result, got %v", err)
	}
}
