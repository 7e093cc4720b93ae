//go:build !integration

package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"wildfire-dashboard/internal/config"
	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/adapter"
	"wildfire-dashboard/internal/infra/monitor"
	"wildfire-dashboard/internal/infra/progress"
	"wildfire-dashboard/internal/infra/worker"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// --- results

type memResults struct {
	mu    sync.Mutex
	store map[string]*model.JobResult
}

func newMemResults() *memResults { return &memResults{store: map[string]*model.JobResult{}} }

func (m *memResults) Put(ctx context.Context, res *model.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[res.SessionID]; ok {
		return domain.ErrResultExists
	}
	m.store[res.SessionID] = res
	return nil
}

func (m *memResults) Get(ctx context.Context, id string) (*model.JobResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (m *memResults) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

func (m *memResults) Sweep(ctx context.Context) (int, error) { return 0, nil }

// --- history

type memHistory struct {
	mu   sync.Mutex
	runs map[string]model.JobRun
}

func newMemHistory() *memHistory { return &memHistory{runs: map[string]model.JobRun{}} }

func (m *memHistory) RecordStart(ctx context.Context, run *model.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.SessionID] = *run
	return nil
}

func (m *memHistory) RecordFinish(ctx context.Context, run *model.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.SessionID] = *run
	return nil
}

func (m *memHistory) ListRecent(ctx context.Context, limit int) ([]*model.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.JobRun, 0, len(m.runs))
	for _, r := range m.runs {
		r := r
		out = append(out, &r)
	}
	return out, nil
}

func (m *memHistory) get(id string) (model.JobRun, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	return r, ok
}

// --- submitter

// captureSubmitter holds tasks until the test runs them, so the caller of
// Start observably returns before any job progress.
type captureSubmitter struct {
	mu    sync.Mutex
	tasks []worker.Task
	err   error
}

func (s *captureSubmitter) Submit(task worker.Task) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *captureSubmitter) runAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, t := range tasks {
		_ = t(context.Background())
	}
}

func (s *captureSubmitter) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// --- columnar

type fakeColumnar struct {
	mu     sync.Mutex
	parts  map[string][]model.FireRecord
	fail   map[string]error
	reads  []string
	writes []string
}

func newFakeColumnar() *fakeColumnar {
	return &fakeColumnar{parts: map[string][]model.FireRecord{}, fail: map[string]error{}}
}

func (f *fakeColumnar) ReadPartition(ctx context.Context, locator string, columns []string, filter model.Filter) ([]model.FireRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, locator)
	if err := f.fail[locator]; err != nil {
		return nil, err
	}
	rows, ok := f.parts[locator]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var out []model.FireRecord
	for _, r := range rows {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeColumnar) WritePartition(ctx context.Context, rows []model.FireRecord, locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, locator)
	f.parts[locator] = rows
	return nil
}

func (f *fakeColumnar) Exists(locator string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.parts[locator]
	return ok
}

func (f *fakeColumnar) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reads)
}

// --- object storage

type fakeStorage struct {
	mu      sync.Mutex
	sizes   map[string]int64
	chunk   int64
	calls   int
	onChunk func()
}

func (s *fakeStorage) HeadSize(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	n, ok := s.sizes[key]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return n, nil
}

func (s *fakeStorage) Download(ctx context.Context, key, localPath string, obs adapter.ByteObserver) error {
	s.mu.Lock()
	size := s.sizes[key]
	s.calls++
	s.mu.Unlock()

	for done := int64(0); done < size; done += s.chunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		obs.OnBytesTransferred(min(s.chunk, size-done))
		if s.onChunk != nil {
			s.onChunk()
		}
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, make([]byte, size), 0o644)
}

func (s *fakeStorage) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// --- forecaster

type fakeForecaster struct {
	series []float64
	panics bool
}

type flatModel struct{ v float64 }

func (m flatModel) Predict(h int) (float64, float64, float64) { return m.v, m.v - 1, m.v + 1 }

func (f *fakeForecaster) Fit(ctx context.Context, series []float64, season int) (adapter.FittedModel, error) {
	if f.panics {
		panic("fit blew up")
	}
	if len(series) < 2 {
		return nil, errors.New("series too short")
	}
	f.series = series
	return flatModel{v: 5}, nil
}

// --- sampler

type fakeSampler struct {
	sample adapter.ResourceSample
	err    error
}

func (s fakeSampler) Sample(ctx context.Context) (adapter.ResourceSample, error) {
	return s.sample, s.err
}

// --- harness

type harness struct {
	table   *progress.Table
	results *memResults
	history *memHistory
	pool    *captureSubmitter
	cols    *fakeColumnar
	store   *fakeStorage
	fc      *fakeForecaster
	tables  *memTables
	data    config.DataConfig
	uc      JobUseCase
}

func newHarness(t interface{ TempDir() string }) *harness {
	cfg := config.Default()
	cfg.Data.Root = t.TempDir()

	h := &harness{
		table:   progress.NewTable(),
		results: newMemResults(),
		history: newMemHistory(),
		pool:    &captureSubmitter{},
		cols:    newFakeColumnar(),
		store:   &fakeStorage{sizes: map[string]int64{}, chunk: 100},
		fc:      &fakeForecaster{},
		tables:  newMemTables(),
		data:    cfg.Data,
	}
	cat := NewCatalog(CatalogDeps{
		Storage:    h.store,
		Columnar:   h.cols,
		Tables:     h.tables,
		Forecaster: h.fc,
		Data:       cfg.Data,
		Objects:    cfg.Storage,
	}, newTestLogger())
	h.uc = NewJobUseCase(context.Background(), cat, h.table, h.results, h.history, h.pool, nil, monitor.PolicyFromConfig(cfg.Throttle), newTestLogger())
	return h
}

// events returns every recorded event of the session.
func (h *harness) events(id string) []model.ProgressEvent {
	evs, _, _ := h.table.Events(id, 0)
	return evs
}

// --- tables

type memTables struct {
	mu     sync.Mutex
	tables map[string]*model.Table
}

func newMemTables() *memTables { return &memTables{tables: map[string]*model.Table{}} }

func (m *memTables) ReadTable(path string) (*model.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (m *memTables) WriteTable(path string, t *model.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[path] = t
	return nil
}

func (m *memTables) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tables))
	for p := range m.tables {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
