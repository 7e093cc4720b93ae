package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/adapter"
	"wildfire-dashboard/internal/domain/ports/repository"
	"wildfire-dashboard/internal/infra/logging"
	"wildfire-dashboard/internal/infra/metrics"
	"wildfire-dashboard/internal/infra/monitor"
	"wildfire-dashboard/internal/infra/worker"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// JobUseCase starts background jobs and answers questions about them.
type JobUseCase interface {
	// Start validates req, registers the session and queues the job. It
	// returns the session id without waiting for the job to make progress.
	Start(ctx context.Context, req model.JobRequest) (string, error)

	// Cancel requests cooperative cancellation. Repeated calls are no-ops.
	Cancel(ctx context.Context, sessionID string) error

	// Status returns the current progress snapshot.
	Status(ctx context.Context, sessionID string) (model.Progress, error)

	// Result returns the stored result, ErrNotReady while the job runs and
	// ErrNotFound otherwise.
	Result(ctx context.Context, sessionID string) (*model.JobResult, error)

	// History lists recent runs; empty when no history store is configured.
	History(ctx context.Context, limit int) ([]*model.JobRun, error)
}

// Submitter queues a task for background execution.
type Submitter interface {
	Submit(task worker.Task) error
}

var _ JobUseCase = (*jobUC)(nil)

type jobUC struct {
	base    context.Context
	catalog *Catalog
	table   repository.ProgressTable
	results repository.ResultStore
	history repository.JobHistoryRepository // nil disables history
	pool    Submitter
	sampler adapter.ResourceSampler
	policy  monitor.Policy
	log     *zerolog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewJobUseCase wires the runner. base bounds every job: cancelling it (at
// shutdown) cancels all running jobs. history and sampler may be nil.
func NewJobUseCase(
	base context.Context,
	catalog *Catalog,
	table repository.ProgressTable,
	results repository.ResultStore,
	history repository.JobHistoryRepository,
	pool Submitter,
	sampler adapter.ResourceSampler,
	policy monitor.Policy,
	logger *zerolog.Logger,
) JobUseCase {
	return &jobUC{
		base:    base,
		catalog: catalog,
		table:   table,
		results: results,
		history: history,
		pool:    pool,
		sampler: sampler,
		policy:  policy,
		log:     logger,
		active:  make(map[string]context.CancelFunc),
	}
}

func (u *jobUC) Start(ctx context.Context, req model.JobRequest) (string, error) {
	body, err := u.catalog.Prepare(req)
	if err != nil {
		return "", err
	}
	id := req.SessionID
	if id == "" {
		id = ulid.Make().String()
	} else if !validSessionID(id) {
		return "", fmt.Errorf("%w: malformed session id", domain.ErrInvalidArgument)
	} else if err := u.checkUnused(ctx, id); err != nil {
		return "", err
	}
	if err := u.table.Register(id); err != nil {
		return "", err
	}

	jobCtx, cancel := context.WithCancel(logging.WithSessID(u.base, id))
	u.mu.Lock()
	u.active[id] = cancel
	u.mu.Unlock()

	started := time.Now()
	u.recordStart(ctx, &model.JobRun{SessionID: id, Kind: req.Kind, Status: model.SessionRunning, StartedAt: started})

	task := func(context.Context) error {
		u.run(jobCtx, id, req.Kind, body, started)
		return nil
	}
	if err := u.pool.Submit(task); err != nil {
		u.release(id)
		u.table.Remove(id)
		metrics.IncJobRejected(string(req.Kind))
		finished := time.Now()
		u.recordFinish(&model.JobRun{SessionID: id, Kind: req.Kind, Status: model.SessionFailed, LastError: err.Error(), StartedAt: started, FinishedAt: &finished})
		return "", err
	}

	metrics.IncJobStarted(string(req.Kind))
	logging.With(jobCtx, u.log).Info().Str("kind", string(req.Kind)).Msg("job queued")
	return id, nil
}

func (u *jobUC) Cancel(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidArgument)
	}
	if err := u.table.RequestCancel(sessionID); err != nil {
		return err
	}
	u.mu.Lock()
	cancel, ok := u.active[sessionID]
	u.mu.Unlock()
	if ok {
		cancel()
	}
	logging.With(logging.WithSessID(ctx, sessionID), u.log).Info().Msg("job cancel requested")
	return nil
}

func (u *jobUC) Status(ctx context.Context, sessionID string) (model.Progress, error) {
	return u.table.Get(sessionID)
}

// Result consults the session before the store: a result is only served once
// its session succeeded or was reaped, so a cancel that lands between storing
// the result and the final update never exposes it.
func (u *jobUC) Result(ctx context.Context, sessionID string) (*model.JobResult, error) {
	if p, err := u.table.Get(sessionID); err == nil {
		switch p.Status {
		case model.SessionSucceeded:
		case model.SessionFailed, model.SessionCancelled:
			return nil, domain.ErrNotFound
		default:
			return nil, domain.ErrNotReady
		}
	}
	return u.results.Get(ctx, sessionID)
}

func (u *jobUC) History(ctx context.Context, limit int) ([]*model.JobRun, error) {
	if u.history == nil {
		return []*model.JobRun{}, nil
	}
	return u.history.ListRecent(ctx, limit)
}

// run executes one job on a worker. Every outcome ends in exactly one
// terminal table state; nothing escapes to the worker.
func (u *jobUC) run(ctx context.Context, id string, kind model.JobKind, body jobBody, started time.Time) {
	defer u.release(id)
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "jobUC.run")()

	status, errMsg := u.execute(ctx, id, kind, body, log)

	elapsed := time.Since(started)
	metrics.ObserveJobFinished(string(kind), string(status), elapsed)
	finished := time.Now()
	u.recordFinish(&model.JobRun{SessionID: id, Kind: kind, Status: status, LastError: errMsg, StartedAt: started, FinishedAt: &finished})

	ev := log.Info()
	if status == model.SessionFailed {
		ev = log.Error().Str("error", errMsg)
	}
	ev.Str("kind", string(kind)).Str("status", string(status)).Dur("elapsed", elapsed).Msg("job finished")
}

func (u *jobUC) execute(ctx context.Context, id string, kind model.JobKind, body jobBody, log *zerolog.Logger) (status model.SessionStatus, errMsg string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("stack", string(debug.Stack())).Msg("job panicked")
			u.table.Finish(id, model.SessionFailed, model.Update{Value: 0, Phase: model.PhaseError, Message: "internal error"})
			status, errMsg = model.SessionFailed, fmt.Sprint(rec)
		}
	}()

	tr := newTracker(id, u.table, u.sampler, u.policy, log)
	res, err := body(ctx, tr)

	if tr.Cancelled(ctx) || errors.Is(err, domain.ErrCancelled) || errors.Is(err, context.Canceled) {
		u.table.Finish(id, model.SessionCancelled, model.Update{Value: 0, Phase: model.PhaseCancelled})
		return model.SessionCancelled, ""
	}
	if err == nil && res == nil {
		err = errors.New("job produced no result")
	}
	if err != nil {
		u.table.Finish(id, model.SessionFailed, model.Update{Value: 0, Phase: model.PhaseError, Message: err.Error()})
		return model.SessionFailed, err.Error()
	}

	res.SessionID = id
	res.Kind = kind
	if err := u.results.Put(ctx, res); err != nil {
		u.table.Finish(id, model.SessionFailed, model.Update{Value: 0, Phase: model.PhaseError, Message: "store result: " + err.Error()})
		return model.SessionFailed, err.Error()
	}
	phase := res.Phase
	if phase == "" {
		phase = model.PhaseDone
	}
	// The result is visible before 100 is; a cancel that slipped in between
	// wins and the result is withdrawn.
	if !u.table.Finish(id, model.SessionSucceeded, model.Update{Value: 100, Phase: phase, Message: res.Message}) {
		_ = u.results.Delete(context.Background(), id)
		return model.SessionCancelled, ""
	}
	return model.SessionSucceeded, ""
}

func (u *jobUC) release(id string) {
	u.mu.Lock()
	cancel, ok := u.active[id]
	delete(u.active, id)
	u.mu.Unlock()
	if ok {
		cancel()
	}
}

func (u *jobUC) recordStart(ctx context.Context, run *model.JobRun) {
	if u.history == nil {
		return
	}
	if err := u.history.RecordStart(context.WithoutCancel(ctx), run); err != nil {
		metrics.IncHistoryWriteError("start")
		u.log.Warn().Err(err).Str("session_id", run.SessionID).Msg("record job start")
	}
}

func (u *jobUC) recordFinish(run *model.JobRun) {
	if u.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.history.RecordFinish(ctx, run); err != nil {
		metrics.IncHistoryWriteError("finish")
		u.log.Warn().Err(err).Str("session_id", run.SessionID).Msg("record job finish")
	}
}

// checkUnused rejects a caller-chosen id whose earlier run still has a stored
// result. The progress table alone forgets ids once a stream reaps them.
func (u *jobUC) checkUnused(ctx context.Context, id string) error {
	_, err := u.results.Get(ctx, id)
	switch {
	case err == nil:
		return fmt.Errorf("%w: session %s already has a result", domain.ErrAlreadyExists, id)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	}
	return fmt.Errorf("check session %s: %w", id, err)
}

// validSessionID accepts caller-chosen ids made of letters, digits, '-' and
// '_', at most 64 long.
func validSessionID(id string) bool {
	if len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
