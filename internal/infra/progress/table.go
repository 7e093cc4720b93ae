package progress

import (
	"sync"
	"time"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/repository"
)

// historyLimit bounds the events kept per session. Streams that fall further
// behind than this only see the newest events.
const historyLimit = 256

var _ repository.ProgressTable = (*Table)(nil)

type entry struct {
	snap    model.Progress
	events  []model.ProgressEvent
	changed chan struct{}
}

// notify wakes every waiter on the previous version of the entry.
func (e *entry) notify() {
	close(e.changed)
	e.changed = make(chan struct{})
}

func (e *entry) appendEvent(u model.Update, at time.Time) {
	e.snap.LastSeq++
	ev := model.ProgressEvent{
		Seq:     e.snap.LastSeq,
		Value:   u.Value,
		Phase:   u.Phase,
		Message: u.Message,
		At:      at,
	}
	if e.snap.Status.Terminal() {
		ev.Status = e.snap.Status
	}
	e.events = append(e.events, ev)
	if n := len(e.events); n > historyLimit {
		e.events = append(e.events[:0:0], e.events[n-historyLimit:]...)
	}
}

// Table is the in-memory ProgressTable. One lock guards the map and every
// entry, so a reader never sees a value from one update paired with the phase
// of another.
type Table struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

func NewTable() *Table {
	return &Table{entries: make(map[string]*entry), now: time.Now}
}

func (t *Table) newEntry(id string, phase string, status model.SessionStatus) *entry {
	e := &entry{
		snap: model.Progress{
			SessionID: id,
			Phase:     phase,
			Status:    status,
			UpdatedAt: t.now(),
		},
		changed: make(chan struct{}),
	}
	t.entries[id] = e
	return e
}

// Register creates the session at 0/"starting". A pending entry created by an
// early subscriber is adopted so that subscriber keeps receiving events.
func (t *Table) Register(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[id]; ok {
		if e.snap.Status != model.SessionPending {
			return domain.ErrAlreadyExists
		}
		e.snap.Phase = model.PhaseStarting
		e.snap.Status = model.SessionRunning
		e.snap.UpdatedAt = t.now()
		e.notify()
		return nil
	}
	t.newEntry(id, model.PhaseStarting, model.SessionRunning)
	return nil
}

func (t *Table) Ensure(id string) model.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		e = t.newEntry(id, model.PhasePending, model.SessionPending)
	}
	return e.snap
}

// Set records u. Updates arriving after cancellation or a terminal state are
// dropped. Indeterminate updates refresh phase and message but keep the last
// percentage. An update for an unknown id recreates the session.
func (t *Table) Set(id string, u model.Update) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		e = t.newEntry(id, u.Phase, model.SessionRunning)
	}
	if e.snap.CancelRequested || e.snap.Status.Terminal() {
		return false
	}
	now := t.now()
	if u.Value != model.Indeterminate {
		e.snap.Value = clamp(u.Value)
		u.Value = e.snap.Value
	}
	e.snap.Phase = u.Phase
	e.snap.Message = u.Message
	e.snap.Status = model.SessionRunning
	e.snap.UpdatedAt = now
	e.appendEvent(u, now)
	e.notify()
	return true
}

// Finish records the terminal update. A session already cancelled keeps its
// cancelled state.
func (t *Table) Finish(id string, status model.SessionStatus, u model.Update) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		e = t.newEntry(id, u.Phase, model.SessionRunning)
	}
	if e.snap.Status.Terminal() {
		return false
	}
	now := t.now()
	e.snap.Value = clamp(u.Value)
	u.Value = e.snap.Value
	e.snap.Phase = u.Phase
	e.snap.Message = u.Message
	e.snap.Status = status
	e.snap.UpdatedAt = now
	e.appendEvent(u, now)
	e.notify()
	return true
}

func (t *Table) Get(id string) (model.Progress, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[id]
	if !ok {
		return model.Progress{}, domain.ErrNotFound
	}
	return e.snap, nil
}

func (t *Table) Events(id string, after uint64) ([]model.ProgressEvent, <-chan struct{}, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[id]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	var out []model.ProgressEvent
	for _, ev := range e.events {
		if ev.Seq > after {
			out = append(out, ev)
		}
	}
	return out, e.changed, nil
}

// Remove deletes the session and wakes its waiters, which then observe
// ErrNotFound.
func (t *Table) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[id]; ok {
		delete(t.entries, id)
		close(e.changed)
	}
}

// RequestCancel flags the session and forces it to 0/"cancelled". Repeated
// calls and calls after a terminal state leave it unchanged.
func (t *Table) RequestCancel(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	if e.snap.CancelRequested || e.snap.Status.Terminal() {
		return nil
	}
	now := t.now()
	e.snap.CancelRequested = true
	e.snap.Value = 0
	e.snap.Phase = model.PhaseCancelled
	e.snap.Message = ""
	e.snap.Status = model.SessionCancelled
	e.snap.UpdatedAt = now
	e.appendEvent(model.Update{Value: 0, Phase: model.PhaseCancelled}, now)
	e.notify()
	return nil
}

func (t *Table) IsCancelRequested(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[id]
	return ok && e.snap.CancelRequested
}

// ReapStale removes sessions with no update for longer than olderThan and
// returns how many were removed.
func (t *Table) ReapStale(olderThan time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	n := 0
	for id, e := range t.entries {
		if e.snap.Stale(now, olderThan) {
			delete(t.entries, id)
			close(e.changed)
			n++
		}
	}
	return n
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
