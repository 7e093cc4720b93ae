package results

import (
	"context"
	"sync"
	"time"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/repository"
)

var _ repository.ResultStore = (*MemoryStore)(nil)

type item struct {
	res     *model.JobResult
	expires time.Time
}

// MemoryStore is the single-process ResultStore. Entries live for ttl and are
// removed by Sweep; Get already hides expired entries.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]item
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{items: make(map[string]item), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Put(ctx context.Context, res *model.JobResult) error {
	if res == nil || res.SessionID == "" {
		return domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if it, ok := s.items[res.SessionID]; ok && now.Before(it.expires) {
		return domain.ErrResultExists
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	s.items[res.SessionID] = item{res: res, expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*model.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[sessionID]
	if !ok || !s.now().Before(it.expires) {
		return nil, domain.ErrNotFound
	}
	return it.res, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
	return nil
}

func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, it := range s.items {
		if !now.Before(it.expires) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}
