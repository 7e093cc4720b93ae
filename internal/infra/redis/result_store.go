package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.ResultStore = (*ResultStore)(nil)

// ResultStore keeps job results in redis so several dashboard instances can
// serve them. Expiry is native; Sweep has nothing to do.
type ResultStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewResultStore(client RedisClient, ttl time.Duration) *ResultStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultStore{client: client, ttl: ttl}
}

func resultKey(id string) string { return "job_result:" + id }

func (s *ResultStore) Put(ctx context.Context, res *model.JobResult) error {
	if res == nil || res.SessionID == "" {
		return domain.ErrInvalidArgument
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	ok, err := s.client.SetNX(ctx, resultKey(res.SessionID), data, s.ttl)
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	if !ok {
		return domain.ErrResultExists
	}
	return nil
}

func (s *ResultStore) Get(ctx context.Context, sessionID string) (*model.JobResult, error) {
	data, err := s.client.Get(ctx, resultKey(sessionID))
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}
	var res model.JobResult
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

func (s *ResultStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, resultKey(sessionID))
}

func (s *ResultStore) Sweep(ctx context.Context) (int, error) { return 0, nil }
