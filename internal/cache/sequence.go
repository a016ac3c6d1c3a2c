package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sequenceKeyPrefix = "po:seq"
	sequenceTTL       = time.Minute
	secondLayout      = "20060102150405"
)

// OrderSequence hands out a counter per wall-clock second, starting at 1,
// so order ids created in the same second stay distinct.
type OrderSequence interface {
	Next(ctx context.Context, at time.Time) (int64, error)
}

type memorySequence struct {
	mu     sync.Mutex
	second string
	n      int64
}

// NewMemorySequence is unique within one process only.
func NewMemorySequence() OrderSequence {
	return &memorySequence{}
}

func (s *memorySequence) Next(_ context.Context, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := at.Format(secondLayout)
	if key != s.second {
		s.second = key
		s.n = 0
	}
	s.n++
	return s.n, nil
}

type redisSequence struct {
	client *redis.Client
}

// NewRedisSequence shares the counter between processes through INCR.
func NewRedisSequence(client *redis.Client) OrderSequence {
	return &redisSequence{client: client}
}

func (s *redisSequence) Next(ctx context.Context, at time.Time) (int64, error) {
	key := fmt.Sprintf("%s:%s", sequenceKeyPrefix, at.UTC().Format(secondLayout))

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, sequenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr failed: %w", err)
	}
	return incr.Val(), nil
}
