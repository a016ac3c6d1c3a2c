package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcount/internal/config"
	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	dashboardKeyPrefix = "dashboard:report"
	scanBatchSize      = 100
)

// DashboardCache holds aggregated reports keyed by report date.
type DashboardCache interface {
	Get(ctx context.Context, date string) (*domain.DashboardReport, bool, error)
	Set(ctx context.Context, date string, report *domain.DashboardReport) error
	InvalidateAll(ctx context.Context) error
}

type redisDashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopDashboardCache struct{}

// NewDashboardCache returns a redis-backed cache when caching is enabled and
// a no-op cache otherwise.
func NewDashboardCache(cfg config.CacheConfig, client *redis.Client) DashboardCache {
	if !cfg.Enabled || client == nil {
		return &noopDashboardCache{}
	}
	return &redisDashboardCache{client: client, ttl: dashboardTTL(cfg)}
}

func NewNoopDashboardCache() DashboardCache {
	return &noopDashboardCache{}
}

func (c *redisDashboardCache) Get(ctx context.Context, date string) (*domain.DashboardReport, bool, error) {
	payload, err := c.client.Get(ctx, dashboardKey(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.DashboardReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode dashboard cache: %w", err)
	}
	return &report, true, nil
}

func (c *redisDashboardCache) Set(ctx context.Context, date string, report *domain.DashboardReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode dashboard cache: %w", err)
	}
	if err := c.client.Set(ctx, dashboardKey(date), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisDashboardCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, dashboardKeyPrefix, scanBatchSize)
}

func (n *noopDashboardCache) Get(ctx context.Context, date string) (*domain.DashboardReport, bool, error) {
	return nil, false, nil
}

func (n *noopDashboardCache) Set(ctx context.Context, date string, report *domain.DashboardReport) error {
	return nil
}

func (n *noopDashboardCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func dashboardKey(date string) string {
	if date == "" {
		date = "default"
	}
	return fmt.Sprintf("%s:%s", dashboardKeyPrefix, date)
}
