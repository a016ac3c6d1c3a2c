// Package app wires configuration into stores, caches and services for the
// binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/stockcount/internal/api"
	"github.com/andresuchdata/stockcount/internal/cache"
	"github.com/andresuchdata/stockcount/internal/config"
	"github.com/andresuchdata/stockcount/internal/notify"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/andresuchdata/stockcount/internal/repository/memory"
	"github.com/andresuchdata/stockcount/internal/repository/postgres"
	"github.com/andresuchdata/stockcount/internal/repository/sheets"
	"github.com/andresuchdata/stockcount/internal/service"
	"github.com/andresuchdata/stockcount/internal/storage"
	"github.com/andresuchdata/stockcount/pkg/auth"
	"github.com/andresuchdata/stockcount/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSheets   = "sheets"
)

// App holds every long-lived dependency of a process.
type App struct {
	Config   *config.Config
	Store    *repository.Store
	Redis    *redis.Client
	Now      service.Clock
	Services *api.Services
}

// New opens the configured store and builds the services. reg may be nil.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	loc := cfg.App.Location()
	now := service.SiteClock(loc)

	store, err := OpenStore(ctx, cfg, loc)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Store: store, Now: now}

	var (
		dashboardCache = cache.NewNoopDashboardCache()
		sequence       = cache.NewMemorySequence()
	)
	if cfg.Cache.Enabled {
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.Redis = client
		dashboardCache = cache.NewDashboardCache(cfg.Cache, client)
		sequence = cache.NewRedisSequence(client)
	} else if d := strings.ToLower(strings.TrimSpace(cfg.Store.Driver)); d != DriverMemory {
		log.Warn().Str("driver", d).Msg("redis disabled, order ids are sequenced per process; replicas sharing the store may collide")
	}

	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		a.Close()
		return nil, err
	}

	var archive storage.ObjectStorage
	if cfg.Storage.Enabled {
		s, err := storage.NewMinioStorage(cfg.Storage)
		if err != nil {
			a.Close()
			return nil, err
		}
		archive = s
	}

	stockMetrics := metrics.NewStockMetrics(reg)
	alerts := service.NewAlertRecorder(store.Alerts, store.Items, now)

	dispatcher := notify.NewDispatcher(notifier, store.Staff, cfg.App.SiteName, cfg.App.ChecklistURL)
	recounts := service.NewRecountService(store.Items, store.Recounts, alerts, dashboardCache, stockMetrics, now, cfg.App.VarianceThreshold).
		NotifyWith(dispatcher)

	a.Services = &api.Services{
		Items:    service.NewItemService(store.Items, dashboardCache, now),
		Schedule: service.NewScheduleService(store.Items, now),
		Recounts: recounts,
		Orders: service.NewOrderService(service.OrderRepos{
			Items:    store.Items,
			Orders:   store.Orders,
			StockLog: store.StockLog,
		}, sequence, dashboardCache, stockMetrics, now),
		Dashboard: service.NewDashboardService(service.DashboardRepos{
			Items:    store.Items,
			Orders:   store.Orders,
			Recounts: store.Recounts,
		}, dashboardCache, cfg.App.SiteName, cfg.App.HistoryDays, now),
		Alerts:     alerts,
		Dispatcher: dispatcher,
		Archive:    archive,
	}
	return a, nil
}

// OpenStore selects the persistence driver named by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config, loc *time.Location) (*repository.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch driver {
	case DriverMemory:
		log.Warn().Msg("using in-memory store, data is lost on exit")
		return memory.New(), nil
	case "", DriverPostgres:
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		return postgres.NewStore(db), nil
	case DriverSheets:
		client, err := sheets.NewClient(ctx, cfg.Sheets.CredentialsJSON, cfg.Sheets.SpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("connect sheets: %w", err)
		}
		return sheets.New(client, cfg.App.SiteName, loc), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// AuthConfig converts the auth settings for token minting and parsing.
func AuthConfig(cfg config.AuthConfig) auth.Config {
	return auth.Config{
		Secret: cfg.JWTSecret,
		TTL:    time.Duration(cfg.TokenTTLHrs) * time.Hour,
	}
}

// Close releases the store and redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if a.Store != nil && a.Store.Close != nil {
		if err := a.Store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}
}
