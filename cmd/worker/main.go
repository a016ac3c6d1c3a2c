package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/stockcount/internal/app"
	"github.com/andresuchdata/stockcount/internal/config"
	"github.com/andresuchdata/stockcount/internal/cron"
	"github.com/andresuchdata/stockcount/pkg/logger"
	"github.com/andresuchdata/stockcount/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

func main() {
	worker := &cli.App{
		Name:  "worker",
		Usage: "Run scheduled stock reminders, summaries and alerts",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the job loop and serve /metrics and /healthz",
				Action: runLoop,
			},
			{
				Name:      "job",
				Usage:     "Run one job immediately",
				ArgsUsage: "<" + cron.JobCheckReminder + "|" + cron.JobDailySummary + "|" + cron.JobStockAlert + ">",
				Action:    runOnce,
			},
		},
		DefaultCommand: "run",
	}

	if err := worker.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("worker failed")
	}
}

type runtime struct {
	app     *app.App
	service *cron.Service
}

func setup(ctx context.Context, reg prometheus.Registerer) (*runtime, error) {
	cfg := config.Load()
	logger.Setup(cfg.Server.Mode, "stockcount-worker")

	application, err := app.New(ctx, cfg, reg)
	if err != nil {
		return nil, err
	}

	svc, err := buildService(application, reg)
	if err != nil {
		application.Close()
		return nil, err
	}
	return &runtime{app: application, service: svc}, nil
}

func buildService(a *app.App, reg prometheus.Registerer) (*cron.Service, error) {
	cfg := a.Config.Cron
	s := a.Services

	reminder, err := cron.NewCheckReminderJob(s.Schedule, s.Dispatcher, cfg.ReminderHour, a.Now)
	if err != nil {
		return nil, err
	}
	summary, err := cron.NewDailySummaryJob(s.Dashboard, s.Dispatcher, cfg.SummaryHour, a.Now)
	if err != nil {
		return nil, err
	}
	alerts, err := cron.NewStockAlertJob(a.Store.Recounts, s.Items, s.Alerts, s.Dispatcher, a.Now)
	if err != nil {
		return nil, err
	}

	var lock cron.Lock = cron.NewLocalLock()
	if a.Redis != nil {
		redisLock, err := cron.NewRedisLock(a.Redis, cfg.LockKey, 0)
		if err != nil {
			return nil, err
		}
		lock = redisLock
	}

	return cron.NewService(cron.ServiceParams{
		Registry: cron.NewRegistry(reminder, summary, alerts),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: time.Duration(cfg.IntervalMinutes) * time.Minute,
	})
}

func runLoop(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer rt.app.Close()

	srv := &http.Server{
		Addr:              ":" + rt.app.Config.Cron.MetricsPort,
		Handler:           newOpsRouter(prometheus.DefaultGatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Log.Info().Str("addr", srv.Addr).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error().Err(err).Msg("ops server failed")
		}
	}()

	err = rt.service.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if errors.Is(err, context.Canceled) {
		logger.Log.Info().Msg("worker stopped")
		return nil
	}
	return err
}

func runOnce(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("job name is required")
	}
	rt, err := setup(c.Context, nil)
	if err != nil {
		return err
	}
	defer rt.app.Close()
	return rt.service.RunJob(c.Context, name)
}
