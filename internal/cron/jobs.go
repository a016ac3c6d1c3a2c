package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/service"
	"github.com/andresuchdata/stockcount/internal/stock"
	"github.com/rs/zerolog/log"
)

const (
	JobCheckReminder = "daily_check_reminder"
	JobDailySummary  = "daily_summary"
	JobStockAlert    = "stock_alert"

	systemStaffID = "system"
)

type checklistSource interface {
	TodayChecklist(ctx context.Context, staffID string) (*domain.Checklist, error)
}

type reportSource interface {
	Aggregate(ctx context.Context, asOf time.Time) (*domain.DashboardReport, error)
}

type lowStockSource interface {
	LowStock(ctx context.Context) ([]domain.StockLine, error)
}

type alertScanner interface {
	ScanNotified(ctx context.Context, lowNotified bool) ([]domain.AlertEvent, error)
}

type recountFeed interface {
	ListRecountsSince(ctx context.Context, since time.Time) ([]domain.RecountRecord, error)
}

// messenger is the part of notify.Dispatcher the jobs use.
type messenger interface {
	CheckReminder(ctx context.Context, list *domain.Checklist) int
	DailySummary(ctx context.Context, report *domain.DashboardReport) int
	StockAlert(ctx context.Context, low []domain.StockLine) int
}

// dailyGate lets a job act once per site-local day, at or after hour.
type dailyGate struct {
	hour int
	now  service.Clock

	mu      sync.Mutex
	lastRun string
}

func (g *dailyGate) due() (string, bool) {
	now := g.now()
	date := stock.FormatDate(now)

	g.mu.Lock()
	defer g.mu.Unlock()
	if now.Hour() < g.hour || g.lastRun == date {
		return date, false
	}
	return date, true
}

func (g *dailyGate) done(date string) {
	g.mu.Lock()
	g.lastRun = date
	g.mu.Unlock()
}

type checkReminderJob struct {
	gate      *dailyGate
	checklist checklistSource
	notify    messenger
}

// NewCheckReminderJob sends the day's recount list to the manager once a
// day at hour.
func NewCheckReminderJob(checklist checklistSource, notify messenger, hour int, now service.Clock) (Job, error) {
	if checklist == nil || notify == nil {
		return nil, fmt.Errorf("checklist source and messenger required")
	}
	return &checkReminderJob{
		gate:      &dailyGate{hour: hour, now: now},
		checklist: checklist,
		notify:    notify,
	}, nil
}

func (j *checkReminderJob) Name() string { return JobCheckReminder }

func (j *checkReminderJob) Run(ctx context.Context) error {
	date, ok := j.gate.due()
	if !ok {
		return nil
	}
	list, err := j.checklist.TodayChecklist(ctx, systemStaffID)
	if err != nil {
		return fmt.Errorf("build checklist: %w", err)
	}
	sent := j.notify.CheckReminder(ctx, list)
	j.gate.done(date)

	log.Info().Str("date", date).Int("due", list.TodayTotal).Int("sent", sent).Msg("cron: check reminder sent")
	return nil
}

type dailySummaryJob struct {
	gate    *dailyGate
	reports reportSource
	notify  messenger
}

// NewDailySummaryJob sends the dashboard to the owner once a day at hour.
func NewDailySummaryJob(reports reportSource, notify messenger, hour int, now service.Clock) (Job, error) {
	if reports == nil || notify == nil {
		return nil, fmt.Errorf("report source and messenger required")
	}
	return &dailySummaryJob{
		gate:    &dailyGate{hour: hour, now: now},
		reports: reports,
		notify:  notify,
	}, nil
}

func (j *dailySummaryJob) Name() string { return JobDailySummary }

func (j *dailySummaryJob) Run(ctx context.Context) error {
	date, ok := j.gate.due()
	if !ok {
		return nil
	}
	report, err := j.reports.Aggregate(ctx, j.gate.now())
	if err != nil {
		return fmt.Errorf("aggregate dashboard: %w", err)
	}
	sent := j.notify.DailySummary(ctx, report)
	j.gate.done(date)

	log.Info().Str("date", date).Int("low", report.LowCount).Int("sent", sent).Msg("cron: daily summary sent")
	return nil
}

type stockAlertJob struct {
	recounts recountFeed
	low      lowStockSource
	scanner  alertScanner
	notify   messenger
	now      service.Clock

	mu    sync.Mutex
	since time.Time
}

// NewStockAlertJob records and sends low stock alerts whenever recounts
// arrived since its previous run.
func NewStockAlertJob(recounts recountFeed, low lowStockSource, scanner alertScanner, notify messenger, now service.Clock) (Job, error) {
	if recounts == nil || low == nil || notify == nil {
		return nil, fmt.Errorf("recount feed, low stock source and messenger required")
	}
	return &stockAlertJob{
		recounts: recounts,
		low:      low,
		scanner:  scanner,
		notify:   notify,
		now:      now,
		since:    now(),
	}, nil
}

func (j *stockAlertJob) Name() string { return JobStockAlert }

func (j *stockAlertJob) Run(ctx context.Context) error {
	j.mu.Lock()
	since := j.since
	j.mu.Unlock()

	started := j.now()
	recent, err := j.recounts.ListRecountsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("list recent recounts: %w", err)
	}
	if len(recent) == 0 {
		return nil
	}
	if err := j.alert(ctx); err != nil {
		return err
	}

	j.mu.Lock()
	j.since = started
	j.mu.Unlock()
	return nil
}

// alert sends the low stock notification, then logs the scan with the
// delivery outcome.
func (j *stockAlertJob) alert(ctx context.Context) error {
	low, err := j.low.LowStock(ctx)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}
	sent := j.notify.StockAlert(ctx, low)
	log.Info().Int("low", len(low)).Int("sent", sent).Msg("cron: stock alert sent")

	if j.scanner != nil {
		if _, err := j.scanner.ScanNotified(ctx, sent > 0); err != nil {
			log.Warn().Err(err).Msg("cron: alert scan failed")
		}
	}
	return nil
}
