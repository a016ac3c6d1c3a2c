package service

import (
	"context"
	"sort"
	"time"

	"github.com/andresuchdata/stockcount/internal/cache"
	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/andresuchdata/stockcount/internal/stock"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultHistoryDays = 7
	lowTopSize         = 3
)

// DashboardRepos are the reads the aggregator composes. Orders and Recounts
// may be nil; their sections are then empty.
type DashboardRepos struct {
	Items    repository.ItemRepository
	Orders   repository.PurchaseOrderRepository
	Recounts repository.RecountRepository
}

type DashboardService struct {
	repos       DashboardRepos
	cache       cache.DashboardCache
	site        string
	historyDays int
	now         Clock
}

func NewDashboardService(repos DashboardRepos, cacheImpl cache.DashboardCache, site string, historyDays int, now Clock) *DashboardService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDashboardCache()
	}
	if historyDays <= 0 {
		historyDays = defaultHistoryDays
	}
	return &DashboardService{
		repos:       repos,
		cache:       cacheImpl,
		site:        site,
		historyDays: historyDays,
		now:         now,
	}
}

// Aggregate summarises the catalog as of the calendar day of asOf. Only a
// catalog failure fails the report. A report with a degraded section is
// returned but never cached.
func (s *DashboardService) Aggregate(ctx context.Context, asOf time.Time) (*domain.DashboardReport, error) {
	date := stock.FormatDate(asOf)
	if report, ok, err := s.cache.Get(ctx, date); err == nil && ok {
		return report, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("dashboard: cache get failed")
	}

	since := stock.DateOnly(asOf).AddDate(0, 0, -(s.historyDays - 1))

	var (
		items    []domain.Item
		orders   []domain.PurchaseOrder
		recounts []domain.RecountRecord

		ordersDegraded, historyDegraded bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repos.Items.ListItems(gctx)
		return err
	})
	if s.repos.Orders != nil {
		g.Go(func() error {
			list, err := s.repos.Orders.ListOrders(gctx, domain.POPending)
			if err != nil {
				log.Warn().Err(err).Msg("dashboard: pending orders unavailable")
				ordersDegraded = true
				return nil
			}
			orders = list
			return nil
		})
	}
	if s.repos.Recounts != nil {
		g.Go(func() error {
			list, err := s.repos.Recounts.ListRecountsSince(gctx, since)
			if err != nil {
				log.Warn().Err(err).Msg("dashboard: recount history unavailable")
				historyDegraded = true
				return nil
			}
			recounts = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "list items")
	}

	report := BuildDashboard(items, orders, recounts, asOf, s.historyDays)
	report.Site = s.site
	report.GeneratedAt = s.now()

	if ordersDegraded || historyDegraded {
		return report, nil
	}
	if err := s.cache.Set(ctx, date, report); err != nil {
		log.Warn().Err(err).Msg("dashboard: cache set failed")
	}
	return report, nil
}

// BuildDashboard is the pure composition behind Aggregate.
func BuildDashboard(items []domain.Item, orders []domain.PurchaseOrder, recounts []domain.RecountRecord, asOf time.Time, historyDays int) *domain.DashboardReport {
	report := &domain.DashboardReport{
		Date:          stock.FormatDate(asOf),
		Categories:    map[string]*domain.CategoryStats{},
		RecentHistory: []domain.HistoryDay{},
		LowTop:        []string{},
	}

	values := make([]float64, 0, len(items))
	for _, c := range stock.ClassifyAll(items) {
		it := c.Item
		category := CategoryOf(it)
		cat, ok := report.Categories[category]
		if !ok {
			cat = &domain.CategoryStats{}
			report.Categories[category] = cat
		}
		cat.Total++
		report.Total++

		switch c.Health.Status {
		case domain.HealthLow:
			report.LowCount++
			cat.Low++
		case domain.HealthHigh:
			report.HighCount++
			cat.High++
		default:
			report.NormalCount++
		}
		values = append(values, stock.LineCost(it.CurrentQty, it.Price))

		if stock.IsDueToday(it, asOf) {
			report.TodayTotal++
			if stock.CheckedToday(it, asOf) {
				report.TodayChecked++
			}
		}
	}
	report.TotalValue = stock.SumMoney(values...)
	report.CheckProgress = stock.Percent(report.TodayChecked, report.TodayTotal)

	for _, c := range stock.LowStock(items) {
		if len(report.LowTop) == lowTopSize {
			break
		}
		report.LowTop = append(report.LowTop, c.Item.Name)
	}

	costs := make([]float64, 0, len(orders))
	for _, o := range orders {
		if o.Status != domain.POPending {
			continue
		}
		report.PendingPO++
		costs = append(costs, o.TotalCost())
	}
	report.PendingCost = stock.SumMoney(costs...)

	report.RecentHistory = RecentHistory(recounts, asOf, historyDays)
	return report
}

// RecentHistory groups recounts by site-local date for the historyDays days
// ending on asOf, newest day first. Days without recounts are omitted.
func RecentHistory(recounts []domain.RecountRecord, asOf time.Time, historyDays int) []domain.HistoryDay {
	if historyDays <= 0 {
		historyDays = defaultHistoryDays
	}
	type bucket struct {
		staff     map[string]struct{}
		items     int
		anomalies int
	}
	buckets := map[string]*bucket{}
	for _, rec := range recounts {
		days := stock.DaysBetween(rec.Timestamp, asOf)
		if days < 0 || days >= historyDays {
			continue
		}
		date := stock.FormatDate(rec.Timestamp.In(asOf.Location()))
		b, ok := buckets[date]
		if !ok {
			b = &bucket{staff: map[string]struct{}{}}
			buckets[date] = b
		}
		b.staff[rec.StaffID] = struct{}{}
		b.items++
		if rec.Anomaly {
			b.anomalies++
		}
	}

	out := make([]domain.HistoryDay, 0, len(buckets))
	for date, b := range buckets {
		out = append(out, domain.HistoryDay{
			Date:          date,
			DistinctStaff: len(b.staff),
			ItemCount:     b.items,
			AnomalyCount:  b.anomalies,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// CheckProgress reports how many of the items due on day were recounted and
// who counted last.
func (s *DashboardService) CheckProgress(ctx context.Context, day time.Time) (*domain.CheckProgress, error) {
	items, err := s.repos.Items.ListItems(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "list items")
	}

	var recounts []domain.RecountRecord
	if s.repos.Recounts != nil {
		recounts, err = s.repos.Recounts.ListRecountsSince(ctx, stock.DateOnly(day))
		if err != nil {
			log.Warn().Err(err).Msg("dashboard: recount history unavailable")
			recounts = nil
		}
	}

	progress := &domain.CheckProgress{Date: stock.FormatDate(day)}
	for _, it := range items {
		if it.Active() && stock.IsDueToday(it.Sanitized(), day) {
			progress.Total++
		}
	}

	counted := map[string]struct{}{}
	var last *domain.RecountRecord
	for i := range recounts {
		rec := recounts[i]
		if !stock.SameDate(rec.Timestamp, day) {
			continue
		}
		counted[rec.ItemID] = struct{}{}
		if last == nil || rec.Timestamp.After(last.Timestamp) {
			last = &recounts[i]
		}
	}
	progress.Done = len(counted)
	progress.Percent = stock.Percent(progress.Done, progress.Total)
	if last != nil {
		progress.LastStaff = last.StaffID
		progress.LastTime = last.Timestamp.In(day.Location()).Format("15:04")
	}
	return progress, nil
}
