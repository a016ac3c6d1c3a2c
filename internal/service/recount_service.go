package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/andresuchdata/stockcount/internal/cache"
	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/andresuchdata/stockcount/internal/stock"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
	"github.com/andresuchdata/stockcount/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// DefaultVarianceThreshold flags recounts that move more than 30% away from
// the previous quantity.
const DefaultVarianceThreshold = 0.30

// Submission is one counted quantity.
type Submission struct {
	ItemID string  `json:"item_id" validate:"required"`
	NewQty float64 `json:"new_qty"`
}

// Anomaly is a recount whose variance exceeded the threshold.
type Anomaly struct {
	ItemID   string  `json:"item_id"`
	ItemName string  `json:"item_name"`
	OldQty   float64 `json:"old_qty"`
	NewQty   float64 `json:"new_qty"`
	Delta    float64 `json:"delta"`
	Pct      int     `json:"pct"`
}

// RecountResult summarises an applied batch. Alerts holds the events that
// were recorded and still need delivering.
type RecountResult struct {
	UpdatedCount int                 `json:"updated_count"`
	LowItems     []domain.StockLine  `json:"low_items"`
	HighItems    []domain.StockLine  `json:"high_items"`
	Anomalies    []Anomaly           `json:"anomalies"`
	Timestamp    time.Time           `json:"timestamp"`
	Alerts       []domain.AlertEvent `json:"-"`
}

type RecountService struct {
	items     repository.ItemRepository
	recounts  repository.RecountRepository
	alerts    *AlertRecorder
	cache     cache.DashboardCache
	metrics   *metrics.StockMetrics
	now       Clock
	threshold float64
	notifier  AbnormalNotifier
}

func NewRecountService(
	items repository.ItemRepository,
	recounts repository.RecountRepository,
	alerts *AlertRecorder,
	cacheImpl cache.DashboardCache,
	m *metrics.StockMetrics,
	now Clock,
	threshold float64,
) *RecountService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDashboardCache()
	}
	if threshold <= 0 {
		threshold = DefaultVarianceThreshold
	}
	return &RecountService{
		items:     items,
		recounts:  recounts,
		alerts:    alerts,
		cache:     cacheImpl,
		metrics:   m,
		now:       now,
		threshold: threshold,
	}
}

// AbnormalNotifier delivers abnormal variance alerts and reports how many
// messages reached a recipient.
type AbnormalNotifier interface {
	AbnormalVariance(ctx context.Context, events []domain.AlertEvent) int
}

// NotifyWith sends every abnormal variance to n before it is logged, so the
// logged event records whether anyone was told.
func (s *RecountService) NotifyWith(n AbnormalNotifier) *RecountService {
	s.notifier = n
	return s
}

// Submit applies a batch of counted quantities. Unknown item ids are skipped.
// Every write of the batch shares one timestamp and an anomaly never blocks
// the write of its quantity.
func (s *RecountService) Submit(ctx context.Context, staffID string, subs []Submission) (*RecountResult, error) {
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "staff id is required")
	}

	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "list items")
	}
	snapshot := make(map[string]domain.Item, len(items))
	for _, it := range items {
		snapshot[it.ID] = it
	}

	ts := s.now()
	result := &RecountResult{
		LowItems:  []domain.StockLine{},
		HighItems: []domain.StockLine{},
		Anomalies: []Anomaly{},
		Timestamp: ts,
	}

	var (
		records []domain.RecountRecord
		updates []domain.CountUpdate
		health  = map[string]stock.Classified{}
		seen    []string
	)

	for _, sub := range subs {
		item, ok := snapshot[strings.TrimSpace(sub.ItemID)]
		if !ok {
			log.Debug().Str("item_id", sub.ItemID).Msg("recount: unknown item skipped")
			continue
		}

		oldQty := domain.SafeQty(item.CurrentQty)
		newQty := domain.SafeQty(sub.NewQty)
		delta := newQty - oldQty
		variance := stock.VariancePct(oldQty, newQty)
		anomalous := oldQty > 0 && variance > s.threshold
		pct := int(math.Round(variance * 100))

		rec := domain.RecountRecord{
			Timestamp: ts,
			StaffID:   staffID,
			ItemID:    item.ID,
			ItemName:  item.Name,
			OldQty:    oldQty,
			NewQty:    newQty,
			Delta:     delta,
			Anomaly:   anomalous,
		}
		if anomalous {
			rec.AnomalyPct = pct
			result.Anomalies = append(result.Anomalies, Anomaly{
				ItemID:   item.ID,
				ItemName: item.Name,
				OldQty:   oldQty,
				NewQty:   newQty,
				Delta:    delta,
				Pct:      pct,
			})
		}
		records = append(records, rec)
		updates = append(updates, domain.CountUpdate{
			ItemID:    item.ID,
			NewQty:    newQty,
			CheckedAt: ts,
			UpdatedAt: ts,
		})

		// Later submissions for the same id see this one's quantity.
		item.CurrentQty = newQty
		item.LastCheckedAt = &ts
		item.LastUpdatedAt = &ts
		snapshot[item.ID] = item

		if item.Active() {
			if _, dup := health[item.ID]; !dup {
				seen = append(seen, item.ID)
			}
			clean := item.Sanitized()
			health[item.ID] = stock.Classified{Item: clean, Health: stock.Classify(clean)}
		}
	}

	if len(records) == 0 {
		return result, nil
	}

	if err := s.persist(ctx, updates, records); err != nil {
		return nil, err
	}
	result.UpdatedCount = len(updates)

	for _, id := range seen {
		c := health[id]
		switch c.Health.Status {
		case domain.HealthLow:
			result.LowItems = append(result.LowItems, c.Line())
		case domain.HealthHigh:
			result.HighItems = append(result.HighItems, c.Line())
		}
	}

	for _, a := range result.Anomalies {
		event := AbnormalVarianceEvent(a, ts)
		if s.notifier != nil {
			event.Notified = s.notifier.AbnormalVariance(ctx, []domain.AlertEvent{event}) > 0
		}
		if s.alerts != nil && s.alerts.Record(ctx, event) {
			result.Alerts = append(result.Alerts, event)
		}
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("recount: cache invalidate failed")
	}
	s.metrics.ObserveBatch(result.UpdatedCount, len(result.Anomalies))

	log.Info().
		Str("staff_id", staffID).
		Int("updated", result.UpdatedCount).
		Int("low", len(result.LowItems)).
		Int("high", len(result.HighItems)).
		Int("anomalies", len(result.Anomalies)).
		Msg("recount: batch applied")
	return result, nil
}

// persist stores the batch in one unit when the driver supports it. Otherwise
// the catalog is written before the audit log, so a failed count never
// leaves history rows behind.
func (s *RecountService) persist(ctx context.Context, updates []domain.CountUpdate, records []domain.RecountRecord) error {
	if w, ok := s.recounts.(repository.RecountBatchWriter); ok {
		if err := w.ApplyRecountBatch(ctx, updates, records); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "apply recount batch")
		}
		return nil
	}
	if err := s.items.ApplyCounts(ctx, updates); err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "apply counts")
	}
	if err := s.recounts.AppendRecounts(ctx, records); err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "append recount records")
	}
	return nil
}
