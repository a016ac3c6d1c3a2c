package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/andresuchdata/stockcount/internal/stock"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AlertRecorder appends events to the alert log. Recording is best-effort:
// failures are logged and never reach the business operation that raised
// the event.
type AlertRecorder struct {
	alerts repository.AlertRepository
	items  repository.ItemRepository
	now    Clock
}

func NewAlertRecorder(alerts repository.AlertRepository, items repository.ItemRepository, now Clock) *AlertRecorder {
	return &AlertRecorder{alerts: alerts, items: items, now: now}
}

// Record appends one event and reports whether it was stored.
func (r *AlertRecorder) Record(ctx context.Context, event domain.AlertEvent) bool {
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now()
	}
	if err := r.alerts.AppendAlerts(ctx, []domain.AlertEvent{event}); err != nil {
		log.Error().
			Err(err).
			Str("kind", string(event.Kind)).
			Str("item_id", event.ItemID).
			Msg("alert recorder: append failed")
		return false
	}
	return true
}

// Scan records one low_stock or high_stock event for every active item that
// is currently outside its thresholds and returns the stored events.
func (r *AlertRecorder) Scan(ctx context.Context) ([]domain.AlertEvent, error) {
	return r.ScanNotified(ctx, false)
}

// ScanNotified is Scan for callers that have already sent the low stock
// alert; low_stock events are logged with lowNotified.
func (r *AlertRecorder) ScanNotified(ctx context.Context, lowNotified bool) ([]domain.AlertEvent, error) {
	items, err := r.items.ListItems(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "list items")
	}

	at := r.now()
	var recorded []domain.AlertEvent
	for _, c := range stock.LowStock(items) {
		event := LowStockEvent(c, at)
		event.Notified = lowNotified
		if r.Record(ctx, event) {
			recorded = append(recorded, event)
		}
	}
	for _, c := range stock.HighStock(items) {
		event := HighStockEvent(c, at)
		if r.Record(ctx, event) {
			recorded = append(recorded, event)
		}
	}

	log.Info().
		Int("events", len(recorded)).
		Msg("alert recorder: stock scan finished")
	return recorded, nil
}

// List returns the newest events first.
func (r *AlertRecorder) List(ctx context.Context, limit int) ([]domain.AlertEvent, error) {
	events, err := r.alerts.ListAlerts(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "list alerts")
	}
	return events, nil
}

func LowStockEvent(c stock.Classified, at time.Time) domain.AlertEvent {
	it := c.Item
	return domain.AlertEvent{
		Timestamp:  at,
		Kind:       domain.AlertLowStock,
		ItemID:     it.ID,
		ItemName:   it.Name,
		CurrentQty: it.CurrentQty,
		Threshold:  it.MinStock,
		Message:    fmt.Sprintf("%s is low: %s %s left, minimum %s", it.Name, formatQty(it.CurrentQty), it.Unit, formatQty(it.MinStock)),
	}
}

func HighStockEvent(c stock.Classified, at time.Time) domain.AlertEvent {
	it := c.Item
	return domain.AlertEvent{
		Timestamp:  at,
		Kind:       domain.AlertHighStock,
		ItemID:     it.ID,
		ItemName:   it.Name,
		CurrentQty: it.CurrentQty,
		Threshold:  it.MaxStock,
		Message:    fmt.Sprintf("%s is overstocked: %s %s on hand, maximum %s", it.Name, formatQty(it.CurrentQty), it.Unit, formatQty(it.MaxStock)),
	}
}

// AbnormalVarianceEvent describes a recount whose change exceeded the
// variance threshold. Threshold carries the previous quantity.
func AbnormalVarianceEvent(a Anomaly, at time.Time) domain.AlertEvent {
	return domain.AlertEvent{
		Timestamp:  at,
		Kind:       domain.AlertAbnormalVariance,
		ItemID:     a.ItemID,
		ItemName:   a.ItemName,
		CurrentQty: a.NewQty,
		Threshold:  a.OldQty,
		Message:    fmt.Sprintf("%s recount changed %d%%: %s -> %s", a.ItemName, a.Pct, formatQty(a.OldQty), formatQty(a.NewQty)),
	}
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
