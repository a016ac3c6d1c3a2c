package sheets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/rs/zerolog/log"
)

// backend is shared by every table of one spreadsheet. The Sheets API has
// no conditional write, so read-check-write sequences run under mu. That
// only serializes writers inside this process.
type backend struct {
	values Values
	site   string
	loc    *time.Location
	mu     sync.Mutex
}

// New wires every repository interface to the spreadsheet behind values.
func New(values Values, site string, loc *time.Location) *repository.Store {
	if loc == nil {
		loc = time.UTC
	}
	b := &backend{values: values, site: site, loc: loc}
	return &repository.Store{
		Items:    &itemRepository{b},
		Recounts: &recountRepository{b},
		Orders:   &purchaseOrderRepository{b},
		Alerts:   &alertRepository{b},
		StockLog: &stockLogRepository{b},
		Staff:    &staffRepository{b},
	}
}

type itemRepository struct{ *backend }

type itemPosition struct {
	item domain.Item
	row  int
}

func (r *itemRepository) load(ctx context.Context) ([]itemPosition, error) {
	rows, err := r.values.Get(ctx, dataRange(itemsSheet, itemWidth))
	if err != nil {
		return nil, err
	}
	out := make([]itemPosition, 0, len(rows))
	for i, row := range rows {
		if it, ok := parseItemRow(row, r.loc); ok {
			out = append(out, itemPosition{item: it, row: i + 2})
		}
	}
	return out, nil
}

func (r *itemRepository) find(ctx context.Context, id string) (*itemPosition, error) {
	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].item.ID == id {
			return &all[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *itemRepository) ListItems(ctx context.Context) ([]domain.Item, error) {
	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]domain.Item, len(all))
	for i, p := range all {
		items[i] = p.item
	}
	return items, nil
}

func (r *itemRepository) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	p, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p.item, nil
}

func (r *itemRepository) CreateItem(ctx context.Context, item domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.find(ctx, item.ID); err == nil {
		return repository.ErrDuplicate
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return r.values.Append(ctx, appendRange(itemsSheet, itemWidth), [][]interface{}{itemRow(item, r.site, r.loc)})
}

func (r *itemRepository) UpdateItem(ctx context.Context, item domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.find(ctx, item.ID)
	if err != nil {
		return err
	}
	return r.values.Update(ctx, []Range{{
		A1:   cellRange(itemsSheet, p.row, 0, itemWidth-1),
		Rows: [][]interface{}{itemRow(item, r.site, r.loc)},
	}})
}

func (r *itemRepository) DeleteItem(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.find(ctx, id)
	if err != nil {
		return err
	}
	return r.values.DeleteRow(ctx, itemsSheet, p.row)
}

func (r *itemRepository) ApplyCounts(ctx context.Context, updates []domain.CountUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	apply, _, err := r.countRanges(ctx, updates)
	if err != nil {
		return err
	}
	return r.values.Update(ctx, apply)
}

// countRanges builds the cell writes for updates and the writes that put
// the touched cells back as they were. Callers hold mu.
func (r *itemRepository) countRanges(ctx context.Context, updates []domain.CountUpdate) (apply, restore []Range, err error) {
	all, err := r.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]itemPosition, len(all))
	for _, p := range all {
		byID[p.item.ID] = p
	}

	restored := map[int]bool{}
	for _, u := range updates {
		p, ok := byID[u.ItemID]
		if !ok {
			continue
		}
		apply = append(apply, qtyAndCheckRanges(p.row, u.NewQty, &u.CheckedAt, &u.UpdatedAt, r.loc)...)
		if !restored[p.row] {
			restored[p.row] = true
			restore = append(restore, qtyAndCheckRanges(p.row, p.item.CurrentQty, p.item.LastCheckedAt, p.item.LastUpdatedAt, r.loc)...)
		}
	}
	return apply, restore, nil
}

func qtyAndCheckRanges(row int, qty float64, checked, updated *time.Time, loc *time.Location) []Range {
	return []Range{
		{A1: cellRange(itemsSheet, row, colItemQty, colItemQty), Rows: [][]interface{}{{qty}}},
		{
			A1:   cellRange(itemsSheet, row, colItemLastCheck, colItemLastUpdate),
			Rows: [][]interface{}{{formatTime(checked, loc), formatTime(updated, loc)}},
		},
	}
}

func (r *itemRepository) AdjustQty(ctx context.Context, itemID string, delta float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.find(ctx, itemID)
	if err != nil {
		return err
	}
	qty := domain.SafeQty(p.item.CurrentQty + delta)
	return r.values.Update(ctx, []Range{
		{A1: cellRange(itemsSheet, p.row, colItemQty, colItemQty), Rows: [][]interface{}{{qty}}},
		{A1: cellRange(itemsSheet, p.row, colItemLastUpdate, colItemLastUpdate), Rows: [][]interface{}{{formatTime(&at, r.loc)}}},
	})
}

type recountRepository struct{ *backend }

func (r *recountRepository) AppendRecounts(ctx context.Context, records []domain.RecountRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.values.Append(ctx, appendRange(recountsSheet, recountWidth), r.rows(records))
}

// ApplyRecountBatch writes the counts, then the audit rows. When the audit
// append fails the touched catalog cells are written back.
func (r *recountRepository) ApplyRecountBatch(ctx context.Context, updates []domain.CountUpdate, records []domain.RecountRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := &itemRepository{r.backend}
	apply, restore, err := items.countRanges(ctx, updates)
	if err != nil {
		return err
	}
	if len(apply) > 0 {
		if err := r.values.Update(ctx, apply); err != nil {
			return err
		}
	}
	if len(records) == 0 {
		return nil
	}

	appendErr := r.values.Append(ctx, appendRange(recountsSheet, recountWidth), r.rows(records))
	if appendErr == nil {
		return nil
	}
	if len(restore) > 0 {
		if err := r.values.Update(ctx, restore); err != nil {
			log.Error().Err(err).Int("items", len(updates)).Msg("sheets: restore counts after failed audit append")
			return errors.Join(appendErr, err)
		}
	}
	return appendErr
}

func (r *recountRepository) rows(records []domain.RecountRecord) [][]interface{} {
	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		rows[i] = recountRow(rec, r.site, r.loc)
	}
	return rows
}

func (r *recountRepository) ListRecountsSince(ctx context.Context, since time.Time) ([]domain.RecountRecord, error) {
	rows, err := r.values.Get(ctx, dataRange(recountsSheet, recountWidth))
	if err != nil {
		return nil, err
	}
	var out []domain.RecountRecord
	for _, row := range rows {
		rec, ok := parseRecountRow(row, r.loc)
		if ok && !rec.Timestamp.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type purchaseOrderRepository struct{ *backend }

func (r *purchaseOrderRepository) load(ctx context.Context) ([]*orderPosition, error) {
	rows, err := r.values.Get(ctx, dataRange(ordersSheet, poWidth))
	if err != nil {
		return nil, err
	}
	return groupOrders(rows, r.loc), nil
}

func (r *purchaseOrderRepository) CreateOrder(ctx context.Context, order *domain.PurchaseOrder) error {
	if len(order.Lines) == 0 {
		return fmt.Errorf("purchase order %s has no lines", order.OrderID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return err
	}
	for _, p := range all {
		if p.order.OrderID == order.OrderID {
			return repository.ErrDuplicate
		}
	}
	return r.values.Append(ctx, appendRange(ordersSheet, poWidth), orderRows(order, r.site, r.loc))
}

func (r *purchaseOrderRepository) GetOrder(ctx context.Context, orderID string) (*domain.PurchaseOrder, error) {
	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.order.OrderID == orderID {
			po := p.order
			return &po, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *purchaseOrderRepository) ListOrders(ctx context.Context, status domain.POStatus) ([]domain.PurchaseOrder, error) {
	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.PurchaseOrder
	for i := len(all) - 1; i >= 0; i-- {
		if status == "" || all[i].order.Status == status {
			out = append(out, all[i].order)
		}
	}
	return out, nil
}

func (r *purchaseOrderRepository) TransitionStatus(ctx context.Context, orderID string, from []domain.POStatus, to domain.POStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return false, err
	}

	var target *orderPosition
	for _, p := range all {
		if p.order.OrderID == orderID {
			target = p
			break
		}
	}
	if target == nil {
		return false, repository.ErrNotFound
	}

	allowed := false
	for _, s := range from {
		if target.order.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}

	ranges := make([]Range, 0, len(target.rows)*2)
	for _, row := range target.rows {
		ranges = append(ranges,
			Range{A1: cellRange(ordersSheet, row, colPOStatus, colPOStatus), Rows: [][]interface{}{{string(to)}}},
			Range{A1: cellRange(ordersSheet, row, colPOUpdatedAt, colPOUpdatedAt), Rows: [][]interface{}{{formatTime(&at, r.loc)}}},
		)
	}
	if err := r.values.Update(ctx, ranges); err != nil {
		return false, err
	}
	return true, nil
}

type alertRepository struct{ *backend }

func (r *alertRepository) AppendAlerts(ctx context.Context, events []domain.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([][]interface{}, len(events))
	for i, ev := range events {
		rows[i] = alertRow(ev, r.site, r.loc)
	}
	return r.values.Append(ctx, appendRange(alertsSheet, alertWidth), rows)
}

func (r *alertRepository) ListAlerts(ctx context.Context, limit int) ([]domain.AlertEvent, error) {
	rows, err := r.values.Get(ctx, dataRange(alertsSheet, alertWidth))
	if err != nil {
		return nil, err
	}
	var out []domain.AlertEvent
	for i := len(rows) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if ev, ok := parseAlertRow(rows[i], r.loc); ok {
			out = append(out, ev)
		}
	}
	return out, nil
}

type stockLogRepository struct{ *backend }

func (r *stockLogRepository) AppendStockLog(ctx context.Context, entries []domain.StockLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([][]interface{}, len(entries))
	for i, e := range entries {
		rows[i] = stockLogRow(e, r.loc)
	}
	return r.values.Append(ctx, appendRange(stockLogSheet, stockLogWidth), rows)
}

type staffRepository struct{ *backend }

func (r *staffRepository) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	rows, err := r.values.Get(ctx, dataRange(staffSheet, staffWidth))
	if err != nil {
		return nil, err
	}
	var out []domain.Staff
	for _, row := range rows {
		if s, ok := parseStaffRow(row); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *staffRepository) GetStaff(ctx context.Context, id string) (*domain.Staff, error) {
	all, err := r.ListStaff(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}
