// Package memory is an in-process driver for the repository interfaces. Each
// table is guarded by one mutex so conditional updates are atomic.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
)

// New returns an empty store wired to every repository interface.
func New() *repository.Store {
	items := NewItemRepository()
	return &repository.Store{
		Items:    items,
		Recounts: NewRecountRepository(),
		Orders:   NewPurchaseOrderRepository(),
		Alerts:   NewAlertRepository(),
		StockLog: NewStockLogRepository(),
		Staff:    NewStaffRepository(),
	}
}

type itemRepository struct {
	mu    sync.RWMutex
	order []string
	rows  map[string]domain.Item
}

func NewItemRepository(seed ...domain.Item) *itemRepository {
	r := &itemRepository{rows: make(map[string]domain.Item)}
	for _, it := range seed {
		r.order = append(r.order, it.ID)
		r.rows[it.ID] = it
	}
	return r
}

func (r *itemRepository) ListItems(_ context.Context) ([]domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Item, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, copyItem(r.rows[id]))
	}
	return out, nil
}

func (r *itemRepository) GetItem(_ context.Context, id string) (*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	it = copyItem(it)
	return &it, nil
}

func (r *itemRepository) CreateItem(_ context.Context, item domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[item.ID]; ok {
		return repository.ErrDuplicate
	}
	r.order = append(r.order, item.ID)
	r.rows[item.ID] = copyItem(item)
	return nil
}

func (r *itemRepository) UpdateItem(_ context.Context, item domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[item.ID]; !ok {
		return repository.ErrNotFound
	}
	r.rows[item.ID] = copyItem(item)
	return nil
}

func (r *itemRepository) DeleteItem(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *itemRepository) ApplyCounts(_ context.Context, updates []domain.CountUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range updates {
		it, ok := r.rows[u.ItemID]
		if !ok {
			continue
		}
		checked, updated := u.CheckedAt, u.UpdatedAt
		it.CurrentQty = u.NewQty
		it.LastCheckedAt = &checked
		it.LastUpdatedAt = &updated
		r.rows[u.ItemID] = it
	}
	return nil
}

func (r *itemRepository) AdjustQty(_ context.Context, itemID string, delta float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.rows[itemID]
	if !ok {
		return repository.ErrNotFound
	}
	it.CurrentQty = domain.SafeQty(it.CurrentQty + delta)
	it.LastUpdatedAt = &at
	r.rows[itemID] = it
	return nil
}

func copyItem(it domain.Item) domain.Item {
	if it.LastCheckedAt != nil {
		t := *it.LastCheckedAt
		it.LastCheckedAt = &t
	}
	if it.LastUpdatedAt != nil {
		t := *it.LastUpdatedAt
		it.LastUpdatedAt = &t
	}
	return it
}

type recountRepository struct {
	mu   sync.RWMutex
	rows []domain.RecountRecord
}

func NewRecountRepository() *recountRepository {
	return &recountRepository{}
}

func (r *recountRepository) AppendRecounts(_ context.Context, records []domain.RecountRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, records...)
	return nil
}

func (r *recountRepository) ListRecountsSince(_ context.Context, since time.Time) ([]domain.RecountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.RecountRecord
	for _, rec := range r.rows {
		if !rec.Timestamp.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type purchaseOrderRepository struct {
	mu   sync.Mutex
	seq  []string
	rows map[string]domain.PurchaseOrder
}

func NewPurchaseOrderRepository() *purchaseOrderRepository {
	return &purchaseOrderRepository{rows: make(map[string]domain.PurchaseOrder)}
}

func (r *purchaseOrderRepository) CreateOrder(_ context.Context, order *domain.PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[order.OrderID]; ok {
		return repository.ErrDuplicate
	}
	r.seq = append(r.seq, order.OrderID)
	r.rows[order.OrderID] = copyOrder(*order)
	return nil
}

func (r *purchaseOrderRepository) GetOrder(_ context.Context, orderID string) (*domain.PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	po, ok := r.rows[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	po = copyOrder(po)
	return &po, nil
}

func (r *purchaseOrderRepository) ListOrders(_ context.Context, status domain.POStatus) ([]domain.PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.PurchaseOrder
	for i := len(r.seq) - 1; i >= 0; i-- {
		po := r.rows[r.seq[i]]
		if status != "" && po.Status != status {
			continue
		}
		out = append(out, copyOrder(po))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *purchaseOrderRepository) TransitionStatus(_ context.Context, orderID string, from []domain.POStatus, to domain.POStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	po, ok := r.rows[orderID]
	if !ok {
		return false, repository.ErrNotFound
	}
	for _, s := range from {
		if po.Status == s {
			po.Status = to
			po.UpdatedAt = &at
			r.rows[orderID] = po
			return true, nil
		}
	}
	return false, nil
}

func copyOrder(po domain.PurchaseOrder) domain.PurchaseOrder {
	po.Lines = append([]domain.POLine(nil), po.Lines...)
	if po.UpdatedAt != nil {
		t := *po.UpdatedAt
		po.UpdatedAt = &t
	}
	return po
}

type alertRepository struct {
	mu   sync.RWMutex
	rows []domain.AlertEvent
}

func NewAlertRepository() *alertRepository {
	return &alertRepository{}
}

func (r *alertRepository) AppendAlerts(_ context.Context, events []domain.AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, events...)
	return nil
}

func (r *alertRepository) ListAlerts(_ context.Context, limit int) ([]domain.AlertEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AlertEvent, 0, len(r.rows))
	for i := len(r.rows) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, r.rows[i])
	}
	return out, nil
}

type stockLogRepository struct {
	mu   sync.Mutex
	rows []domain.StockLogEntry
}

func NewStockLogRepository() *stockLogRepository {
	return &stockLogRepository{}
}

func (r *stockLogRepository) AppendStockLog(_ context.Context, entries []domain.StockLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, entries...)
	return nil
}

// Entries returns a copy of the log.
func (r *stockLogRepository) Entries() []domain.StockLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.StockLogEntry(nil), r.rows...)
}

type staffRepository struct {
	mu   sync.RWMutex
	rows []domain.Staff
}

func NewStaffRepository(seed ...domain.Staff) *staffRepository {
	return &staffRepository{rows: seed}
}

func (r *staffRepository) GetStaff(_ context.Context, id string) (*domain.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.rows {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *staffRepository) ListStaff(_ context.Context) ([]domain.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Staff(nil), r.rows...), nil
}

// Put inserts or replaces a staff member.
func (r *staffRepository) Put(s domain.Staff) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == s.ID {
			r.rows[i] = s
			return
		}
	}
	r.rows = append(r.rows, s)
}
