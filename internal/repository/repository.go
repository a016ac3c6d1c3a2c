// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
)

// ErrNotFound is returned by drivers when the addressed row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when creating a row whose key already exists.
var ErrDuplicate = errors.New("record already exists")

// ItemRepository is the catalog table. ListItems returns rows in catalog
// order; callers never rely on row positions.
type ItemRepository interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) error
	UpdateItem(ctx context.Context, item domain.Item) error
	DeleteItem(ctx context.Context, id string) error

	// ApplyCounts overwrites the quantity and check timestamps of each
	// addressed item. Missing items are skipped.
	ApplyCounts(ctx context.Context, updates []domain.CountUpdate) error

	// AdjustQty adds delta to the current quantity as one atomic increment,
	// clamping the result at zero.
	AdjustQty(ctx context.Context, itemID string, delta float64, at time.Time) error
}

// RecountRepository is the append-only recount history.
type RecountRepository interface {
	AppendRecounts(ctx context.Context, records []domain.RecountRecord) error
	ListRecountsSince(ctx context.Context, since time.Time) ([]domain.RecountRecord, error)
}

// RecountBatchWriter is implemented by recount tables that can store a
// batch's count updates and audit rows as one unit: either both land or
// neither does.
type RecountBatchWriter interface {
	ApplyRecountBatch(ctx context.Context, updates []domain.CountUpdate, records []domain.RecountRecord) error
}

// PurchaseOrderRepository stores generated orders together with their lines.
type PurchaseOrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.PurchaseOrder) error
	GetOrder(ctx context.Context, orderID string) (*domain.PurchaseOrder, error)

	// ListOrders returns orders newest first. An empty status lists all.
	ListOrders(ctx context.Context, status domain.POStatus) ([]domain.PurchaseOrder, error)

	// TransitionStatus moves the order to `to` only if its current status is
	// one of `from`. It reports whether the row changed and returns
	// ErrNotFound for an unknown order.
	TransitionStatus(ctx context.Context, orderID string, from []domain.POStatus, to domain.POStatus, at time.Time) (bool, error)
}

// AlertRepository is the append-only alert log.
type AlertRepository interface {
	AppendAlerts(ctx context.Context, events []domain.AlertEvent) error
	// ListAlerts returns the newest events first; limit <= 0 means all.
	ListAlerts(ctx context.Context, limit int) ([]domain.AlertEvent, error)
}

// StockLogRepository is the append-only movement log for non-recount changes.
type StockLogRepository interface {
	AppendStockLog(ctx context.Context, entries []domain.StockLogEntry) error
}

// StaffRepository is a read-only view of site staff.
type StaffRepository interface {
	GetStaff(ctx context.Context, id string) (*domain.Staff, error)
	ListStaff(ctx context.Context) ([]domain.Staff, error)
}

// Store bundles the tables of one driver.
type Store struct {
	Items    ItemRepository
	Recounts RecountRepository
	Orders   PurchaseOrderRepository
	Alerts   AlertRepository
	StockLog StockLogRepository
	Staff    StaffRepository

	// Close releases driver resources; nil when there are none.
	Close func() error
}
