package postgres

import (
	"github.com/andresuchdata/stockcount/internal/repository"
)

// NewStore wires every table to one connection pool.
func NewStore(db *DB) *repository.Store {
	return &repository.Store{
		Items:    NewItemRepository(db),
		Recounts: NewRecountRepository(db),
		Orders:   NewPurchaseOrderRepository(db),
		Alerts:   NewAlertRepository(db),
		StockLog: NewStockLogRepository(db),
		Staff:    NewStaffRepository(db),
		Close:    db.Close,
	}
}
