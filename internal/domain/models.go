// internal/domain/models.go
package domain

import (
	"math"
	"time"
)

// MaxValidPrice is the exclusive upper bound for a unit price; anything at or
// above it is treated as dirty data.
const MaxValidPrice = 100000

// Item is one stock-keeping unit of the site catalog.
type Item struct {
	ID             string         `json:"id" db:"id" validate:"required"`
	Name           string         `json:"name" db:"name" validate:"required"`
	Category       string         `json:"category" db:"category"`
	Unit           string         `json:"unit" db:"unit"`
	MinStock       float64        `json:"min_stock" db:"min_stock" validate:"gte=0"`
	MaxStock       float64        `json:"max_stock" db:"max_stock" validate:"gte=0"`
	CurrentQty     float64        `json:"current_qty" db:"current_qty" validate:"gte=0"`
	CheckFrequency CheckFrequency `json:"check_frequency" db:"check_frequency"`
	Status         ItemStatus     `json:"status" db:"status" validate:"oneof=active inactive"`
	Price          float64        `json:"price" db:"price"`
	Supplier       string         `json:"supplier" db:"supplier"`
	ImageRef       string         `json:"image_ref" db:"image_ref"`
	Notes          string         `json:"notes" db:"notes"`
	LastCheckedAt  *time.Time     `json:"last_checked_at" db:"last_checked_at"`
	LastUpdatedAt  *time.Time     `json:"last_updated_at" db:"last_updated_at"`
}

// Active reports whether the item takes part in scheduling and classification.
func (i Item) Active() bool {
	return i.Status == ItemActive
}

// Sanitized returns a copy whose numeric fields are safe for arithmetic:
// quantities and thresholds are finite and non-negative, price is inside
// (0, MaxValidPrice) or zero.
func (i Item) Sanitized() Item {
	i.CurrentQty = SafeQty(i.CurrentQty)
	i.MinStock = SafeQty(i.MinStock)
	i.MaxStock = SafeQty(i.MaxStock)
	i.Price = SafePrice(i.Price)
	return i
}

// SafeQty coerces NaN, infinities and negatives to zero.
func SafeQty(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// SafePrice zeroes prices outside (0, MaxValidPrice).
func SafePrice(v float64) float64 {
	if math.IsNaN(v) || v <= 0 || v >= MaxValidPrice {
		return 0
	}
	return v
}

// CountUpdate is the per-item write produced by a recount batch.
type CountUpdate struct {
	ItemID    string
	NewQty    float64
	CheckedAt time.Time
	UpdatedAt time.Time
}

// RecountRecord is one append-only audit row of a physical count.
type RecountRecord struct {
	Timestamp  time.Time `json:"timestamp" db:"recorded_at"`
	StaffID    string    `json:"staff_id" db:"staff_id"`
	ItemID     string    `json:"item_id" db:"item_id"`
	ItemName   string    `json:"item_name" db:"item_name"`
	OldQty     float64   `json:"old_qty" db:"old_qty"`
	NewQty     float64   `json:"new_qty" db:"new_qty"`
	Delta      float64   `json:"delta" db:"delta"`
	Anomaly    bool      `json:"anomaly" db:"anomaly"`
	AnomalyPct int       `json:"anomaly_pct" db:"anomaly_pct"`
}

// POLine is one line of a purchase order.
type POLine struct {
	ItemID     string  `json:"item_id" db:"item_id"`
	ItemName   string  `json:"item_name" db:"item_name"`
	CurrentQty float64 `json:"current_qty" db:"current_qty"`
	NeededQty  float64 `json:"needed_qty" db:"needed_qty"`
	Unit       string  `json:"unit" db:"unit"`
	Price      float64 `json:"price" db:"price"`
	LineCost   float64 `json:"line_cost" db:"line_cost"`
	Supplier   string  `json:"supplier" db:"supplier"`
}

// PurchaseOrder groups the restock lines produced in one generation run.
// Lines keep the urgency order they were generated in.
type PurchaseOrder struct {
	OrderID   string     `json:"order_id" db:"order_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	CreatedBy string     `json:"created_by" db:"created_by"`
	Status    POStatus   `json:"status" db:"status"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
	Lines     []POLine   `json:"lines" db:"-"`
}

// TotalCost sums the line costs.
func (o PurchaseOrder) TotalCost() float64 {
	var total float64
	for _, line := range o.Lines {
		total += line.LineCost
	}
	return total
}

// AlertEvent is one append-only entry of the alert log.
type AlertEvent struct {
	Timestamp  time.Time `json:"timestamp" db:"recorded_at"`
	Kind       AlertKind `json:"kind" db:"kind"`
	ItemID     string    `json:"item_id" db:"item_id"`
	ItemName   string    `json:"item_name" db:"item_name"`
	CurrentQty float64   `json:"current_qty" db:"current_qty"`
	Threshold  float64   `json:"threshold" db:"threshold"`
	Message    string    `json:"message" db:"message"`
	Notified   bool      `json:"notified" db:"notified"`
}

// StockLogEntry records a stock movement that did not come from a recount.
type StockLogEntry struct {
	Timestamp time.Time    `json:"timestamp" db:"recorded_at"`
	ItemID    string       `json:"item_id" db:"item_id"`
	ItemName  string       `json:"item_name" db:"item_name"`
	Kind      StockLogKind `json:"kind" db:"kind"`
	Qty       float64      `json:"qty" db:"qty"`
	Actor     string       `json:"actor" db:"actor"`
	Note      string       `json:"note" db:"note"`
}

// Staff is a member of the site as seen by the engine. Account management
// lives outside this service.
type Staff struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Role  Role   `json:"role" db:"role"`
	Phone string `json:"phone" db:"phone"`
	Email string `json:"email" db:"email"`
}

// Actor is the resolved caller of a mutating operation.
type Actor struct {
	StaffID string `json:"staff_id"`
	Role    Role   `json:"role"`
}
