package domain

import "time"

// HealthStatus is the stock classification of an item.
type HealthStatus string

const (
	HealthLow    HealthStatus = "low"
	HealthHigh   HealthStatus = "high"
	HealthNormal HealthStatus = "normal"
)

// StockLine is an item annotated with its classification, used by the low and
// high stock listings and the recount result.
type StockLine struct {
	ItemID     string       `json:"item_id"`
	Name       string       `json:"name"`
	Category   string       `json:"category"`
	Unit       string       `json:"unit"`
	CurrentQty float64      `json:"current_qty"`
	MinStock   float64      `json:"min_stock"`
	MaxStock   float64      `json:"max_stock"`
	Status     HealthStatus `json:"status"`
	Urgency    int          `json:"urgency"`
	DeficitQty float64      `json:"deficit_qty,omitempty"`
	ExcessQty  float64      `json:"excess_qty,omitempty"`
	Price      float64      `json:"price"`
	TotalCost  float64      `json:"total_cost,omitempty"`
	Supplier   string       `json:"supplier"`
}

// CategoryStats is the per-category rollup of the dashboard.
type CategoryStats struct {
	Total int `json:"total"`
	Low   int `json:"low"`
	High  int `json:"high"`
}

// HistoryDay summarises the recounts of one calendar day.
type HistoryDay struct {
	Date          string `json:"date"`
	DistinctStaff int    `json:"distinct_staff"`
	ItemCount     int    `json:"item_count"`
	AnomalyCount  int    `json:"anomaly_count"`
}

// DashboardReport is the per-cycle summary of the whole catalog.
type DashboardReport struct {
	Date          string                    `json:"date"`
	Site          string                    `json:"site"`
	Total         int                       `json:"total"`
	LowCount      int                       `json:"low_count"`
	HighCount     int                       `json:"high_count"`
	NormalCount   int                       `json:"normal_count"`
	TodayTotal    int                       `json:"today_total"`
	TodayChecked  int                       `json:"today_checked"`
	CheckProgress int                       `json:"check_progress"`
	TotalValue    float64                   `json:"total_value"`
	PendingPO     int                       `json:"pending_po"`
	PendingCost   float64                   `json:"pending_cost"`
	Categories    map[string]*CategoryStats `json:"categories"`
	RecentHistory []HistoryDay              `json:"recent_history"`
	LowTop        []string                  `json:"low_top"`
	GeneratedAt   time.Time                 `json:"generated_at"`
}

// ChecklistItem is an item due for recount today.
type ChecklistItem struct {
	ItemID     string  `json:"item_id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Unit       string  `json:"unit"`
	CurrentQty float64 `json:"current_qty"`
	MinStock   float64 `json:"min_stock"`
	MaxStock   float64 `json:"max_stock"`
	Frequency  string  `json:"frequency"`
	Checked    bool    `json:"checked"`
}

// ChecklistCategory counts due and already-counted items of one category.
type ChecklistCategory struct {
	Count     int    `json:"count"`
	Checked   int    `json:"checked"`
	Frequency string `json:"frequency"`
}

// SkippedCategory explains why a category has nothing due today.
type SkippedCategory struct {
	Frequency string `json:"frequency"`
	Reason    string `json:"reason"`
}

// Checklist is the recount work list for one day.
type Checklist struct {
	StaffID           string                        `json:"staff_id"`
	Date              string                        `json:"date"`
	Items             []ChecklistItem               `json:"items"`
	TodayTotal        int                           `json:"today_total"`
	TodayChecked      int                           `json:"today_checked"`
	Categories        map[string]*ChecklistCategory `json:"categories"`
	SkippedCategories map[string]SkippedCategory    `json:"skipped_categories"`
}

// CheckProgress reports how much of a day's recount work is done.
type CheckProgress struct {
	Date      string `json:"date"`
	Done      int    `json:"done"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
	LastStaff string `json:"last_staff"`
	LastTime  string `json:"last_time"`
}
