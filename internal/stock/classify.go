package stock

import (
	"math"
	"sort"

	"github.com/andresuchdata/stockcount/internal/domain"
)

// Health is the classification of one item against its thresholds.
type Health struct {
	Status     domain.HealthStatus
	Urgency    int     // lower is more urgent; 0 when min stock is unset
	DeficitQty float64 // restock quantity, set only when low
	ExcessQty  float64 // quantity above max, set only when high
}

// Classify derives the health of an item. A zero threshold disables that
// bound for the item.
func Classify(item domain.Item) Health {
	it := item.Sanitized()
	qty, min, max := it.CurrentQty, it.MinStock, it.MaxStock

	h := Health{Status: domain.HealthNormal}
	if min > 0 {
		h.Urgency = int(math.Round(qty / min * 100))
	}

	switch {
	case min > 0 && qty < min:
		h.Status = domain.HealthLow
		need := math.Max(0, max-qty)
		if need == 0 {
			need = min - qty
		}
		h.DeficitQty = need
	case max > 0 && qty > max:
		h.Status = domain.HealthHigh
		h.ExcessQty = qty - max
	}
	return h
}

// Classified pairs an item with its health.
type Classified struct {
	Item   domain.Item
	Health Health
}

// ClassifyAll classifies every active item, returning sanitized copies in
// catalog order.
func ClassifyAll(items []domain.Item) []Classified {
	out := make([]Classified, 0, len(items))
	for _, item := range items {
		if !item.Active() {
			continue
		}
		clean := item.Sanitized()
		out = append(out, Classified{Item: clean, Health: Classify(clean)})
	}
	return out
}

// LowStock filters classified items down to low ones sorted most urgent
// first. The sort is stable so ties keep catalog order.
func LowStock(items []domain.Item) []Classified {
	var low []Classified
	for _, c := range ClassifyAll(items) {
		if c.Health.Status == domain.HealthLow {
			low = append(low, c)
		}
	}
	sort.SliceStable(low, func(i, j int) bool {
		return low[i].Health.Urgency < low[j].Health.Urgency
	})
	return low
}

// HighStock filters classified items down to high ones in catalog order.
func HighStock(items []domain.Item) []Classified {
	var high []Classified
	for _, c := range ClassifyAll(items) {
		if c.Health.Status == domain.HealthHigh {
			high = append(high, c)
		}
	}
	return high
}

// Line renders a classified item as a report line.
func (c Classified) Line() domain.StockLine {
	it := c.Item
	line := domain.StockLine{
		ItemID:     it.ID,
		Name:       it.Name,
		Category:   it.Category,
		Unit:       it.Unit,
		CurrentQty: it.CurrentQty,
		MinStock:   it.MinStock,
		MaxStock:   it.MaxStock,
		Status:     c.Health.Status,
		Urgency:    c.Health.Urgency,
		DeficitQty: c.Health.DeficitQty,
		ExcessQty:  c.Health.ExcessQty,
		Price:      it.Price,
		Supplier:   it.Supplier,
	}
	if c.Health.Status == domain.HealthLow {
		line.TotalCost = LineCost(c.Health.DeficitQty, it.Price)
	}
	return line
}
