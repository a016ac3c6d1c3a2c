package stock

import (
	"testing"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kl = time.FixedZone("MYT", 8*3600)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, kl)
}

func ptr(t time.Time) *time.Time { return &t }

func TestIsDueToday_Frequencies(t *testing.T) {
	monday := at(2026, time.October, 12, 9)
	tuesday := monday.AddDate(0, 0, 1)

	tests := []struct {
		name  string
		item  domain.Item
		today time.Time
		want  bool
	}{
		{"daily always due", domain.Item{CheckFrequency: domain.Daily()}, tuesday, true},
		{"weekly due monday", domain.Item{CheckFrequency: domain.Weekly()}, monday, true},
		{"weekly not due tuesday", domain.Item{CheckFrequency: domain.Weekly()}, tuesday, false},
		{"weekly counted monday still not due tuesday", domain.Item{
			CheckFrequency: domain.Weekly(),
			LastCheckedAt:  ptr(monday),
		}, tuesday, false},
		{"every n never checked", domain.Item{CheckFrequency: domain.EveryNDays(3)}, tuesday, true},
		{"default arm fails open", domain.Item{CheckFrequency: domain.ParseCheckFrequency("fortnightly")}, tuesday, true},
		{"empty policy fails open", domain.Item{}, tuesday, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDueToday(tt.item, tt.today))
		})
	}
}

func TestIsDueToday_EveryThreeDaysUsesDateOnlyDifference(t *testing.T) {
	today := at(2026, time.October, 14, 8)
	item := domain.Item{CheckFrequency: domain.ParseCheckFrequency("3day")}

	// Two days ago late in the evening is still only two calendar days.
	item.LastCheckedAt = ptr(at(2026, time.October, 12, 23))
	assert.False(t, IsDueToday(item, today))

	// Three days ago late in the evening counts as three days even though
	// fewer than 72 hours have passed.
	item.LastCheckedAt = ptr(at(2026, time.October, 11, 23))
	assert.True(t, IsDueToday(item, today))
}

func TestIsDueToday_ComparesDatesInSiteZone(t *testing.T) {
	today := at(2026, time.October, 14, 8)
	// 2026-10-11 17:00 UTC is 2026-10-12 01:00 in the site zone: two days.
	checked := time.Date(2026, time.October, 11, 17, 0, 0, 0, time.UTC)
	item := domain.Item{CheckFrequency: domain.EveryNDays(3), LastCheckedAt: &checked}

	assert.Equal(t, 2, DaysBetween(checked, today))
	assert.False(t, IsDueToday(item, today))
}

func TestCheckedToday(t *testing.T) {
	today := at(2026, time.October, 14, 20)
	item := domain.Item{LastCheckedAt: ptr(at(2026, time.October, 14, 7))}
	assert.True(t, CheckedToday(item, today))

	item.LastCheckedAt = ptr(at(2026, time.October, 13, 23))
	assert.False(t, CheckedToday(item, today))

	assert.False(t, CheckedToday(domain.Item{}, today))
}

func TestClassify_LowScenario(t *testing.T) {
	item := domain.Item{MinStock: 10, MaxStock: 30, CurrentQty: 5, Price: 2.5}

	h := Classify(item)

	assert.Equal(t, domain.HealthLow, h.Status)
	assert.Equal(t, 25.0, h.DeficitQty)
	assert.Equal(t, 50, h.Urgency)
}

func TestClassify_DeficitFallsBackToMinWhenMaxUnset(t *testing.T) {
	h := Classify(domain.Item{MinStock: 10, CurrentQty: 4})

	assert.Equal(t, domain.HealthLow, h.Status)
	assert.Equal(t, 6.0, h.DeficitQty)
	assert.Greater(t, h.DeficitQty, 0.0)
}

func TestClassify_High(t *testing.T) {
	h := Classify(domain.Item{MinStock: 5, MaxStock: 20, CurrentQty: 26})

	assert.Equal(t, domain.HealthHigh, h.Status)
	assert.Equal(t, 6.0, h.ExcessQty)
	assert.Equal(t, 520, h.Urgency)
}

func TestClassify_ZeroThresholdDisablesBound(t *testing.T) {
	assert.Equal(t, domain.HealthNormal, Classify(domain.Item{CurrentQty: 0}).Status)
	assert.Equal(t, domain.HealthNormal, Classify(domain.Item{MinStock: 3, CurrentQty: 1000}).Status)
	assert.Equal(t, 0, Classify(domain.Item{MaxStock: 5, CurrentQty: 1}).Urgency)
}

func TestClassify_LowIffBelowMin(t *testing.T) {
	for qty := 0.0; qty <= 40; qty += 0.5 {
		for _, max := range []float64{0, 8, 30} {
			item := domain.Item{MinStock: 10, MaxStock: max, CurrentQty: qty}
			h := Classify(item)

			assert.Equal(t, qty < 10, h.Status == domain.HealthLow, "qty=%v max=%v", qty, max)
			if h.Status != domain.HealthLow && max > 0 {
				assert.Equal(t, qty > max, h.Status == domain.HealthHigh, "qty=%v max=%v", qty, max)
			}
		}
	}
}

func TestClassify_SanitizesDirtyInput(t *testing.T) {
	h := Classify(domain.Item{MinStock: -4, MaxStock: -1, CurrentQty: -7})
	assert.Equal(t, domain.HealthNormal, h.Status)

	clean := domain.Item{Price: 250000, CurrentQty: -1}.Sanitized()
	assert.Equal(t, 0.0, clean.Price)
	assert.Equal(t, 0.0, clean.CurrentQty)
}

func TestLowStock_SortedByUrgencyAndSkipsInactive(t *testing.T) {
	items := []domain.Item{
		{ID: "a", Status: domain.ItemActive, MinStock: 10, CurrentQty: 8},
		{ID: "b", Status: domain.ItemActive, MinStock: 10, CurrentQty: 1},
		{ID: "c", Status: domain.ItemInactive, MinStock: 10, CurrentQty: 0},
		{ID: "d", Status: domain.ItemActive, MinStock: 10, CurrentQty: 15},
		{ID: "e", Status: domain.ItemActive, MinStock: 4, CurrentQty: 2},
	}

	low := LowStock(items)

	require.Len(t, low, 3)
	assert.Equal(t, "b", low[0].Item.ID)
	assert.Equal(t, "e", low[1].Item.ID)
	assert.Equal(t, "a", low[2].Item.ID)
}

func TestLineCostRoundsToCents(t *testing.T) {
	assert.Equal(t, 62.5, LineCost(25, 2.5))
	assert.Equal(t, 0.35, LineCost(0.1, 3.45))
	assert.Equal(t, 0.3, SumMoney(0.1, 0.2))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 100, Percent(0, 0))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
}

func TestVariancePct(t *testing.T) {
	assert.InDelta(t, 0.8, VariancePct(10, 2), 1e-9)
	assert.Equal(t, 0.0, VariancePct(0, 50))
	assert.Equal(t, 0.0, VariancePct(12, 12))
}
