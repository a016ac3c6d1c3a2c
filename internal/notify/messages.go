package notify

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/shopspring/decimal"
)

const lowTopSize = 3

func StockAlertMessage(site string, low []domain.StockLine) string {
	lines := []string{
		fmt.Sprintf("[%s] Stock alert", site),
		"",
		fmt.Sprintf("Low stock: %d items", len(low)),
	}
	total := decimal.Zero
	for _, l := range low {
		total = total.Add(decimal.NewFromFloat(l.TotalCost))
		lines = append(lines, fmt.Sprintf("· %s %s%s (min %s) restock %s%s",
			l.Name, qty(l.CurrentQty), l.Unit, qty(l.MinStock), qty(l.DeficitQty), l.Unit))
	}
	lines = append(lines, "", "Estimated purchase: RM "+total.StringFixed(2))
	return strings.Join(lines, "\n")
}

func ReminderMessage(site string, list *domain.Checklist, link string) string {
	lines := []string{
		fmt.Sprintf("[%s] Recount reminder %s", site, list.Date),
		"",
		fmt.Sprintf("Items to count today: %d", list.TodayTotal),
	}
	if len(list.Categories) > 0 {
		lines = append(lines, "", "By category:")
		names := make([]string, 0, len(list.Categories))
		for name := range list.Categories {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("· %s: %d", name, list.Categories[name].Count))
		}
	}
	if link != "" {
		lines = append(lines, "", "Start counting: "+link)
	}
	return strings.Join(lines, "\n")
}

func SummaryMessage(site string, r *domain.DashboardReport) string {
	status := "done"
	if r.TodayChecked < r.TodayTotal {
		status = "incomplete"
	}
	lines := []string{
		fmt.Sprintf("Daily stock summary %s", r.Date),
		"",
		fmt.Sprintf("%s: counted %d/%d %s", site, r.TodayChecked, r.TodayTotal, status),
		"",
		"Stock status:",
		fmt.Sprintf("· Low: %d", r.LowCount),
		fmt.Sprintf("· High: %d", r.HighCount),
		fmt.Sprintf("· Normal: %d", r.NormalCount),
		fmt.Sprintf("· Total: %d", r.Total),
	}
	if r.LowCount > 0 && len(r.LowTop) > 0 {
		top := r.LowTop
		if len(top) > lowTopSize {
			top = top[:lowTopSize]
		}
		lines = append(lines, "", "Most urgent: "+strings.Join(top, ", "))
	}
	lines = append(lines, "", "Stock value: RM "+money(r.TotalValue))
	if r.PendingPO > 0 {
		lines = append(lines, fmt.Sprintf("Pending orders: %d (RM %s)", r.PendingPO, money(r.PendingCost)))
	}
	return strings.Join(lines, "\n")
}

// AbnormalMessage renders an abnormal_variance event; its threshold holds
// the quantity on record before the recount.
func AbnormalMessage(site string, e domain.AlertEvent) string {
	oldQty, newQty := e.Threshold, e.CurrentQty
	diff := newQty - oldQty
	pct := 0
	if oldQty > 0 {
		pct = int(math.Round(math.Abs(diff) / oldQty * 100))
	}
	return strings.Join([]string{
		fmt.Sprintf("[%s] Stock variance!", site),
		"",
		"Item: " + e.ItemName,
		fmt.Sprintf("On record: %s -> counted: %s", qty(oldQty), qty(newQty)),
		fmt.Sprintf("Difference: %s (%d%%)", qty(diff), pct),
		"",
		e.Timestamp.Format("2006-01-02 15:04"),
		"",
		"Please verify the cause.",
	}, "\n")
}

func qty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
