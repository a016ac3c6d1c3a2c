package sheets

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
)

// Tab names and their data ranges below the header row.
const (
	itemsSheet    = "Items_DB"
	recountsSheet = "Check_Records"
	ordersSheet   = "Purchase_Orders"
	alertsSheet   = "Alerts"
	stockLogSheet = "Inventory_Log"
	staffSheet    = "Staff_DB"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	dateLayout = "2006-01-02"
)

// Items_DB columns.
const (
	colItemID = iota
	colItemName
	colItemCategory
	colItemUnit
	colItemMin
	colItemMax
	colItemQty
	colItemFreq
	colItemStatus
	colItemPrice
	colItemSupplier
	colItemSite
	colItemImage
	colItemLastCheck
	colItemLastUpdate
	colItemNotes
	itemWidth
)

// Purchase_Orders columns. One row per order line.
const (
	colPOID = iota
	colPODate
	colPOSite
	colPOItemID
	colPOItemName
	colPOCurrentQty
	colPONeededQty
	colPOUnit
	colPOPrice
	colPOLineCost
	colPOSupplier
	colPOStatus
	colPOCreatedBy
	colPOUpdatedAt
	poWidth
)

// Staff_DB columns. The password column is never read.
const (
	colStaffID    = 0
	colStaffRole  = 2
	colStaffName  = 4
	colStaffPhone = 5
	colStaffEmail = 6
)

var anomalyPctRe = regexp.MustCompile(`(\d+)%`)

// Legacy sheets carry localized status labels.
var poStatusAliases = map[string]domain.POStatus{
	"待采购": domain.POPending,
	"已下单": domain.POOrdered,
	"已到货": domain.POReceived,
}

func colLetter(idx int) string {
	s := ""
	for idx >= 0 {
		s = string(rune('A'+idx%26)) + s
		idx = idx/26 - 1
	}
	return s
}

func dataRange(sheet string, width int) string {
	return fmt.Sprintf("%s!A2:%s", sheet, colLetter(width-1))
}

func appendRange(sheet string, width int) string {
	return fmt.Sprintf("%s!A:%s", sheet, colLetter(width-1))
}

// cellRange addresses cells [from, to] of one 1-based sheet row.
func cellRange(sheet string, row, from, to int) string {
	if from == to {
		return fmt.Sprintf("%s!%s%d", sheet, colLetter(from), row)
	}
	return fmt.Sprintf("%s!%s%d:%s%d", sheet, colLetter(from), row, colLetter(to), row)
}

func cell(row []interface{}, idx int) interface{} {
	if idx < len(row) {
		return row[idx]
	}
	return nil
}

func cellString(row []interface{}, idx int) string {
	switch v := cell(row, idx).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func cellFloat(row []interface{}, idx int) float64 {
	switch v := cell(row, idx).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func cellTime(row []interface{}, idx int, loc *time.Location) *time.Time {
	raw := cellString(row, idx)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{timeLayout, dateLayout, time.RFC3339, "1/2/2006 15:04:05", "1/2/2006"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return &t
		}
	}
	return nil
}

func formatTime(t *time.Time, loc *time.Location) interface{} {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(timeLayout)
}

func parseItemRow(row []interface{}, loc *time.Location) (domain.Item, bool) {
	id := cellString(row, colItemID)
	if id == "" {
		return domain.Item{}, false
	}

	// Rows without an explicit status are not tracked.
	status := domain.ItemInactive
	if raw := cellString(row, colItemStatus); raw != "" {
		if s, ok := domain.ParseItemStatus(raw); ok {
			status = s
		}
	}

	return domain.Item{
		ID:             id,
		Name:           cellString(row, colItemName),
		Category:       cellString(row, colItemCategory),
		Unit:           cellString(row, colItemUnit),
		MinStock:       cellFloat(row, colItemMin),
		MaxStock:       cellFloat(row, colItemMax),
		CurrentQty:     cellFloat(row, colItemQty),
		CheckFrequency: domain.ParseCheckFrequency(cellString(row, colItemFreq)),
		Status:         status,
		Price:          cellFloat(row, colItemPrice),
		Supplier:       cellString(row, colItemSupplier),
		ImageRef:       cellString(row, colItemImage),
		LastCheckedAt:  cellTime(row, colItemLastCheck, loc),
		LastUpdatedAt:  cellTime(row, colItemLastUpdate, loc),
		Notes:          cellString(row, colItemNotes),
	}, true
}

func itemRow(it domain.Item, site string, loc *time.Location) []interface{} {
	row := make([]interface{}, itemWidth)
	row[colItemID] = it.ID
	row[colItemName] = it.Name
	row[colItemCategory] = it.Category
	row[colItemUnit] = it.Unit
	row[colItemMin] = it.MinStock
	row[colItemMax] = it.MaxStock
	row[colItemQty] = it.CurrentQty
	row[colItemFreq] = it.CheckFrequency.String()
	row[colItemStatus] = statusLabel(it.Status)
	row[colItemPrice] = it.Price
	row[colItemSupplier] = it.Supplier
	row[colItemSite] = site
	row[colItemImage] = it.ImageRef
	row[colItemLastCheck] = formatTime(it.LastCheckedAt, loc)
	row[colItemLastUpdate] = formatTime(it.LastUpdatedAt, loc)
	row[colItemNotes] = it.Notes
	return row
}

func statusLabel(s domain.ItemStatus) string {
	if s == domain.ItemInactive {
		return "Inactive"
	}
	return "Active"
}

// Check_Records: Timestamp, Staff, Site, ItemID, ItemName, Old, New, Diff, Alert.
const recountWidth = 9

func recountRow(rec domain.RecountRecord, site string, loc *time.Location) []interface{} {
	alert := ""
	if rec.Anomaly {
		alert = fmt.Sprintf("abnormal variance %d%%", rec.AnomalyPct)
	}
	return []interface{}{
		formatTime(&rec.Timestamp, loc), rec.StaffID, site, rec.ItemID, rec.ItemName,
		rec.OldQty, rec.NewQty, rec.Delta, alert,
	}
}

func parseRecountRow(row []interface{}, loc *time.Location) (domain.RecountRecord, bool) {
	ts := cellTime(row, 0, loc)
	if ts == nil {
		return domain.RecountRecord{}, false
	}
	rec := domain.RecountRecord{
		Timestamp: *ts,
		StaffID:   cellString(row, 1),
		ItemID:    cellString(row, 3),
		ItemName:  cellString(row, 4),
		OldQty:    cellFloat(row, 5),
		NewQty:    cellFloat(row, 6),
		Delta:     cellFloat(row, 7),
	}
	if alert := cellString(row, 8); alert != "" {
		rec.Anomaly = true
		if m := anomalyPctRe.FindStringSubmatch(alert); m != nil {
			rec.AnomalyPct, _ = strconv.Atoi(m[1])
		}
	}
	return rec, true
}

func orderRows(po *domain.PurchaseOrder, site string, loc *time.Location) [][]interface{} {
	rows := make([][]interface{}, 0, len(po.Lines))
	for _, line := range po.Lines {
		row := make([]interface{}, poWidth)
		row[colPOID] = po.OrderID
		row[colPODate] = formatTime(&po.CreatedAt, loc)
		row[colPOSite] = site
		row[colPOItemID] = line.ItemID
		row[colPOItemName] = line.ItemName
		row[colPOCurrentQty] = line.CurrentQty
		row[colPONeededQty] = line.NeededQty
		row[colPOUnit] = line.Unit
		row[colPOPrice] = line.Price
		row[colPOLineCost] = line.LineCost
		row[colPOSupplier] = line.Supplier
		row[colPOStatus] = string(po.Status)
		row[colPOCreatedBy] = po.CreatedBy
		row[colPOUpdatedAt] = formatTime(po.UpdatedAt, loc)
		rows = append(rows, row)
	}
	return rows
}

func parsePOStatus(raw string) domain.POStatus {
	if s, ok := poStatusAliases[raw]; ok {
		return s
	}
	if s, ok := domain.ParsePOStatus(raw); ok {
		return s
	}
	return domain.POPending
}

// orderPosition is an order together with the 1-based sheet rows of its lines.
type orderPosition struct {
	order domain.PurchaseOrder
	rows  []int
}

// groupOrders folds line rows into orders, keeping first-seen order and the
// stored line order.
func groupOrders(rows [][]interface{}, loc *time.Location) []*orderPosition {
	var out []*orderPosition
	index := make(map[string]*orderPosition)

	for i, row := range rows {
		id := cellString(row, colPOID)
		if id == "" {
			continue
		}
		pos, ok := index[id]
		if !ok {
			pos = &orderPosition{order: domain.PurchaseOrder{
				OrderID:   id,
				CreatedBy: cellString(row, colPOCreatedBy),
				Status:    parsePOStatus(cellString(row, colPOStatus)),
				UpdatedAt: cellTime(row, colPOUpdatedAt, loc),
			}}
			if created := cellTime(row, colPODate, loc); created != nil {
				pos.order.CreatedAt = *created
			}
			index[id] = pos
			out = append(out, pos)
		}
		pos.rows = append(pos.rows, i+2)
		pos.order.Lines = append(pos.order.Lines, domain.POLine{
			ItemID:     cellString(row, colPOItemID),
			ItemName:   cellString(row, colPOItemName),
			CurrentQty: cellFloat(row, colPOCurrentQty),
			NeededQty:  cellFloat(row, colPONeededQty),
			Unit:       cellString(row, colPOUnit),
			Price:      cellFloat(row, colPOPrice),
			LineCost:   cellFloat(row, colPOLineCost),
			Supplier:   cellString(row, colPOSupplier),
		})
	}
	return out
}

// Alerts: Timestamp, Type, ItemName, Site, CurrentQty, Threshold, Message, Notified, ItemID.
const alertWidth = 9

func alertRow(ev domain.AlertEvent, site string, loc *time.Location) []interface{} {
	notified := "N"
	if ev.Notified {
		notified = "Y"
	}
	return []interface{}{
		formatTime(&ev.Timestamp, loc), string(ev.Kind), ev.ItemName, site,
		ev.CurrentQty, ev.Threshold, ev.Message, notified, ev.ItemID,
	}
}

func parseAlertRow(row []interface{}, loc *time.Location) (domain.AlertEvent, bool) {
	ts := cellTime(row, 0, loc)
	if ts == nil {
		return domain.AlertEvent{}, false
	}
	return domain.AlertEvent{
		Timestamp:  *ts,
		Kind:       domain.AlertKind(cellString(row, 1)),
		ItemName:   cellString(row, 2),
		CurrentQty: cellFloat(row, 4),
		Threshold:  cellFloat(row, 5),
		Message:    cellString(row, 6),
		Notified:   strings.EqualFold(cellString(row, 7), "Y"),
		ItemID:     cellString(row, 8),
	}, true
}

// Inventory_Log: Timestamp, ItemID, ItemName, Kind, Qty, Actor, Note.
const stockLogWidth = 7

func stockLogRow(e domain.StockLogEntry, loc *time.Location) []interface{} {
	return []interface{}{
		formatTime(&e.Timestamp, loc), e.ItemID, e.ItemName, string(e.Kind), e.Qty, e.Actor, e.Note,
	}
}

const staffWidth = 7

func parseStaffRow(row []interface{}) (domain.Staff, bool) {
	id := cellString(row, colStaffID)
	if id == "" {
		return domain.Staff{}, false
	}
	role, ok := domain.ParseRole(cellString(row, colStaffRole))
	if !ok {
		role = domain.RoleStaff
	}
	return domain.Staff{
		ID:    id,
		Name:  cellString(row, colStaffName),
		Role:  role,
		Phone: cellString(row, colStaffPhone),
		Email: cellString(row, colStaffEmail),
	}, true
}
