// Package export renders purchase orders as CSV or XLSX documents.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/service"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"

	orderSheet    = "Order"
	supplierSheet = "Suppliers"
)

var orderHeader = []string{
	"Order ID", "Created At", "Status", "Item ID", "Item", "Supplier",
	"Current Qty", "Needed Qty", "Unit", "Price", "Line Cost",
}

// ParseFormat defaults to CSV for an empty value.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename is the download name of an exported order.
func Filename(order *domain.PurchaseOrder, f Format) string {
	return fmt.Sprintf("%s.%s", order.OrderID, f)
}

// WriteOrder writes order to w in the given format.
func WriteOrder(w io.Writer, order *domain.PurchaseOrder, f Format) error {
	switch f {
	case FormatXLSX:
		return WriteOrderXLSX(w, order)
	default:
		return WriteOrderCSV(w, order)
	}
}

func orderRows(order *domain.PurchaseOrder) [][]string {
	rows := make([][]string, 0, len(order.Lines))
	created := order.CreatedAt.Format("2006-01-02 15:04:05")
	for _, line := range order.Lines {
		supplier := strings.TrimSpace(line.Supplier)
		if supplier == "" {
			supplier = service.UnassignedSupplier
		}
		rows = append(rows, []string{
			order.OrderID,
			created,
			string(order.Status),
			line.ItemID,
			line.ItemName,
			supplier,
			num(line.CurrentQty),
			num(line.NeededQty),
			line.Unit,
			money(line.Price),
			money(line.LineCost),
		})
	}
	return rows
}

func WriteOrderCSV(w io.Writer, order *domain.PurchaseOrder) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(orderHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range orderRows(order) {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOrderXLSX writes the order lines on one sheet and per-supplier totals
// on a second one.
func WriteOrderXLSX(w io.Writer, order *domain.PurchaseOrder) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", orderSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := setRow(f, orderSheet, 1, toCells(orderHeader)); err != nil {
		return err
	}
	for i, line := range order.Lines {
		supplier := strings.TrimSpace(line.Supplier)
		if supplier == "" {
			supplier = service.UnassignedSupplier
		}
		row := []any{
			order.OrderID,
			order.CreatedAt.Format("2006-01-02 15:04:05"),
			string(order.Status),
			line.ItemID,
			line.ItemName,
			supplier,
			line.CurrentQty,
			line.NeededQty,
			line.Unit,
			line.Price,
			line.LineCost,
		}
		if err := setRow(f, orderSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(supplierSheet); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", supplierSheet, err)
	}
	if err := setRow(f, supplierSheet, 1, []any{"Supplier", "Total"}); err != nil {
		return err
	}
	totals := service.SupplierTotals(order)
	for i, t := range totals {
		if err := setRow(f, supplierSheet, i+2, []any{t.Supplier, t.Total}); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
