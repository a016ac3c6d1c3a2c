// Package importer loads item catalogs from CSV or XLSX files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

var errMissingName = errors.New("catalog header has no name column")

// headerAliases maps normalized header labels to ItemInput fields.
var headerAliases = map[string]string{
	"name":            "name",
	"item":            "name",
	"item_name":       "name",
	"category":        "category",
	"unit":            "unit",
	"min_stock":       "min_stock",
	"min":             "min_stock",
	"max_stock":       "max_stock",
	"max":             "max_stock",
	"current_qty":     "current_qty",
	"qty":             "current_qty",
	"quantity":        "current_qty",
	"check_frequency": "check_frequency",
	"frequency":       "check_frequency",
	"status":          "status",
	"price":           "price",
	"unit_price":      "price",
	"supplier":        "supplier",
	"image_ref":       "image_ref",
	"image":           "image_ref",
	"notes":           "notes",
}

// ReadFile picks the decoder from the file extension.
func ReadFile(r io.Reader, filename string) ([]service.ItemInput, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return ReadXLSX(r)
	case ".csv", "":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("unsupported catalog file %s", filename)
	}
}

func ReadCSV(r io.Reader) ([]service.ItemInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv catalog: %w", err)
	}
	return parseRecords(records)
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(r io.Reader) ([]service.ItemInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx catalog: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx catalog has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row from sheet %s: %w", sheet, err)
		}
		records = append(records, record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in sheet %s: %w", sheet, err)
	}
	return parseRecords(records)
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

func parseRecords(records [][]string) ([]service.ItemInput, error) {
	if len(records) == 0 {
		return nil, nil
	}
	columns := map[string]int{}
	for i, h := range records[0] {
		if field, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, seen := columns[field]; !seen {
				columns[field] = i
			}
		}
	}
	if _, ok := columns["name"]; !ok {
		return nil, errMissingName
	}

	var out []service.ItemInput
	for n, record := range records[1:] {
		get := func(field string) string {
			i, ok := columns[field]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		if get("name") == "" {
			continue
		}

		row := n + 2
		in := service.ItemInput{
			Name:           get("name"),
			Category:       get("category"),
			Unit:           get("unit"),
			CheckFrequency: get("check_frequency"),
			Status:         get("status"),
			Supplier:       get("supplier"),
			ImageRef:       get("image_ref"),
			Notes:          get("notes"),
		}
		var err error
		if in.MinStock, err = number(get("min_stock")); err != nil {
			return nil, fmt.Errorf("row %d min_stock: %w", row, err)
		}
		if in.MaxStock, err = number(get("max_stock")); err != nil {
			return nil, fmt.Errorf("row %d max_stock: %w", row, err)
		}
		if in.CurrentQty, err = number(get("current_qty")); err != nil {
			return nil, fmt.Errorf("row %d current_qty: %w", row, err)
		}
		if in.Price, err = number(get("price")); err != nil {
			return nil, fmt.Errorf("row %d price: %w", row, err)
		}
		if in.Status == "" {
			in.Status = string(domain.ItemActive)
		}
		out = append(out, in)
	}
	return out, nil
}

// number accepts blanks as zero and tolerates thousands separators and an
// RM prefix on prices.
func number(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "RM"), "rm")
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

type itemCreator interface {
	Create(ctx context.Context, actor domain.Actor, in service.ItemInput) (*domain.Item, error)
}

// Result reports how an import went.
type Result struct {
	Created int
	Failed  map[string]string
}

// Import creates every row through the item service. Rows that fail
// validation are reported and skipped.
func Import(ctx context.Context, items itemCreator, actor domain.Actor, rows []service.ItemInput) Result {
	res := Result{Failed: map[string]string{}}
	for _, in := range rows {
		if _, err := items.Create(ctx, actor, in); err != nil {
			log.Warn().Err(err).Str("item", in.Name).Msg("catalog row skipped")
			res.Failed[in.Name] = err.Error()
			continue
		}
		res.Created++
	}
	log.Info().
		Int("created", res.Created).
		Int("failed", len(res.Failed)).
		Msg("catalog import finished")
	return res
}
