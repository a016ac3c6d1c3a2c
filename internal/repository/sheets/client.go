// Package sheets stores the engine tables in a Google Sheets spreadsheet,
// one tab per table with a header row.
package sheets

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Range is one A1-addressed block of cells to overwrite.
type Range struct {
	A1   string
	Rows [][]interface{}
}

// Values is the subset of the Sheets values API the driver relies on.
type Values interface {
	Get(ctx context.Context, readRange string) ([][]interface{}, error)
	Append(ctx context.Context, writeRange string, rows [][]interface{}) error
	Update(ctx context.Context, ranges []Range) error
	// DeleteRow removes the 1-based row from the named tab.
	DeleteRow(ctx context.Context, sheet string, row int) error
}

type Client struct {
	srv           *gsheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

func NewClient(ctx context.Context, credentialsJSON, spreadsheetID string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}

	srv, err := gsheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}

	return &Client{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

func (c *Client) Get(ctx context.Context, readRange string) ([][]interface{}, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", readRange, err)
	}
	return resp.Values, nil
}

func (c *Client) Append(ctx context.Context, writeRange string, rows [][]interface{}) error {
	_, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, writeRange, &gsheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to append to %s: %w", writeRange, err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, ranges []Range) error {
	if len(ranges) == 0 {
		return nil
	}

	data := make([]*gsheets.ValueRange, 0, len(ranges))
	for _, r := range ranges {
		data = append(data, &gsheets.ValueRange{Range: r.A1, Values: r.Rows})
	}

	req := &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	if _, err := c.srv.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to update %d ranges: %w", len(ranges), err)
	}
	return nil
}

func (c *Client) DeleteRow(ctx context.Context, sheet string, row int) error {
	sheetID, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.srv.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to delete row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.sheetIDs[title]; ok {
		return id, nil
	}

	ss, err := c.srv.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to read spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}

	id, ok := c.sheetIDs[title]
	if !ok {
		return 0, fmt.Errorf("sheet not found: %s", title)
	}
	return id, nil
}
