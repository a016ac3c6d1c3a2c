package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/pkg/logger"
	"github.com/urfave/cli/v2"
)

const upsertStaffSQL = `
INSERT INTO staff (id, name, role, phone, email)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name, role = EXCLUDED.role, phone = EXCLUDED.phone, email = EXCLUDED.email`

func runStaff(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}
	f, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open staff file: %w", err)
	}
	defer f.Close()

	staff, err := parseStaff(f)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(c.Context, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range staff {
		if _, err := tx.ExecContext(c.Context, upsertStaffSQL, s.ID, s.Name, string(s.Role), s.Phone, s.Email); err != nil {
			return fmt.Errorf("failed to upsert staff %s: %w", s.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	logger.Log.Info().Int("staff", len(staff)).Msg("staff seeded")
	return nil
}

// parseStaff reads id,name,role,phone,email rows after a header line.
func parseStaff(r io.Reader) ([]domain.Staff, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read staff csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	var out []domain.Staff
	for n, rec := range records[1:] {
		field := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		id := field(0)
		if id == "" {
			continue
		}
		role, ok := domain.ParseRole(field(2))
		if !ok {
			return nil, fmt.Errorf("row %d: unknown role %q", n+2, field(2))
		}
		out = append(out, domain.Staff{
			ID:    id,
			Name:  field(1),
			Role:  role,
			Phone: field(3),
			Email: field(4),
		})
	}
	return out, nil
}
