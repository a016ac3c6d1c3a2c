package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/jmoiron/sqlx"
)

type recountRepository struct {
	db *DB
}

func NewRecountRepository(db *DB) *recountRepository {
	return &recountRepository{db: db}
}

func (r *recountRepository) AppendRecounts(ctx context.Context, records []domain.RecountRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return appendRecountsTx(ctx, tx, records)
	})
}

// ApplyRecountBatch writes the catalog counts and their audit rows in one
// transaction.
func (r *recountRepository) ApplyRecountBatch(ctx context.Context, updates []domain.CountUpdate, records []domain.RecountRecord) error {
	if len(updates) == 0 && len(records) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if len(updates) > 0 {
			if err := applyCountsTx(ctx, tx, updates); err != nil {
				return err
			}
		}
		if len(records) > 0 {
			return appendRecountsTx(ctx, tx, records)
		}
		return nil
	})
}

func appendRecountsTx(ctx context.Context, tx *sql.Tx, records []domain.RecountRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recount_records (
			recorded_at, staff_id, item_id, item_name, old_qty,
			new_qty, delta, anomaly, anomaly_pct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.Timestamp,
			rec.StaffID,
			rec.ItemID,
			rec.ItemName,
			rec.OldQty,
			rec.NewQty,
			rec.Delta,
			rec.Anomaly,
			rec.AnomalyPct,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recount record: %w", err)
		}
	}
	return nil
}

func (r *recountRepository) ListRecountsSince(ctx context.Context, since time.Time) ([]domain.RecountRecord, error) {
	query := `
		SELECT recorded_at, staff_id, item_id, item_name, old_qty,
		       new_qty, delta, anomaly, anomaly_pct
		FROM recount_records
		WHERE recorded_at >= $1
		ORDER BY recorded_at ASC, id ASC
	`

	var records []domain.RecountRecord
	if err := sqlx.SelectContext(ctx, r.db, &records, query, since); err != nil {
		return nil, fmt.Errorf("failed to list recount records: %w", err)
	}
	return records, nil
}
