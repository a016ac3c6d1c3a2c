package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/jmoiron/sqlx"
)

type alertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) *alertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) AppendAlerts(ctx context.Context, events []domain.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO alert_events (
				recorded_at, kind, item_id, item_name, current_qty,
				threshold, message, notified
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, ev := range events {
			_, err := stmt.ExecContext(ctx,
				ev.Timestamp, ev.Kind, ev.ItemID, ev.ItemName,
				ev.CurrentQty, ev.Threshold, ev.Message, ev.Notified,
			)
			if err != nil {
				return fmt.Errorf("failed to insert alert event: %w", err)
			}
		}
		return nil
	})
}

func (r *alertRepository) ListAlerts(ctx context.Context, limit int) ([]domain.AlertEvent, error) {
	query := `
		SELECT recorded_at, kind, item_id, item_name, current_qty,
		       threshold, message, notified
		FROM alert_events
		ORDER BY recorded_at DESC, id DESC
	`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var events []domain.AlertEvent
	if err := sqlx.SelectContext(ctx, r.db, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list alert events: %w", err)
	}
	return events, nil
}

type stockLogRepository struct {
	db *DB
}

func NewStockLogRepository(db *DB) *stockLogRepository {
	return &stockLogRepository{db: db}
}

func (r *stockLogRepository) AppendStockLog(ctx context.Context, entries []domain.StockLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO stock_log (recorded_at, item_id, item_name, kind, qty, actor, note)
		VALUES (:recorded_at, :item_id, :item_name, :kind, :qty, :actor, :note)
	`
	if _, err := r.db.NamedExecContext(ctx, query, entries); err != nil {
		return fmt.Errorf("failed to insert stock log: %w", err)
	}
	return nil
}
