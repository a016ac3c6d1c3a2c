// internal/repository/postgres/item_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const itemColumns = `
	id, name, category, unit, min_stock, max_stock, current_qty,
	check_frequency, status, price, supplier, image_ref, notes,
	last_checked_at, last_updated_at
`

type itemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *itemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) ListItems(ctx context.Context) ([]domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY position ASC`

	var items []domain.Item
	if err := sqlx.SelectContext(ctx, r.db, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (r *itemRepository) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	var item domain.Item
	if err := sqlx.GetContext(ctx, r.db, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	return &item, nil
}

func (r *itemRepository) CreateItem(ctx context.Context, item domain.Item) error {
	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES (
			:id, :name, :category, :unit, :min_stock, :max_stock, :current_qty,
			:check_frequency, :status, :price, :supplier, :image_ref, :notes,
			:last_checked_at, :last_updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *itemRepository) UpdateItem(ctx context.Context, item domain.Item) error {
	query := `
		UPDATE items SET
			name = :name,
			category = :category,
			unit = :unit,
			min_stock = :min_stock,
			max_stock = :max_stock,
			current_qty = :current_qty,
			check_frequency = :check_frequency,
			status = :status,
			price = :price,
			supplier = :supplier,
			image_ref = :image_ref,
			notes = :notes,
			last_checked_at = :last_checked_at,
			last_updated_at = :last_updated_at
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("failed to update item %s: %w", item.ID, err)
	}
	return requireRow(res)
}

func (r *itemRepository) DeleteItem(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return requireRow(res)
}

func (r *itemRepository) ApplyCounts(ctx context.Context, updates []domain.CountUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return applyCountsTx(ctx, tx, updates)
	})
}

func applyCountsTx(ctx context.Context, tx *sql.Tx, updates []domain.CountUpdate) error {
	stmt, err := tx.PrepareContext(ctx, `
		UPDATE items
		SET current_qty = $2, last_checked_at = $3, last_updated_at = $4
		WHERE id = $1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare count update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.ItemID, u.NewQty, u.CheckedAt, u.UpdatedAt); err != nil {
			return fmt.Errorf("failed to apply count for %s: %w", u.ItemID, err)
		}
	}
	return nil
}

func (r *itemRepository) AdjustQty(ctx context.Context, itemID string, delta float64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET current_qty = GREATEST(current_qty + $2, 0), last_updated_at = $3
		WHERE id = $1
	`, itemID, delta, at)
	if err != nil {
		return fmt.Errorf("failed to adjust qty for %s: %w", itemID, err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
