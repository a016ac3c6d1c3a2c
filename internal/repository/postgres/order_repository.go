// internal/repository/postgres/order_repository.go
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

type purchaseOrderRepository struct {
	db *DB
}

func NewPurchaseOrderRepository(db *DB) *purchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

type orderLineRow struct {
	OrderID string `db:"order_id"`
	domain.POLine
}

func (r *purchaseOrderRepository) CreateOrder(ctx context.Context, order *domain.PurchaseOrder) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_orders (order_id, created_at, created_by, status)
			VALUES ($1, $2, $3, $4)
		`, order.OrderID, order.CreatedAt, order.CreatedBy, order.Status)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return repository.ErrDuplicate
			}
			return fmt.Errorf("failed to insert purchase order: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO purchase_order_lines (
				order_id, line_no, item_id, item_name, current_qty,
				needed_qty, unit, price, line_cost, supplier
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		// line_no keeps the urgency order the lines were generated in.
		for i, line := range order.Lines {
			_, err := stmt.ExecContext(ctx,
				order.OrderID,
				i,
				line.ItemID,
				line.ItemName,
				line.CurrentQty,
				line.NeededQty,
				line.Unit,
				line.Price,
				line.LineCost,
				line.Supplier,
			)
			if err != nil {
				return fmt.Errorf("failed to insert purchase order line: %w", err)
			}
		}
		return nil
	})
}

func (r *purchaseOrderRepository) GetOrder(ctx context.Context, orderID string) (*domain.PurchaseOrder, error) {
	var order domain.PurchaseOrder
	err := sqlx.GetContext(ctx, r.db, &order, `
		SELECT order_id, created_at, created_by, status, updated_at
		FROM purchase_orders
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get purchase order %s: %w", orderID, err)
	}

	lines, err := r.loadLines(ctx, []string{orderID})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[orderID]
	return &order, nil
}

func (r *purchaseOrderRepository) ListOrders(ctx context.Context, status domain.POStatus) ([]domain.PurchaseOrder, error) {
	query := `
		SELECT order_id, created_at, created_by, status, updated_at
		FROM purchase_orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, order_id DESC
	`

	var orders []domain.PurchaseOrder
	if err := sqlx.SelectContext(ctx, r.db, &orders, query, string(status)); err != nil {
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.OrderID
	}
	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].OrderID]
	}
	return orders, nil
}

func (r *purchaseOrderRepository) loadLines(ctx context.Context, orderIDs []string) (map[string][]domain.POLine, error) {
	query := `
		SELECT order_id, item_id, item_name, current_qty, needed_qty,
		       unit, price, line_cost, supplier
		FROM purchase_order_lines
		WHERE order_id = ANY($1::text[])
		ORDER BY order_id, line_no ASC
	`

	var rows []orderLineRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, pq.Array(orderIDs)); err != nil {
		return nil, fmt.Errorf("failed to load purchase order lines: %w", err)
	}
	return groupLines(rows), nil
}

func groupLines(rows []orderLineRow) map[string][]domain.POLine {
	out := make(map[string][]domain.POLine)
	for _, row := range rows {
		out[row.OrderID] = append(out[row.OrderID], row.POLine)
	}
	return out
}

// TransitionStatus is a single conditional UPDATE so concurrent callers
// cannot both observe the old status.
func (r *purchaseOrderRepository) TransitionStatus(ctx context.Context, orderID string, from []domain.POStatus, to domain.POStatus, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = $3, updated_at = $4
		WHERE order_id = $1 AND status = ANY($2::text[])
	`, orderID, pq.Array(statusStrings(from)), to, at)
	if err != nil {
		return false, fmt.Errorf("failed to transition purchase order %s: %w", orderID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM purchase_orders WHERE order_id = $1)`, orderID); err != nil {
		return false, fmt.Errorf("failed to check purchase order %s: %w", orderID, err)
	}
	if !exists {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func statusStrings(statuses []domain.POStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
