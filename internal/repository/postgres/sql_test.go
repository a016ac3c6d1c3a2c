package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	kl      = time.FixedZone("MYT", 8*3600)
	countAt = time.Date(2026, 10, 14, 9, 30, 0, 0, kl)
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return wrapDB(sqlx.NewDb(raw, "postgres")), mock
}

func sqlFragment(s string) string { return regexp.QuoteMeta(s) }

func TestTransitionStatus(t *testing.T) {
	const update = "UPDATE purchase_orders SET status = $3, updated_at = $4 WHERE order_id = $1 AND status = ANY($2::text[])"
	from := domain.PredecessorsOf(domain.POReceived)

	t.Run("applied", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(sqlFragment(update)).
			WithArgs("PO-1", `{"pending","ordered"}`, "received", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := NewPurchaseOrderRepository(db).TransitionStatus(context.Background(), "PO-1", from, domain.POReceived, countAt)
		require.NoError(t, err)
		assert.True(t, applied)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already received is not applied", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(sqlFragment(update)).
			WithArgs("PO-1", `{"pending","ordered"}`, "received", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(sqlFragment("SELECT EXISTS (SELECT 1 FROM purchase_orders WHERE order_id = $1)")).
			WithArgs("PO-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		applied, err := NewPurchaseOrderRepository(db).TransitionStatus(context.Background(), "PO-1", from, domain.POReceived, countAt)
		require.NoError(t, err)
		assert.False(t, applied)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown order", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(sqlFragment(update)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(sqlFragment("SELECT EXISTS")).
			WithArgs("PO-404").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		applied, err := NewPurchaseOrderRepository(db).TransitionStatus(context.Background(), "PO-404", from, domain.POReceived, countAt)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.False(t, applied)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateOrder(t *testing.T) {
	order := &domain.PurchaseOrder{
		OrderID:   "PO-20261014-093000-001",
		CreatedAt: countAt,
		CreatedBy: "mgr-1",
		Status:    domain.POPending,
		Lines: []domain.POLine{
			{ItemID: "MILK", ItemName: "Milk", CurrentQty: 2, NeededQty: 18, Unit: "btl", Price: 2.5, LineCost: 45, Supplier: "Dairy Co"},
			{ItemID: "EGG", ItemName: "Eggs", CurrentQty: 1, NeededQty: 4, Unit: "tray", Price: 1.2, LineCost: 4.8},
		},
	}

	t.Run("writes header and lines in one transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(sqlFragment("INSERT INTO purchase_orders")).
			WithArgs(order.OrderID, sqlmock.AnyArg(), "mgr-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		lines := mock.ExpectPrepare(sqlFragment("INSERT INTO purchase_order_lines"))
		lines.ExpectExec().
			WithArgs(order.OrderID, 0, "MILK", "Milk", 2.0, 18.0, "btl", 2.5, 45.0, "Dairy Co").
			WillReturnResult(sqlmock.NewResult(0, 1))
		lines.ExpectExec().
			WithArgs(order.OrderID, 1, "EGG", "Eggs", 1.0, 4.0, "tray", 1.2, 4.8, "").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewPurchaseOrderRepository(db).CreateOrder(context.Background(), order))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(sqlFragment("INSERT INTO purchase_orders")).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
		mock.ExpectRollback()

		err := NewPurchaseOrderRepository(db).CreateOrder(context.Background(), order)
		assert.ErrorIs(t, err, repository.ErrDuplicate)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other failures are not duplicates", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(sqlFragment("INSERT INTO purchase_orders")).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := NewPurchaseOrderRepository(db).CreateOrder(context.Background(), order)
		require.Error(t, err)
		assert.False(t, errors.Is(err, repository.ErrDuplicate))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListOrdersFiltersByStatusAndScansNumericCost(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(sqlFragment("WHERE ($1 = '' OR status = $1)")).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "created_at", "created_by", "status", "updated_at"}).
			AddRow("PO-1", countAt, "mgr-1", "pending", nil))
	mock.ExpectQuery(sqlFragment("FROM purchase_order_lines")).
		WithArgs(`{"PO-1"}`).
		WillReturnRows(sqlmock.NewRows([]string{
			"order_id", "item_id", "item_name", "current_qty", "needed_qty",
			"unit", "price", "line_cost", "supplier",
		}).
			AddRow("PO-1", "MILK", "Milk", 2.0, 18.0, "btl", []byte("2.50"), []byte("45.00"), "Dairy Co").
			AddRow("PO-1", "EGG", "Eggs", 1.0, 4.0, "tray", []byte("1.20"), []byte("4.80"), ""))

	orders, err := NewPurchaseOrderRepository(db).ListOrders(context.Background(), domain.POPending)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.POPending, orders[0].Status)
	assert.Nil(t, orders[0].UpdatedAt)
	require.Len(t, orders[0].Lines, 2)
	assert.Equal(t, "MILK", orders[0].Lines[0].ItemID)
	assert.Equal(t, 45.0, orders[0].Lines[0].LineCost)
	assert.Equal(t, 4.8, orders[0].Lines[1].LineCost)
	assert.InDelta(t, 49.8, orders[0].TotalCost(), 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrdersAllStatusesSkipsLinesWhenEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(sqlFragment("FROM purchase_orders")).
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "created_at", "created_by", "status", "updated_at"}))

	orders, err := NewPurchaseOrderRepository(db).ListOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, orders)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderMissingIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(sqlFragment("FROM purchase_orders")).
		WithArgs("PO-404").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "created_at", "created_by", "status", "updated_at"}))

	_, err := NewPurchaseOrderRepository(db).GetOrder(context.Background(), "PO-404")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCountsUpdatesEveryItemInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	stmt := mock.ExpectPrepare(sqlFragment("UPDATE items SET current_qty = $2, last_checked_at = $3, last_updated_at = $4 WHERE id = $1"))
	stmt.ExpectExec().WithArgs("MILK", 2.0, sqlmock.AnyArg(), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	stmt.ExpectExec().WithArgs("EGG", 0.0, sqlmock.AnyArg(), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := NewItemRepository(db).ApplyCounts(context.Background(), []domain.CountUpdate{
		{ItemID: "MILK", NewQty: 2, CheckedAt: countAt, UpdatedAt: countAt},
		{ItemID: "EGG", NewQty: 0, CheckedAt: countAt, UpdatedAt: countAt},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustQtyClampsInSQL(t *testing.T) {
	db, mock := newMockDB(t)
	adjust := sqlFragment("SET current_qty = GREATEST(current_qty + $2, 0), last_updated_at = $3")
	mock.ExpectExec(adjust).WithArgs("MILK", 18.0, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(adjust).WithArgs("GONE", 5.0, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewItemRepository(db)
	require.NoError(t, repo.AdjustQty(context.Background(), "MILK", 18, countAt))
	assert.ErrorIs(t, repo.AdjustQty(context.Background(), "GONE", 5, countAt), repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRecountBatch(t *testing.T) {
	updates := []domain.CountUpdate{{ItemID: "MILK", NewQty: 2, CheckedAt: countAt, UpdatedAt: countAt}}
	records := []domain.RecountRecord{{
		Timestamp: countAt, StaffID: "st-1", ItemID: "MILK", ItemName: "Milk",
		OldQty: 10, NewQty: 2, Delta: -8, Anomaly: true, AnomalyPct: 80,
	}}

	t.Run("commits counts and history together", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectPrepare(sqlFragment("UPDATE items")).ExpectExec().
			WithArgs("MILK", 2.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectPrepare(sqlFragment("INSERT INTO recount_records")).ExpectExec().
			WithArgs(sqlmock.AnyArg(), "st-1", "MILK", "Milk", 10.0, 2.0, -8.0, true, 80).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, NewRecountRepository(db).ApplyRecountBatch(context.Background(), updates, records))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("history failure rolls back the counts", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectPrepare(sqlFragment("UPDATE items")).ExpectExec().
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectPrepare(sqlFragment("INSERT INTO recount_records")).ExpectExec().
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := NewRecountRepository(db).ApplyRecountBatch(context.Background(), updates, records)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
