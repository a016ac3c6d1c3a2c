package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionStatus_ConcurrentReceivedAppliesOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseOrderRepository()
	require.NoError(t, repo.CreateOrder(ctx, &domain.PurchaseOrder{OrderID: "PO-1", Status: domain.POOrdered}))

	var applied int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TransitionStatus(ctx, "PO-1", domain.PredecessorsOf(domain.POReceived), domain.POReceived, time.Now())
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&applied, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), applied)
	po, err := repo.GetOrder(ctx, "PO-1")
	require.NoError(t, err)
	assert.Equal(t, domain.POReceived, po.Status)
	assert.NotNil(t, po.UpdatedAt)
}

func TestTransitionStatus_UnknownOrder(t *testing.T) {
	repo := NewPurchaseOrderRepository()
	_, err := repo.TransitionStatus(context.Background(), "nope", nil, domain.POOrdered, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestItemRepository_ApplyCountsSkipsMissingAndCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(domain.Item{ID: "A", CurrentQty: 4}, domain.Item{ID: "B", CurrentQty: 1})
	at := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.ApplyCounts(ctx, []domain.CountUpdate{
		{ItemID: "A", NewQty: 9, CheckedAt: at, UpdatedAt: at},
		{ItemID: "ghost", NewQty: 1, CheckedAt: at, UpdatedAt: at},
	}))

	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ID)
	assert.Equal(t, 9.0, items[0].CurrentQty)
	require.NotNil(t, items[0].LastCheckedAt)

	// Mutating a returned row must not leak into the store.
	*items[0].LastCheckedAt = at.Add(time.Hour)
	again, err := repo.GetItem(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, at, *again.LastCheckedAt)
}

func TestItemRepository_AdjustQtyClampsAtZero(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(domain.Item{ID: "A", CurrentQty: 3})

	require.NoError(t, repo.AdjustQty(ctx, "A", -10, time.Now()))
	it, err := repo.GetItem(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0.0, it.CurrentQty)

	assert.ErrorIs(t, repo.AdjustQty(ctx, "missing", 1, time.Now()), repository.ErrNotFound)
}

func TestItemRepository_CreateDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository()

	require.NoError(t, repo.CreateItem(ctx, domain.Item{ID: "A"}))
	assert.ErrorIs(t, repo.CreateItem(ctx, domain.Item{ID: "A"}), repository.ErrDuplicate)
	require.NoError(t, repo.DeleteItem(ctx, "A"))
	assert.ErrorIs(t, repo.DeleteItem(ctx, "A"), repository.ErrNotFound)

	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListOrdersNewestFirstWithStatusFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseOrderRepository()
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateOrder(ctx, &domain.PurchaseOrder{OrderID: "1", CreatedAt: base, Status: domain.POPending}))
	require.NoError(t, repo.CreateOrder(ctx, &domain.PurchaseOrder{OrderID: "2", CreatedAt: base.Add(time.Minute), Status: domain.POOrdered}))
	require.NoError(t, repo.CreateOrder(ctx, &domain.PurchaseOrder{OrderID: "3", CreatedAt: base.Add(2 * time.Minute), Status: domain.POPending}))

	all, err := repo.ListOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].OrderID)

	pending, err := repo.ListOrders(ctx, domain.POPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "3", pending[0].OrderID)
	assert.Equal(t, "1", pending[1].OrderID)
}

func TestAlertsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertRepository()
	require.NoError(t, repo.AppendAlerts(ctx, []domain.AlertEvent{{ItemID: "a"}, {ItemID: "b"}, {ItemID: "c"}}))

	got, err := repo.ListAlerts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ItemID)
	assert.Equal(t, "b", got[1].ItemID)
}
