package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/andresuchdata/stockcount/internal/cache"
	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/andresuchdata/stockcount/internal/repository/memory"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	svc      *OrderService
	items    repository.ItemRepository
	stockLog interface {
		Entries() []domain.StockLogEntry
	}
}

func newOrderFixture(items ...domain.Item) orderFixture {
	itemRepo := memory.NewItemRepository(items...)
	stockLog := memory.NewStockLogRepository()
	svc := NewOrderService(OrderRepos{
		Items:    itemRepo,
		Orders:   memory.NewPurchaseOrderRepository(),
		StockLog: stockLog,
	}, cache.NewMemorySequence(), nil, nil, FixedClock(wednesday))
	return orderFixture{svc: svc, items: itemRepo, stockLog: stockLog}
}

func lowCatalog() []domain.Item {
	a := activeItem("A", "Butter", 8, 10, 0)
	a.Price = 3.5
	a.Supplier = "Dairy Co"
	b := activeItem("B", "Milk", 1, 10, 20)
	b.Price = 2.25
	b.Supplier = "Dairy Co"
	c := activeItem("C", "Flour", 50, 10, 60)
	d := activeItem("D", "Sugar", 0, 4, 0)
	d.Price = 1.2
	return []domain.Item{a, b, c, d}
}

func TestGenerate_NoLowItemsReturnsNil(t *testing.T) {
	f := newOrderFixture(activeItem("A", "Flour", 50, 10, 60))

	order, err := f.svc.Generate(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestGenerate_LinesSortedByUrgency(t *testing.T) {
	f := newOrderFixture(lowCatalog()...)

	order, err := f.svc.Generate(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Regexp(t, `^PO-20261014-093000-\d{3}$`, order.OrderID)
	assert.Equal(t, SystemActor, order.CreatedBy)
	assert.Equal(t, domain.POPending, order.Status)
	require.Len(t, order.Lines, 3)
	assert.Equal(t, []string{"D", "B", "A"}, []string{order.Lines[0].ItemID, order.Lines[1].ItemID, order.Lines[2].ItemID})

	assert.Equal(t, 19.0, order.Lines[1].NeededQty)
	assert.Equal(t, 42.75, order.Lines[1].LineCost)
	assert.Equal(t, 2.0, order.Lines[2].NeededQty)
	assert.Equal(t, 7.0, order.Lines[2].LineCost)

	stored, err := f.svc.Get(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.Lines, stored.Lines)
}

func TestGenerate_SameSecondOrdersHaveDistinctIDs(t *testing.T) {
	f := newOrderFixture(lowCatalog()...)
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, "mgr-1")
	require.NoError(t, err)
	second, err := f.svc.Generate(ctx, "mgr-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.True(t, strings.HasSuffix(first.OrderID, "-001"))
	assert.True(t, strings.HasSuffix(second.OrderID, "-002"))
}

func TestUpdateStatus_ReceivedTwiceCreditsOnce(t *testing.T) {
	f := newOrderFixture(activeItem("B", "Milk", 1, 10, 20))
	ctx := context.Background()

	order, err := f.svc.Generate(ctx, "")
	require.NoError(t, err)

	change, err := f.svc.UpdateStatus(ctx, manager(), order.OrderID, "ordered")
	require.NoError(t, err)
	assert.True(t, change.Applied)

	change, err = f.svc.UpdateStatus(ctx, manager(), order.OrderID, "received")
	require.NoError(t, err)
	assert.True(t, change.Applied)
	assert.Equal(t, 1, change.Credited)

	change, err = f.svc.UpdateStatus(ctx, manager(), order.OrderID, "RECEIVED")
	require.NoError(t, err)
	assert.False(t, change.Applied)
	assert.Equal(t, domain.POReceived, change.Order.Status)

	item, err := f.items.GetItem(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 20.0, item.CurrentQty)

	entries := f.stockLog.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StockLogPOReceived, entries[0].Kind)
	assert.Equal(t, order.OrderID, entries[0].Note)
}

func TestUpdateStatus_ConcurrentReceivedCreditsOnce(t *testing.T) {
	f := newOrderFixture(activeItem("B", "Milk", 2, 10, 30))
	ctx := context.Background()

	order, err := f.svc.Generate(ctx, "")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			change, err := f.svc.UpdateStatus(ctx, manager(), order.OrderID, "received")
			if err != nil {
				return
			}
			if change.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	item, err := f.items.GetItem(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 30.0, item.CurrentQty)
}

func TestUpdateStatus_Errors(t *testing.T) {
	f := newOrderFixture(activeItem("B", "Milk", 1, 10, 20))
	ctx := context.Background()

	order, err := f.svc.Generate(ctx, "")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, staffer(), order.OrderID, "ordered")
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))

	_, err = f.svc.UpdateStatus(ctx, manager(), order.OrderID, "shipped")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = f.svc.UpdateStatus(ctx, manager(), "PO-missing", "ordered")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	_, err = f.svc.UpdateStatus(ctx, manager(), order.OrderID, "ordered")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, manager(), order.OrderID, "pending")
	assert.Equal(t, apperrors.CodeStateConflict, apperrors.CodeOf(err))
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newOrderFixture(lowCatalog()...)
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, "")
	require.NoError(t, err)
	_, err = f.svc.Generate(ctx, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, manager(), first.OrderID, "ordered")
	require.NoError(t, err)

	pending, err := f.svc.List(ctx, "pending")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := f.svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.List(ctx, "lost")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestOrderText_GroupsBySupplier(t *testing.T) {
	order := &domain.PurchaseOrder{
		OrderID:   "PO-20261014-093000-001",
		CreatedAt: wednesday,
		Lines: []domain.POLine{
			{ItemName: "Milk", NeededQty: 19, Unit: "L", LineCost: 42.75, Supplier: "Dairy Co"},
			{ItemName: "Sugar", NeededQty: 4, Unit: "kg", LineCost: 4.8},
			{ItemName: "Butter", NeededQty: 2, Unit: "kg", LineCost: 7, Supplier: "Dairy Co"},
		},
	}

	text := OrderText(order)

	assert.Contains(t, text, "Purchase Order PO-20261014-093000-001")
	assert.Contains(t, text, "[Dairy Co]\n  · Milk 19L ≈RM42.75\n  · Butter 2kg ≈RM7.00\n")
	assert.Contains(t, text, "[Unassigned]\n  · Sugar 4kg ≈RM4.80\n")
	assert.True(t, strings.HasSuffix(text, "Total: RM 54.55"))
	assert.Less(t, strings.Index(text, "Dairy Co"), strings.Index(text, "Unassigned"))

	assert.Equal(t, "No items need ordering.", OrderText(nil))
}

func TestSupplierTotals(t *testing.T) {
	order := &domain.PurchaseOrder{Lines: []domain.POLine{
		{LineCost: 0.1, Supplier: "B"},
		{LineCost: 0.2, Supplier: "B"},
		{LineCost: 5},
	}}

	totals := SupplierTotals(order)
	require.Len(t, totals, 2)
	assert.Equal(t, SupplierTotal{Supplier: "B", Total: 0.3}, totals[0])
	assert.Equal(t, SupplierTotal{Supplier: UnassignedSupplier, Total: 5}, totals[1])
}

// takenOnce rejects the first order it is given as if another replica had
// already stored that id.
type takenOnce struct {
	repository.PurchaseOrderRepository
	mu    sync.Mutex
	tried []string
}

func (r *takenOnce) CreateOrder(ctx context.Context, order *domain.PurchaseOrder) error {
	r.mu.Lock()
	r.tried = append(r.tried, order.OrderID)
	first := len(r.tried) == 1
	r.mu.Unlock()
	if first {
		return repository.ErrDuplicate
	}
	return r.PurchaseOrderRepository.CreateOrder(ctx, order)
}

func TestGenerate_RetriesWithFreshIDWhenTaken(t *testing.T) {
	orders := &takenOnce{PurchaseOrderRepository: memory.NewPurchaseOrderRepository()}
	svc := NewOrderService(OrderRepos{
		Items:    memory.NewItemRepository(lowCatalog()...),
		Orders:   orders,
		StockLog: memory.NewStockLogRepository(),
	}, cache.NewMemorySequence(), nil, nil, FixedClock(wednesday))

	order, err := svc.Generate(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, order)

	require.Len(t, orders.tried, 2)
	assert.NotEqual(t, orders.tried[0], orders.tried[1])
	assert.Equal(t, orders.tried[1], order.OrderID)

	stored, err := svc.Get(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, stored.OrderID)
}

type alwaysTaken struct {
	repository.PurchaseOrderRepository
}

func (alwaysTaken) CreateOrder(context.Context, *domain.PurchaseOrder) error {
	return repository.ErrDuplicate
}

func TestGenerate_GivesUpAfterSecondCollision(t *testing.T) {
	svc := NewOrderService(OrderRepos{
		Items:    memory.NewItemRepository(lowCatalog()...),
		Orders:   alwaysTaken{memory.NewPurchaseOrderRepository()},
		StockLog: memory.NewStockLogRepository(),
	}, cache.NewMemorySequence(), nil, nil, FixedClock(wednesday))

	_, err := svc.Generate(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDependency, apperrors.CodeOf(err))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}
