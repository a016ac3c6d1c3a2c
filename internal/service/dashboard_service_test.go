package service

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository/memory"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dashboardCatalog() []domain.Item {
	low := activeItem("A", "Milk", 2, 10, 20)
	low.Price = 3
	low.LastCheckedAt = tp(wednesday.Add(-time.Hour))
	high := activeItem("B", "Flour", 40, 5, 30)
	high.Category = "Dry"
	high.Price = 1.1
	normal := activeItem("C", "Sugar", 10, 5, 30)
	normal.Category = ""
	normal.CheckFrequency = domain.Weekly()
	off := activeItem("D", "Old", 0, 10, 0)
	off.Status = domain.ItemInactive
	return []domain.Item{low, high, normal, off}
}

func TestBuildDashboard_Counts(t *testing.T) {
	orders := []domain.PurchaseOrder{
		{OrderID: "1", Status: domain.POPending, Lines: []domain.POLine{{LineCost: 10.5}, {LineCost: 2}}},
		{OrderID: "2", Status: domain.POPending, Lines: []domain.POLine{{LineCost: 1.25}}},
		{OrderID: "3", Status: domain.POOrdered, Lines: []domain.POLine{{LineCost: 99}}},
	}

	r := BuildDashboard(dashboardCatalog(), orders, nil, wednesday, 7)

	assert.Equal(t, "2026-10-14", r.Date)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 1, r.LowCount)
	assert.Equal(t, 1, r.HighCount)
	assert.Equal(t, 1, r.NormalCount)
	assert.Equal(t, 50.0, r.TotalValue)
	// Weekly item is not due on a Wednesday.
	assert.Equal(t, 2, r.TodayTotal)
	assert.Equal(t, 1, r.TodayChecked)
	assert.Equal(t, 50, r.CheckProgress)
	assert.Equal(t, 2, r.PendingPO)
	assert.Equal(t, 13.75, r.PendingCost)
	assert.Equal(t, []string{"Milk"}, r.LowTop)

	require.Contains(t, r.Categories, "Dairy")
	assert.Equal(t, domain.CategoryStats{Total: 1, Low: 1}, *r.Categories["Dairy"])
	assert.Equal(t, domain.CategoryStats{Total: 1, High: 1}, *r.Categories["Dry"])
	assert.Equal(t, domain.CategoryStats{Total: 1}, *r.Categories[UncategorizedLabel])
}

func TestBuildDashboard_NothingDueIsComplete(t *testing.T) {
	r := BuildDashboard(nil, nil, nil, wednesday, 7)
	assert.Equal(t, 100, r.CheckProgress)
	assert.Empty(t, r.RecentHistory)
	assert.NotNil(t, r.Categories)
}

func TestRecentHistory_GroupsNewestFirst(t *testing.T) {
	recs := []domain.RecountRecord{
		{Timestamp: wednesday.Add(-time.Hour), StaffID: "a", ItemID: "1"},
		{Timestamp: wednesday.Add(-30 * time.Minute), StaffID: "b", ItemID: "2", Anomaly: true},
		{Timestamp: wednesday.Add(-30 * time.Minute), StaffID: "b", ItemID: "3"},
		{Timestamp: wednesday.AddDate(0, 0, -1), StaffID: "a", ItemID: "1"},
		{Timestamp: wednesday.AddDate(0, 0, -9), StaffID: "a", ItemID: "1"},
	}

	days := RecentHistory(recs, wednesday, 7)

	require.Len(t, days, 2)
	assert.Equal(t, domain.HistoryDay{Date: "2026-10-14", DistinctStaff: 2, ItemCount: 3, AnomalyCount: 1}, days[0])
	assert.Equal(t, domain.HistoryDay{Date: "2026-10-13", DistinctStaff: 1, ItemCount: 1}, days[1])
}

func TestAggregate_ToleratesMissingCollaborators(t *testing.T) {
	svc := NewDashboardService(DashboardRepos{
		Items:    memory.NewItemRepository(dashboardCatalog()...),
		Orders:   failingOrders{},
		Recounts: failingRecounts{},
	}, nil, "Permas Jaya", 7, FixedClock(wednesday))

	r, err := svc.Aggregate(context.Background(), wednesday)
	require.NoError(t, err)
	assert.Equal(t, "Permas Jaya", r.Site)
	assert.Equal(t, 3, r.Total)
	assert.Zero(t, r.PendingPO)
	assert.Empty(t, r.RecentHistory)

	svc = NewDashboardService(DashboardRepos{Items: memory.NewItemRepository(dashboardCatalog()...)}, nil, "", 0, FixedClock(wednesday))
	r, err = svc.Aggregate(context.Background(), wednesday)
	require.NoError(t, err)
	assert.Equal(t, 1, r.LowCount)
}

func TestAggregate_CatalogFailureIsDependencyError(t *testing.T) {
	svc := NewDashboardService(DashboardRepos{Items: failingItems{}}, nil, "", 7, FixedClock(wednesday))

	_, err := svc.Aggregate(context.Background(), wednesday)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDependency, apperrors.CodeOf(err))
}

func TestAggregate_UsesCache(t *testing.T) {
	items := memory.NewItemRepository(dashboardCatalog()...)
	c := &countingCache{}
	svc := NewDashboardService(DashboardRepos{Items: items}, c, "", 7, FixedClock(wednesday))
	ctx := context.Background()

	first, err := svc.Aggregate(ctx, wednesday)
	require.NoError(t, err)
	require.NoError(t, items.DeleteItem(ctx, "A"))

	cached, err := svc.Aggregate(ctx, wednesday)
	require.NoError(t, err)
	assert.Same(t, first, cached)

	require.NoError(t, c.InvalidateAll(ctx))
	fresh, err := svc.Aggregate(ctx, wednesday)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Total)
}

func TestAggregate_DegradedReportIsNotCached(t *testing.T) {
	items := memory.NewItemRepository(dashboardCatalog()...)
	c := &countingCache{}
	ctx := context.Background()

	degraded := NewDashboardService(DashboardRepos{Items: items, Orders: failingOrders{}}, c, "", 7, FixedClock(wednesday))
	r, err := degraded.Aggregate(ctx, wednesday)
	require.NoError(t, err)
	assert.Zero(t, r.PendingPO)
	assert.Empty(t, c.stored)

	orders := memory.NewPurchaseOrderRepository()
	require.NoError(t, orders.CreateOrder(ctx, &domain.PurchaseOrder{
		OrderID:   "PO-20261014-090000-001",
		CreatedAt: wednesday.Add(-time.Hour),
		Status:    domain.POPending,
		Lines:     []domain.POLine{{ItemID: "A", NeededQty: 18, Price: 3, LineCost: 54}},
	}))

	recovered := NewDashboardService(DashboardRepos{Items: items, Orders: orders}, c, "", 7, FixedClock(wednesday))
	r, err = recovered.Aggregate(ctx, wednesday)
	require.NoError(t, err)
	assert.Equal(t, 1, r.PendingPO)
	assert.Contains(t, c.stored, "2026-10-14")
}

func TestCheckProgress(t *testing.T) {
	recounts := memory.NewRecountRepository()
	ctx := context.Background()
	require.NoError(t, recounts.AppendRecounts(ctx, []domain.RecountRecord{
		{Timestamp: wednesday.AddDate(0, 0, -1), StaffID: "old", ItemID: "A"},
		{Timestamp: wednesday.Add(-2 * time.Hour), StaffID: "st-1", ItemID: "A"},
		{Timestamp: wednesday.Add(-time.Hour), StaffID: "st-2", ItemID: "A"},
	}))
	svc := NewDashboardService(DashboardRepos{
		Items:    memory.NewItemRepository(dashboardCatalog()...),
		Recounts: recounts,
	}, nil, "", 7, FixedClock(wednesday))

	p, err := svc.CheckProgress(ctx, wednesday)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-14", p.Date)
	assert.Equal(t, 1, p.Done)
	assert.Equal(t, 2, p.Total)
	assert.Equal(t, 50, p.Percent)
	assert.Equal(t, "st-2", p.LastStaff)
	assert.Equal(t, "08:30", p.LastTime)
}
