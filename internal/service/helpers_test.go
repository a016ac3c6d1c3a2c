package service

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
)

var zone = time.FixedZone("MYT", 8*3600)

// Wednesday 2026-10-14 09:30 site time.
var wednesday = time.Date(2026, time.October, 14, 9, 30, 0, 0, zone)

var errOffline = errors.New("store offline")

func tp(t time.Time) *time.Time { return &t }

func manager() domain.Actor { return domain.Actor{StaffID: "mgr-1", Role: domain.RoleManager} }

func staffer() domain.Actor { return domain.Actor{StaffID: "st-1", Role: domain.RoleStaff} }

func activeItem(id, name string, qty, min, max float64) domain.Item {
	return domain.Item{
		ID:             id,
		Name:           name,
		Category:       "Dairy",
		Unit:           "kg",
		CurrentQty:     qty,
		MinStock:       min,
		MaxStock:       max,
		Status:         domain.ItemActive,
		CheckFrequency: domain.Daily(),
	}
}

type failingAlerts struct{}

func (failingAlerts) AppendAlerts(context.Context, []domain.AlertEvent) error { return errOffline }

func (failingAlerts) ListAlerts(context.Context, int) ([]domain.AlertEvent, error) {
	return nil, errOffline
}

type failingItems struct {
	repository.ItemRepository
}

func (failingItems) ListItems(context.Context) ([]domain.Item, error) { return nil, errOffline }

type failingOrders struct {
	repository.PurchaseOrderRepository
}

func (failingOrders) ListOrders(context.Context, domain.POStatus) ([]domain.PurchaseOrder, error) {
	return nil, errOffline
}

type failingRecounts struct {
	repository.RecountRepository
}

func (failingRecounts) ListRecountsSince(context.Context, time.Time) ([]domain.RecountRecord, error) {
	return nil, errOffline
}

type countingCache struct {
	invalidations int
	stored        map[string]*domain.DashboardReport
}

func (c *countingCache) Get(_ context.Context, date string) (*domain.DashboardReport, bool, error) {
	r, ok := c.stored[date]
	return r, ok, nil
}

func (c *countingCache) Set(_ context.Context, date string, report *domain.DashboardReport) error {
	if c.stored == nil {
		c.stored = map[string]*domain.DashboardReport{}
	}
	c.stored[date] = report
	return nil
}

func (c *countingCache) InvalidateAll(context.Context) error {
	c.invalidations++
	c.stored = nil
	return nil
}
