package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/stockcount/internal/cache"
	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/andresuchdata/stockcount/internal/stock"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
	"github.com/andresuchdata/stockcount/pkg/metrics"
	"github.com/rs/zerolog/log"
)

const (
	// SystemActor signs orders generated by scheduled jobs.
	SystemActor = "System"
	// UnassignedSupplier groups lines whose item has no supplier.
	UnassignedSupplier = "Unassigned"

	orderIDLayout = "20060102-150405"
	// A second id is tried when another process already took the first.
	createAttempts = 2
)

// OrderRepos bundles the tables the order service writes to.
type OrderRepos struct {
	Items    repository.ItemRepository
	Orders   repository.PurchaseOrderRepository
	StockLog repository.StockLogRepository
}

type OrderService struct {
	repos    OrderRepos
	sequence cache.OrderSequence
	cache    cache.DashboardCache
	metrics  *metrics.StockMetrics
	now      Clock
}

func NewOrderService(repos OrderRepos, seq cache.OrderSequence, cacheImpl cache.DashboardCache, m *metrics.StockMetrics, now Clock) *OrderService {
	if seq == nil {
		seq = cache.NewMemorySequence()
	}
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDashboardCache()
	}
	return &OrderService{repos: repos, sequence: seq, cache: cacheImpl, metrics: m, now: now}
}

// Generate builds one pending order from every currently low item, most
// urgent line first. It returns nil when no item is low.
func (s *OrderService) Generate(ctx context.Context, createdBy string) (*domain.PurchaseOrder, error) {
	items, err := s.repos.Items.ListItems(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "list items")
	}

	low := stock.LowStock(items)
	if len(low) == 0 {
		log.Info().Msg("order: no low items, nothing to order")
		return nil, nil
	}

	at := s.now()
	if strings.TrimSpace(createdBy) == "" {
		createdBy = SystemActor
	}

	order := &domain.PurchaseOrder{
		CreatedAt: at,
		CreatedBy: createdBy,
		Status:    domain.POPending,
		Lines:     make([]domain.POLine, 0, len(low)),
	}
	for _, c := range low {
		it := c.Item
		order.Lines = append(order.Lines, domain.POLine{
			ItemID:     it.ID,
			ItemName:   it.Name,
			CurrentQty: it.CurrentQty,
			NeededQty:  c.Health.DeficitQty,
			Unit:       it.Unit,
			Price:      it.Price,
			LineCost:   stock.LineCost(c.Health.DeficitQty, it.Price),
			Supplier:   it.Supplier,
		})
	}

	if err := s.create(ctx, order); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.metrics.IncOrder(string(domain.POPending))

	log.Info().
		Str("order_id", order.OrderID).
		Int("lines", len(order.Lines)).
		Float64("total_cost", stock.RoundMoney(order.TotalCost())).
		Msg("order: generated")
	return order, nil
}

// create stores order under a fresh id. An id already taken by another
// process sharing the store is replaced and the insert retried.
func (s *OrderService) create(ctx context.Context, order *domain.PurchaseOrder) error {
	var err error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		order.OrderID, err = s.nextOrderID(ctx, order.CreatedAt)
		if err != nil {
			return err
		}
		err = s.repos.Orders.CreateOrder(ctx, order)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		log.Warn().Str("order_id", order.OrderID).Int("attempt", attempt).Msg("order: id taken, retrying")
	}
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "create order")
	}
	return nil
}

func (s *OrderService) nextOrderID(ctx context.Context, at time.Time) (string, error) {
	n, err := s.sequence.Next(ctx, at)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeDependency, err, "allocate order sequence")
	}
	return fmt.Sprintf("PO-%s-%03d", at.Format(orderIDLayout), n), nil
}

func (s *OrderService) Get(ctx context.Context, orderID string) (*domain.PurchaseOrder, error) {
	order, err := s.repos.Orders.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "order %s not found", orderID)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "get order")
	}
	return order, nil
}

// List returns orders newest first, optionally filtered by a status label.
func (s *OrderService) List(ctx context.Context, status string) ([]domain.PurchaseOrder, error) {
	var filter domain.POStatus
	if strings.TrimSpace(status) != "" {
		parsed, ok := domain.ParsePOStatus(status)
		if !ok {
			return nil, apperrors.Newf(apperrors.CodeValidation, "unknown order status %q", status)
		}
		filter = parsed
	}
	orders, err := s.repos.Orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

// StatusChange is the outcome of UpdateStatus. Applied is false when the
// order already had the requested status.
type StatusChange struct {
	Order    *domain.PurchaseOrder `json:"order"`
	Applied  bool                  `json:"applied"`
	Credited int                   `json:"credited_lines"`
}

// UpdateStatus moves an order forward through pending, ordered, received.
// The move is one conditional write, so concurrent callers cannot both
// apply it and stock is credited at most once per order.
func (s *OrderService) UpdateStatus(ctx context.Context, actor domain.Actor, orderID, target string) (*StatusChange, error) {
	if err := ensureManager(actor, "change order status"); err != nil {
		return nil, err
	}
	to, ok := domain.ParsePOStatus(target)
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown order status %q", target)
	}

	at := s.now()
	applied, err := s.repos.Orders.TransitionStatus(ctx, orderID, domain.PredecessorsOf(to), to, at)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "order %s not found", orderID)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "transition order status")
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !applied {
		if order.Status == to {
			return &StatusChange{Order: order}, nil
		}
		return nil, apperrors.Newf(apperrors.CodeStateConflict,
			"order %s is %s and cannot move back to %s",
			orderID, domain.POStatusLabel(order.Status), domain.POStatusLabel(to))
	}

	change := &StatusChange{Order: order, Applied: true}
	s.metrics.IncOrder(string(to))
	log.Info().
		Str("order_id", orderID).
		Str("status", string(to)).
		Str("actor", actor.StaffID).
		Msg("order: status changed")

	if to == domain.POReceived {
		credited, err := s.creditStock(ctx, order, actor, at)
		change.Credited = credited
		if err != nil {
			return change, err
		}
	}
	s.invalidate(ctx)
	return change, nil
}

// creditStock adds every line's needed quantity to its item. It runs once,
// after the transition into received applied.
func (s *OrderService) creditStock(ctx context.Context, order *domain.PurchaseOrder, actor domain.Actor, at time.Time) (int, error) {
	var (
		entries []domain.StockLogEntry
		failed  []string
	)
	for _, line := range order.Lines {
		qty := domain.SafeQty(line.NeededQty)
		if qty == 0 {
			continue
		}
		if err := s.repos.Items.AdjustQty(ctx, line.ItemID, qty, at); err != nil {
			log.Error().
				Err(err).
				Str("order_id", order.OrderID).
				Str("item_id", line.ItemID).
				Msg("order: stock credit failed")
			failed = append(failed, line.ItemID)
			continue
		}
		entries = append(entries, domain.StockLogEntry{
			Timestamp: at,
			ItemID:    line.ItemID,
			ItemName:  line.ItemName,
			Kind:      domain.StockLogPOReceived,
			Qty:       qty,
			Actor:     actor.StaffID,
			Note:      order.OrderID,
		})
	}

	if len(entries) > 0 && s.repos.StockLog != nil {
		if err := s.repos.StockLog.AppendStockLog(ctx, entries); err != nil {
			log.Warn().Err(err).Str("order_id", order.OrderID).Msg("order: stock log append failed")
		}
	}
	if len(failed) > 0 {
		return len(entries), apperrors.Newf(apperrors.CodeDependency,
			"order %s received but stock credit failed for %s", order.OrderID, strings.Join(failed, ", ")).
			WithDetails(map[string]any{"failed_items": failed})
	}
	return len(entries), nil
}

func (s *OrderService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("order: cache invalidate failed")
	}
}

// Text renders an order as plain text grouped by supplier, suppliers in
// order of first appearance.
func (s *OrderService) Text(order *domain.PurchaseOrder) string {
	return OrderText(order)
}

func OrderText(order *domain.PurchaseOrder) string {
	if order == nil || len(order.Lines) == 0 {
		return "No items need ordering."
	}

	var suppliers []string
	bySupplier := map[string][]domain.POLine{}
	for _, line := range order.Lines {
		name := strings.TrimSpace(line.Supplier)
		if name == "" {
			name = UnassignedSupplier
		}
		if _, ok := bySupplier[name]; !ok {
			suppliers = append(suppliers, name)
		}
		bySupplier[name] = append(bySupplier[name], line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Purchase Order %s\n", order.OrderID)
	fmt.Fprintf(&b, "Created: %s\n", order.CreatedAt.Format("2006-01-02 15:04"))
	for _, name := range suppliers {
		fmt.Fprintf(&b, "\n[%s]\n", name)
		for _, line := range bySupplier[name] {
			fmt.Fprintf(&b, "  · %s %s%s ≈RM%.2f\n", line.ItemName, formatQty(line.NeededQty), line.Unit, line.LineCost)
		}
	}
	fmt.Fprintf(&b, "\nTotal: RM %.2f", stock.RoundMoney(order.TotalCost()))
	return b.String()
}

// SupplierTotals sums line costs per supplier, sorted by supplier name.
func SupplierTotals(order *domain.PurchaseOrder) []SupplierTotal {
	totals := map[string]float64{}
	for _, line := range order.Lines {
		name := strings.TrimSpace(line.Supplier)
		if name == "" {
			name = UnassignedSupplier
		}
		totals[name] = stock.SumMoney(totals[name], line.LineCost)
	}
	out := make([]SupplierTotal, 0, len(totals))
	for name, total := range totals {
		out = append(out, SupplierTotal{Supplier: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Supplier < out[j].Supplier })
	return out
}

type SupplierTotal struct {
	Supplier string  `json:"supplier"`
	Total    float64 `json:"total"`
}
