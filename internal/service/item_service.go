package service

import (
	"context"
	"errors"
	"strings"

	"github.com/andresuchdata/stockcount/internal/cache"
	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/andresuchdata/stockcount/internal/stock"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ItemInput is the writable part of an item.
type ItemInput struct {
	Name           string  `json:"name" validate:"required"`
	Category       string  `json:"category"`
	Unit           string  `json:"unit"`
	MinStock       float64 `json:"min_stock" validate:"gte=0"`
	MaxStock       float64 `json:"max_stock" validate:"gte=0"`
	CurrentQty     float64 `json:"current_qty" validate:"gte=0"`
	CheckFrequency string  `json:"check_frequency"`
	Status         string  `json:"status"`
	Price          float64 `json:"price" validate:"gte=0"`
	Supplier       string  `json:"supplier"`
	ImageRef       string  `json:"image_ref"`
	Notes          string  `json:"notes"`
}

type ItemService struct {
	items repository.ItemRepository
	cache cache.DashboardCache
	now   Clock
}

func NewItemService(items repository.ItemRepository, cacheImpl cache.DashboardCache, now Clock) *ItemService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDashboardCache()
	}
	return &ItemService{items: items, cache: cacheImpl, now: now}
}

// NewItemID returns an id of the form ITEM-XXXXXXXX.
func NewItemID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ITEM-" + strings.ToUpper(raw[:8])
}

func (s *ItemService) List(ctx context.Context) ([]domain.Item, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "list items")
	}
	return items, nil
}

// ListByCategory groups active items by display category.
func (s *ItemService) ListByCategory(ctx context.Context) (map[string][]domain.Item, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string][]domain.Item{}
	for _, it := range items {
		if !it.Active() {
			continue
		}
		category := CategoryOf(it)
		out[category] = append(out[category], it)
	}
	return out, nil
}

func (s *ItemService) Get(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.items.GetItem(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "item %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "get item")
	}
	return item, nil
}

func (s *ItemService) Create(ctx context.Context, actor domain.Actor, in ItemInput) (*domain.Item, error) {
	if err := ensureManager(actor, "create items"); err != nil {
		return nil, err
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	now := s.now()
	item := domain.Item{ID: NewItemID(), LastUpdatedAt: &now}
	if err := applyInput(&item, in); err != nil {
		return nil, err
	}

	if err := s.items.CreateItem(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Newf(apperrors.CodeStateConflict, "item %s already exists", item.ID)
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "create item")
	}
	s.invalidate(ctx)

	log.Info().Str("item_id", item.ID).Str("actor", actor.StaffID).Msg("item: created")
	return &item, nil
}

// Update replaces the writable fields of an item. The id and the recount
// timestamp are kept.
func (s *ItemService) Update(ctx context.Context, actor domain.Actor, id string, in ItemInput) (*domain.Item, error) {
	if err := ensureManager(actor, "update items"); err != nil {
		return nil, err
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyInput(item, in); err != nil {
		return nil, err
	}
	now := s.now()
	item.LastUpdatedAt = &now

	if err := s.items.UpdateItem(ctx, *item); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "item %s not found", id)
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "update item")
	}
	s.invalidate(ctx)

	log.Info().Str("item_id", id).Str("actor", actor.StaffID).Msg("item: updated")
	return item, nil
}

func (s *ItemService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := ensureManager(actor, "delete items"); err != nil {
		return err
	}
	if err := s.items.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.Newf(apperrors.CodeNotFound, "item %s not found", id)
		}
		return apperrors.Wrap(apperrors.CodeDependency, err, "delete item")
	}
	s.invalidate(ctx)

	log.Info().Str("item_id", id).Str("actor", actor.StaffID).Msg("item: deleted")
	return nil
}

// LowStock lists low items, most urgent first, with their restock cost.
func (s *ItemService) LowStock(ctx context.Context) ([]domain.StockLine, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return lines(stock.LowStock(items)), nil
}

// HighStock lists overstocked items in catalog order.
func (s *ItemService) HighStock(ctx context.Context) ([]domain.StockLine, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return lines(stock.HighStock(items)), nil
}

func lines(classified []stock.Classified) []domain.StockLine {
	out := make([]domain.StockLine, 0, len(classified))
	for _, c := range classified {
		out = append(out, c.Line())
	}
	return out
}

func (s *ItemService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("item: cache invalidate failed")
	}
}

func validateInput(in *ItemInput) error {
	in.Name = strings.TrimSpace(in.Name)
	return validateStruct(in)
}

func applyInput(item *domain.Item, in ItemInput) error {
	status, ok := domain.ParseItemStatus(in.Status)
	if !ok {
		return apperrors.Newf(apperrors.CodeValidation, "unknown item status %q", in.Status).
			WithDetails(map[string]string{"status": "must be one of active inactive"})
	}
	item.Name = in.Name
	item.Category = strings.TrimSpace(in.Category)
	item.Unit = strings.TrimSpace(in.Unit)
	item.MinStock = domain.SafeQty(in.MinStock)
	item.MaxStock = domain.SafeQty(in.MaxStock)
	item.CurrentQty = domain.SafeQty(in.CurrentQty)
	item.CheckFrequency = domain.ParseCheckFrequency(in.CheckFrequency)
	item.Status = status
	item.Price = domain.SafePrice(in.Price)
	item.Supplier = strings.TrimSpace(in.Supplier)
	item.ImageRef = in.ImageRef
	item.Notes = in.Notes
	return nil
}
