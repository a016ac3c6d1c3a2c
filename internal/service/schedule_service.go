package service

import (
	"context"
	"strings"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/andresuchdata/stockcount/internal/stock"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
)

// UncategorizedLabel groups items with a blank category.
const UncategorizedLabel = "Uncategorized"

type ScheduleService struct {
	items repository.ItemRepository
	now   Clock
}

func NewScheduleService(items repository.ItemRepository, now Clock) *ScheduleService {
	return &ScheduleService{items: items, now: now}
}

// TodayChecklist lists the active items due for recount today. Categories
// with nothing due are reported as skipped together with the reason.
func (s *ScheduleService) TodayChecklist(ctx context.Context, staffID string) (*domain.Checklist, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "list items")
	}
	return BuildChecklist(items, staffID, s.now()), nil
}

// BuildChecklist is the pure part of TodayChecklist.
func BuildChecklist(items []domain.Item, staffID string, today time.Time) *domain.Checklist {
	list := &domain.Checklist{
		StaffID:           staffID,
		Date:              stock.FormatDate(today),
		Items:             []domain.ChecklistItem{},
		Categories:        map[string]*domain.ChecklistCategory{},
		SkippedCategories: map[string]domain.SkippedCategory{},
	}

	for _, raw := range items {
		if !raw.Active() {
			continue
		}
		item := raw.Sanitized()
		category := CategoryOf(item)

		if !stock.IsDueToday(item, today) {
			if _, due := list.Categories[category]; !due {
				list.SkippedCategories[category] = domain.SkippedCategory{
					Frequency: item.CheckFrequency.String(),
					Reason:    stock.SkipReason(item.CheckFrequency),
				}
			}
			continue
		}

		checked := stock.CheckedToday(item, today)
		list.Items = append(list.Items, domain.ChecklistItem{
			ItemID:     item.ID,
			Name:       item.Name,
			Category:   category,
			Unit:       item.Unit,
			CurrentQty: item.CurrentQty,
			MinStock:   item.MinStock,
			MaxStock:   item.MaxStock,
			Frequency:  item.CheckFrequency.String(),
			Checked:    checked,
		})

		cat, ok := list.Categories[category]
		if !ok {
			cat = &domain.ChecklistCategory{Frequency: item.CheckFrequency.String()}
			list.Categories[category] = cat
			delete(list.SkippedCategories, category)
		}
		cat.Count++
		list.TodayTotal++
		if checked {
			cat.Checked++
			list.TodayChecked++
		}
	}
	return list
}

// CategoryOf is the display category of item.
func CategoryOf(item domain.Item) string {
	if c := strings.TrimSpace(item.Category); c != "" {
		return c
	}
	return UncategorizedLabel
}
