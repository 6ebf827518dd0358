// Package catalog owns the restaurant's menu items.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/logger"
	"restaurantcore/pkg/otel"
	"restaurantcore/pkg/store"
)

// Table holds menu item rows.
const Table = "menu_items"

// MenuItem is a dish or drink offered for sale.
type MenuItem struct {
	store.Meta
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Available   bool            `json:"available"`
}

// NewMenuItem is the input to Create. Available defaults to true.
type NewMenuItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Available   *bool           `json:"available"`
}

// MenuChanges are the editable fields of a menu item. Nil fields are left alone.
type MenuChanges struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Available   *bool            `json:"available"`
}

// Service manages menu items.
type Service struct {
	gw  store.Gateway
	log *logger.Logger
}

// NewService creates a catalog service.
func NewService(gw store.Gateway, log *logger.Logger) *Service {
	return &Service{gw: gw, log: log}
}

// Create validates and stores a menu item.
func (s *Service) Create(ctx context.Context, in NewMenuItem) (MenuItem, error) {
	ctx, span := otel.AddSpan(ctx, "catalog.create")
	defer span.End()

	const op = "catalog.create"
	name, category := strings.TrimSpace(in.Name), strings.TrimSpace(in.Category)
	switch {
	case name == "":
		return MenuItem{}, apperr.Validation(op, "name is required")
	case category == "":
		return MenuItem{}, apperr.Validation(op, "category is required")
	case !in.Price.IsPositive():
		return MenuItem{}, apperr.Validation(op, "price must be greater than 0")
	}
	available := true
	if in.Available != nil {
		available = *in.Available
	}
	item, err := store.Insert(ctx, s.gw, Table, MenuItem{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Price:       in.Price,
		Available:   available,
	})
	if err != nil {
		return MenuItem{}, err
	}
	s.log.Info(ctx, "menu item created", "menu_item_id", item.ID, "name", item.Name)
	return item, nil
}

// Get returns a live menu item by id.
func (s *Service) Get(ctx context.Context, id string) (MenuItem, error) {
	item, err := store.Get[MenuItem](ctx, s.gw, Table, id)
	if err != nil {
		return MenuItem{}, err
	}
	if item.Deleted() {
		return MenuItem{}, apperr.NotFound("catalog.get", "menu item %s not found", id)
	}
	return item, nil
}

// Lookup returns the menu items with the given ids keyed by id. Unknown ids
// are absent from the result.
func (s *Service) Lookup(ctx context.Context, ids []string) (map[string]MenuItem, error) {
	out := make(map[string]MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := store.Find[MenuItem](ctx, s.gw, Table, store.Where(store.In("id", ids...)))
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

// Available lists orderable items by name.
func (s *Service) Available(ctx context.Context) ([]MenuItem, error) {
	return store.Find[MenuItem](ctx, s.gw, Table, store.Where(store.Eq("available", true)).Sort(store.Asc("name")))
}

// ByCategory lists orderable items in one category.
func (s *Service) ByCategory(ctx context.Context, category string) ([]MenuItem, error) {
	return store.Find[MenuItem](ctx, s.gw, Table, store.Where(
		store.Eq("category", category),
		store.Eq("available", true),
	).Sort(store.Asc("name")))
}

// Search matches orderable items whose name contains term, ignoring case.
func (s *Service) Search(ctx context.Context, term string) ([]MenuItem, error) {
	items, err := s.Available(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]MenuItem, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), term) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Categories returns the distinct categories of orderable items.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	items, err := s.Available(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		if !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Update edits a live menu item. Existing orders keep their price snapshot.
func (s *Service) Update(ctx context.Context, id string, ch MenuChanges) (MenuItem, error) {
	ctx, span := otel.AddSpan(ctx, "catalog.update")
	defer span.End()

	const op = "catalog.update"
	patch := store.Patch{}
	if ch.Name != nil {
		name := strings.TrimSpace(*ch.Name)
		if name == "" {
			return MenuItem{}, apperr.Validation(op, "name must not be empty")
		}
		patch["name"] = name
	}
	if ch.Category != nil {
		category := strings.TrimSpace(*ch.Category)
		if category == "" {
			return MenuItem{}, apperr.Validation(op, "category must not be empty")
		}
		patch["category"] = category
	}
	if ch.Description != nil {
		patch["description"] = strings.TrimSpace(*ch.Description)
	}
	if ch.Price != nil {
		if !ch.Price.IsPositive() {
			return MenuItem{}, apperr.Validation(op, "price must be greater than 0")
		}
		patch["price"] = *ch.Price
	}
	if ch.Available != nil {
		patch["available"] = *ch.Available
	}
	cur, err := s.Get(ctx, id)
	if err != nil || len(patch) == 0 {
		return cur, err
	}
	item, err := store.Update[MenuItem](ctx, s.gw, Table, id, patch, cur.Version)
	if errors.Is(err, store.ErrVersionConflict) {
		return MenuItem{}, apperr.ConcurrentModification(op, err)
	}
	if err != nil {
		return MenuItem{}, err
	}
	s.log.Info(ctx, "menu item updated", "menu_item_id", id, "fields", len(patch))
	return item, nil
}

// SetAvailability toggles whether an item can be ordered.
func (s *Service) SetAvailability(ctx context.Context, id string, available bool) (MenuItem, error) {
	return s.Update(ctx, id, MenuChanges{Available: &available})
}

// SetPrice changes the live price. Existing orders keep their snapshot.
func (s *Service) SetPrice(ctx context.Context, id string, price decimal.Decimal) (MenuItem, error) {
	return s.Update(ctx, id, MenuChanges{Price: &price})
}

// Delete soft-deletes an item; order history keeps referencing it.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.gw.SoftDelete(ctx, Table, id)
	return err
}
