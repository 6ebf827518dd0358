package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/catalog"
	"restaurantcore/pkg/events"
	"restaurantcore/pkg/logger"
	"restaurantcore/pkg/otel"
	"restaurantcore/pkg/store"
)

// MenuLookup resolves linked menu items for category breakdowns.
type MenuLookup interface {
	Lookup(ctx context.Context, ids []string) (map[string]catalog.MenuItem, error)
}

// Ledger applies stock movements.
type Ledger struct {
	gw   store.Gateway
	menu MenuLookup
	pub  events.Publisher
	log  *logger.Logger
	now  func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMenu enables per-category stats.
func WithMenu(m MenuLookup) Option { return func(l *Ledger) { l.menu = m } }

// WithPublisher sets where movement and low-stock events go.
func WithPublisher(p events.Publisher) Option { return func(l *Ledger) { l.pub = p } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// NewLedger creates a ledger over gw.
func NewLedger(gw store.Gateway, log *logger.Logger, opts ...Option) *Ledger {
	l := &Ledger{gw: gw, pub: events.Nop{}, log: log, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// CreateItem stores a new item with defaults for omitted fields.
func (l *Ledger) CreateItem(ctx context.Context, in NewItem) (Item, error) {
	ctx, span := otel.AddSpan(ctx, "inventory.create_item")
	defer span.End()

	const op = "inventory.create_item"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Item{}, apperr.Validation(op, "name is required")
	}
	if in.Quantity < 0 {
		return Item{}, apperr.Validation(op, "quantity must not be negative")
	}
	it := Item{
		Name:        name,
		MenuItemID:  in.MenuItemID,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		MinQuantity: DefaultMinQuantity,
		CostPerUnit: decimal.Zero,
		LastUpdated: l.now().UTC(),
	}
	if it.Unit == "" {
		it.Unit = DefaultUnit
	}
	if in.MinQuantity != nil {
		if *in.MinQuantity < 0 {
			return Item{}, apperr.Validation(op, "min_quantity must not be negative")
		}
		it.MinQuantity = *in.MinQuantity
	}
	if in.CostPerUnit != nil {
		if in.CostPerUnit.IsNegative() {
			return Item{}, apperr.Validation(op, "cost_per_unit must not be negative")
		}
		it.CostPerUnit = *in.CostPerUnit
	}
	created, err := store.Insert(ctx, l.gw, ItemsTable, it)
	if err != nil {
		return Item{}, err
	}
	l.log.Info(ctx, "inventory item created", "item_id", created.ID, "name", created.Name, "quantity", created.Quantity)
	return created, nil
}

// Get returns a live item.
func (l *Ledger) Get(ctx context.Context, id string) (Item, error) {
	it, err := store.Get[Item](ctx, l.gw, ItemsTable, id)
	if err != nil {
		return Item{}, err
	}
	if it.Deleted() {
		return Item{}, apperr.NotFound("inventory.get", "item %s not found", id)
	}
	return it, nil
}

// List returns every live item by name.
func (l *Ledger) List(ctx context.Context) ([]Item, error) {
	return store.Find[Item](ctx, l.gw, ItemsTable, store.Query{}.Sort(store.Asc("name")))
}

// UpdateItem edits descriptive fields.
func (l *Ledger) UpdateItem(ctx context.Context, id string, ch ItemChanges) (Item, error) {
	const op = "inventory.update_item"
	patch := store.Patch{}
	if ch.Name != nil {
		name := strings.TrimSpace(*ch.Name)
		if name == "" {
			return Item{}, apperr.Validation(op, "name must not be empty")
		}
		patch["name"] = name
	}
	if ch.MenuItemID != nil {
		patch["menu_item_id"] = *ch.MenuItemID
	}
	if ch.Unit != nil {
		patch["unit"] = *ch.Unit
	}
	if ch.MinQuantity != nil {
		if *ch.MinQuantity < 0 {
			return Item{}, apperr.Validation(op, "min_quantity must not be negative")
		}
		patch["min_quantity"] = *ch.MinQuantity
	}
	if ch.CostPerUnit != nil {
		if ch.CostPerUnit.IsNegative() {
			return Item{}, apperr.Validation(op, "cost_per_unit must not be negative")
		}
		patch["cost_per_unit"] = *ch.CostPerUnit
	}
	if len(patch) == 0 {
		return l.Get(ctx, id)
	}
	patch["last_updated"] = l.now().UTC()
	var upd Item
	err := store.WithRetry(ctx, op, store.DefaultAttempts, func(ctx context.Context) error {
		cur, err := l.Get(ctx, id)
		if err != nil {
			return err
		}
		upd, err = store.Update[Item](ctx, l.gw, ItemsTable, id, patch, cur.Version)
		return err
	})
	if err != nil {
		return Item{}, err
	}
	return upd, nil
}

// DeleteItem soft-deletes an item. Its movements stay.
func (l *Ledger) DeleteItem(ctx context.Context, id string) error {
	_, err := l.gw.SoftDelete(ctx, ItemsTable, id)
	return err
}

// RecordMovement persists an immutable movement and applies it to the item.
// When the movement row is stored but applying it fails, the returned error
// names the apply step and the movement id.
func (l *Ledger) RecordMovement(ctx context.Context, in MovementInput) (Movement, error) {
	ctx, span := otel.AddSpan(ctx, "inventory.record_movement",
		attribute.String("item_id", in.ItemID), attribute.String("type", string(in.Type)))
	defer span.End()

	const op = "inventory.record_movement"
	switch {
	case in.ItemID == "":
		return Movement{}, apperr.Validation(op, "item_id is required")
	case in.Quantity <= 0:
		return Movement{}, apperr.Validation(op, "quantity must be greater than 0")
	case !in.Type.Valid():
		return Movement{}, apperr.Validation(op, "type must be %q or %q", In, Out)
	}
	if _, err := l.Get(ctx, in.ItemID); err != nil {
		return Movement{}, err
	}

	mv, err := store.Insert(ctx, l.gw, MovementsTable, Movement{
		ItemID:   in.ItemID,
		Quantity: in.Quantity,
		Type:     in.Type,
		Reason:   in.Reason,
		UserID:   in.UserID,
	})
	if err != nil {
		return Movement{}, apperr.Step(op, "insert movement", err)
	}

	mode := ModeAdd
	if in.Type == Out {
		mode = ModeSubtract
	}
	if _, err := l.SetQuantity(ctx, in.ItemID, in.Quantity, mode); err != nil {
		l.log.Error(ctx, "movement stored but not applied", "movement_id", mv.ID, "item_id", in.ItemID, "error", err)
		return mv, apperr.Step(op, fmt.Sprintf("apply movement %s", mv.ID), err)
	}
	events.Emit(ctx, l.pub, l.log, events.New(events.InventoryMovementRecorded, in.ItemID, mv))
	return mv, nil
}

// SetQuantity sets, adds or subtracts stock with a version precondition,
// retrying on conflict. The result never goes below zero.
func (l *Ledger) SetQuantity(ctx context.Context, itemID string, quantity int, mode Mode) (Item, error) {
	ctx, span := otel.AddSpan(ctx, "inventory.set_quantity", attribute.String("item_id", itemID))
	defer span.End()

	const op = "inventory.set_quantity"
	if !mode.Valid() {
		return Item{}, apperr.Validation(op, "mode must be set, add or subtract")
	}
	if mode != ModeSet && quantity < 0 {
		return Item{}, apperr.Validation(op, "quantity must not be negative")
	}

	var before, after Item
	err := store.WithRetry(ctx, op, store.DefaultAttempts, func(ctx context.Context) error {
		cur, err := l.Get(ctx, itemID)
		if err != nil {
			return err
		}
		next := mode.Apply(cur.Quantity, quantity)
		upd, err := store.Update[Item](ctx, l.gw, ItemsTable, itemID, store.Patch{
			"quantity":     next,
			"last_updated": l.now().UTC(),
		}, cur.Version)
		if err != nil {
			return err
		}
		before, after = cur, upd
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	l.log.Debug(ctx, "quantity updated", "item_id", itemID, "mode", mode, "from", before.Quantity, "to", after.Quantity)
	if !before.Low() && after.Low() {
		l.log.Warn(ctx, "item reached low stock", "item_id", itemID, "quantity", after.Quantity, "min_quantity", after.MinQuantity)
		events.Emit(ctx, l.pub, l.log, events.New(events.InventoryLowStock, itemID, after))
	}
	return after, nil
}

// LowStock lists items with quantity at or below threshold, lowest first.
func (l *Ledger) LowStock(ctx context.Context, threshold int) ([]Item, error) {
	return store.Find[Item](ctx, l.gw, ItemsTable,
		store.Where(store.Lte("quantity", threshold)).Sort(store.Asc("quantity"), store.Asc("name")))
}

// OutOfStock lists items with no stock, by name.
func (l *Ledger) OutOfStock(ctx context.Context) ([]Item, error) {
	return store.Find[Item](ctx, l.gw, ItemsTable,
		store.Where(store.Eq("quantity", 0)).Sort(store.Asc("name")))
}

// PurchaseOrder suggests reorders for items at or below threshold. Nothing
// is persisted.
func (l *Ledger) PurchaseOrder(ctx context.Context, threshold int) (PurchaseOrder, error) {
	items, err := l.LowStock(ctx, threshold)
	if err != nil {
		return PurchaseOrder{}, err
	}
	return BuildPurchaseOrder(uuid.NewString(), items, l.now().UTC()), nil
}

// Stats summarises the current stock.
func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	items, err := l.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	categories := map[string]string{}
	if l.menu != nil {
		var ids []string
		for _, it := range items {
			if it.MenuItemID != "" {
				ids = append(ids, it.MenuItemID)
			}
		}
		menu, err := l.menu.Lookup(ctx, ids)
		if err != nil {
			return Stats{}, err
		}
		for id, m := range menu {
			categories[id] = m.Category
		}
	}
	return Summarize(items, categories), nil
}

// History returns the movements of an item, newest first. limit <= 0 means
// DefaultHistoryLimit.
func (l *Ledger) History(ctx context.Context, itemID string, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return store.Find[Movement](ctx, l.gw, MovementsTable,
		store.Where(store.Eq("item_id", itemID)).Sort(store.Desc("created_at"), store.Desc("id")).Page(limit, 0))
}

// ForMenuItem returns the live item linked to a menu item.
func (l *Ledger) ForMenuItem(ctx context.Context, menuItemID string) (Item, bool, error) {
	items, err := store.Find[Item](ctx, l.gw, ItemsTable,
		store.Where(store.Eq("menu_item_id", menuItemID)).Sort(store.Asc("created_at")).Page(1, 0))
	if err != nil || len(items) == 0 {
		return Item{}, false, err
	}
	return items[0], true, nil
}
