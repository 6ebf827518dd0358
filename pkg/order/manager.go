package order

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/catalog"
	"restaurantcore/pkg/events"
	"restaurantcore/pkg/inventory"
	"restaurantcore/pkg/logger"
	"restaurantcore/pkg/otel"
	"restaurantcore/pkg/store"
)

// Menu resolves menu items for top-seller names.
type Menu interface {
	Lookup(ctx context.Context, ids []string) (map[string]catalog.MenuItem, error)
}

// Stock is the part of the inventory ledger Debit needs.
type Stock interface {
	ForMenuItem(ctx context.Context, menuItemID string) (inventory.Item, bool, error)
	RecordMovement(ctx context.Context, in inventory.MovementInput) (inventory.Movement, error)
}

// Manager creates orders and moves them through their lifecycle.
type Manager struct {
	gw    store.Gateway
	menu  Menu
	stock Stock
	pub   events.Publisher
	log   *logger.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithMenu enables names and categories in TopSelling.
func WithMenu(m Menu) Option { return func(mg *Manager) { mg.menu = m } }

// WithStock enables Debit.
func WithStock(s Stock) Option { return func(mg *Manager) { mg.stock = s } }

// WithPublisher sets where order events go.
func WithPublisher(p events.Publisher) Option { return func(mg *Manager) { mg.pub = p } }

// NewManager creates a manager over gw.
func NewManager(gw store.Gateway, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{gw: gw, pub: events.Nop{}, log: log}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create stores a pending order and then its lines. The two writes are not
// atomic: if the lines fail, the order row is flagged with integrity_error
// and the returned error names the step and the order id.
func (m *Manager) Create(ctx context.Context, in NewOrder) (Order, error) {
	ctx, span := otel.AddSpan(ctx, "order.create", attribute.Int("lines", len(in.Items)))
	defer span.End()

	const op = "order.create"
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return Order{}, apperr.Validation(op, "user_id is required")
	}
	if len(in.Items) == 0 {
		return Order{}, apperr.Validation(op, "order must contain at least one item")
	}
	for i, l := range in.Items {
		switch {
		case l.MenuItemID == "":
			return Order{}, apperr.Validation(op, "item %d: menu_item_id is required", i)
		case l.Quantity < 1:
			return Order{}, apperr.Validation(op, "item %d: quantity must be at least 1", i)
		case !l.Price.IsPositive():
			return Order{}, apperr.Validation(op, "item %d: price must be greater than 0", i)
		}
	}

	o, err := store.Insert(ctx, m.gw, Table, Order{
		UserID:          in.UserID,
		Total:           Total(in.Items),
		Status:          Pending,
		Notes:           in.Notes,
		DeliveryAddress: in.DeliveryAddress,
	})
	if err != nil {
		return Order{}, apperr.Step(op, "insert order", err)
	}

	o.Lines = make([]Line, 0, len(in.Items))
	for _, l := range in.Items {
		line, err := store.Insert(ctx, m.gw, LinesTable, Line{
			OrderID:    o.ID,
			MenuItemID: l.MenuItemID,
			Quantity:   l.Quantity,
			Price:      l.Price,
		})
		if err != nil {
			m.flagIntegrity(ctx, o.ID, err)
			return Order{}, apperr.Step(op, fmt.Sprintf("insert lines of order %s (%d of %d stored)", o.ID, len(o.Lines), len(in.Items)), err)
		}
		o.Lines = append(o.Lines, line)
	}

	m.log.Info(ctx, "order created", "order_id", o.ID, "user_id", o.UserID, "total", o.Total.String(), "lines", len(o.Lines))
	events.Emit(ctx, m.pub, m.log, events.New(events.OrderCreated, o.ID, o))
	return o, nil
}

func (m *Manager) flagIntegrity(ctx context.Context, id string, cause error) {
	m.log.Error(ctx, "order stored without all lines", "order_id", id, "error", cause)
	if _, err := m.gw.Update(ctx, Table, id, store.Patch{"integrity_error": true}, 0); err != nil {
		m.log.Error(ctx, "flag order integrity error", "order_id", id, "error", err)
	}
}

// Get returns an order with its lines.
func (m *Manager) Get(ctx context.Context, id string) (Order, error) {
	o, err := m.get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if err := m.withLines(ctx, []*Order{&o}); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (m *Manager) get(ctx context.Context, id string) (Order, error) {
	o, err := store.Get[Order](ctx, m.gw, Table, id)
	if err != nil {
		return Order{}, err
	}
	if o.Deleted() {
		return Order{}, apperr.NotFound("order.get", "order %s not found", id)
	}
	return o, nil
}

// withLines loads the lines of orders in one query.
func (m *Manager) withLines(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Lines = []Line{}
	}
	lines, err := store.Find[Line](ctx, m.gw, LinesTable, store.Where(store.In("order_id", ids...)).Sort(store.Asc("created_at")))
	if err != nil {
		return err
	}
	for _, l := range lines {
		if o, ok := byID[l.OrderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	return nil
}

func (m *Manager) find(ctx context.Context, q store.Query) ([]Order, error) {
	orders, err := store.Find[Order](ctx, m.gw, Table, q)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := m.withLines(ctx, ptrs); err != nil {
		return nil, err
	}
	return orders, nil
}

// List pages through all orders, newest first.
func (m *Manager) List(ctx context.Context, limit, offset int) ([]Order, error) {
	return m.find(ctx, store.Query{}.Sort(store.Desc("created_at")).Page(limit, offset))
}

// ByUser returns a user's latest orders. limit <= 0 means DefaultUserLimit.
func (m *Manager) ByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = DefaultUserLimit
	}
	return m.find(ctx, store.Where(store.Eq("user_id", userID)).Sort(store.Desc("created_at")).Page(limit, 0))
}

// ByStatus returns orders with status, newest first.
func (m *Manager) ByStatus(ctx context.Context, status Status) ([]Order, error) {
	if !status.Valid() {
		return nil, apperr.Validation("order.by_status", "invalid status %q", status)
	}
	return m.find(ctx, store.Where(store.Eq("status", status)).Sort(store.Desc("created_at")))
}

// Active returns non-terminal orders, oldest first, as the kitchen queue.
func (m *Manager) Active(ctx context.Context) ([]Order, error) {
	return m.find(ctx, store.Where(store.In("status", ActiveStatuses...)).Sort(store.Asc("created_at")))
}

// UpdateStatus sets any valid status without consulting the transition
// graph.
func (m *Manager) UpdateStatus(ctx context.Context, id string, status Status) (Order, error) {
	return m.updateStatus(ctx, "order.update_status", id, status, nil)
}

// updateStatus writes status under a version precondition. guard sees the
// row the write is conditioned on, so its checks hold at the moment of the
// write.
func (m *Manager) updateStatus(ctx context.Context, op, id string, status Status, guard func(Order) error) (Order, error) {
	ctx, span := otel.AddSpan(ctx, op,
		attribute.String("order_id", id), attribute.String("status", string(status)))
	defer span.End()

	if !status.Valid() {
		return Order{}, apperr.Validation(op, "invalid status %q", status)
	}
	var before, after Order
	err := store.WithRetry(ctx, op, store.DefaultAttempts, func(ctx context.Context) error {
		cur, err := m.get(ctx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(cur); err != nil {
				return err
			}
		}
		upd, err := store.Update[Order](ctx, m.gw, Table, id, store.Patch{"status": status}, cur.Version)
		if err != nil {
			return err
		}
		before, after = cur, upd
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	m.log.Info(ctx, "order status changed", "order_id", id, "from", before.Status, "to", after.Status)
	events.Emit(ctx, m.pub, m.log, events.New(events.OrderStatusChanged, id, map[string]any{
		"from": before.Status, "to": after.Status,
	}))
	return after, nil
}

// Cancel cancels an order that is neither cancelled nor delivered. A
// non-empty userID must own it.
func (m *Manager) Cancel(ctx context.Context, id, userID string) (Order, error) {
	const op = "order.cancel"
	return m.updateStatus(ctx, op, id, Cancelled, func(o Order) error {
		switch {
		case userID != "" && o.UserID != userID:
			return apperr.Conflict(op, "order %s belongs to another user", id)
		case o.Status == Cancelled:
			return apperr.Conflict(op, "order %s is already cancelled", id)
		case o.Status == Delivered:
			return apperr.Conflict(op, "order %s was already delivered", id)
		}
		return nil
	})
}

// Update edits the delivery details of an order. Lines, total and status
// have their own paths.
func (m *Manager) Update(ctx context.Context, id string, ch Changes) (Order, error) {
	const op = "order.update"
	patch := store.Patch{}
	if ch.Notes != nil {
		patch["notes"] = *ch.Notes
	}
	if ch.DeliveryAddress != nil {
		patch["delivery_address"] = strings.TrimSpace(*ch.DeliveryAddress)
	}
	if len(patch) == 0 {
		return m.Get(ctx, id)
	}
	err := store.WithRetry(ctx, op, store.DefaultAttempts, func(ctx context.Context) error {
		cur, err := m.get(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return apperr.Conflict(op, "order %s is %s", id, cur.Status)
		}
		_, err = m.gw.Update(ctx, Table, id, patch, cur.Version)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	return m.Get(ctx, id)
}

// Delete soft-deletes an order; its lines stay for sales history.
func (m *Manager) Delete(ctx context.Context, id string) error {
	_, err := m.gw.SoftDelete(ctx, Table, id)
	return err
}

// Stats aggregates orders created within [start, end].
func (m *Manager) Stats(ctx context.Context, start, end time.Time) (Stats, error) {
	orders, err := store.Find[Order](ctx, m.gw, Table, store.Where(
		store.Gte("created_at", start.UTC()),
		store.Lte("created_at", end.UTC()),
	))
	if err != nil {
		return Stats{}, err
	}
	return Summarize(orders), nil
}

// TopSelling ranks menu items by units sold. limit <= 0 means
// DefaultTopLimit.
func (m *Manager) TopSelling(ctx context.Context, limit int) ([]TopItem, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	lines, err := store.Find[Line](ctx, m.gw, LinesTable, store.Query{})
	if err != nil {
		return nil, err
	}
	totals := map[string]int{}
	for _, l := range lines {
		totals[l.MenuItemID] += l.Quantity
	}
	top := make([]TopItem, 0, len(totals))
	for id, qty := range totals {
		top = append(top, TopItem{MenuItemID: id, TotalQuantity: qty})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].TotalQuantity != top[j].TotalQuantity {
			return top[i].TotalQuantity > top[j].TotalQuantity
		}
		return top[i].MenuItemID < top[j].MenuItemID
	})
	if len(top) > limit {
		top = top[:limit]
	}

	if m.menu != nil {
		ids := make([]string, len(top))
		for i, t := range top {
			ids[i] = t.MenuItemID
		}
		menu, err := m.menu.Lookup(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range top {
			if it, ok := menu[top[i].MenuItemID]; ok {
				top[i].Name, top[i].Category, top[i].Price = it.Name, it.Category, it.Price
			}
		}
	}
	return top, nil
}

// Debit records one inventory out movement per line whose menu item has a
// linked stock item. The order is marked debited first, so a second call is a
// Conflict. When a movement fails, the error names the line and how many
// movements were recorded before it.
func (m *Manager) Debit(ctx context.Context, id, userID string) ([]inventory.Movement, error) {
	ctx, span := otel.AddSpan(ctx, "order.debit", attribute.String("order_id", id))
	defer span.End()

	const op = "order.debit"
	if m.stock == nil {
		return nil, apperr.Validation(op, "inventory is not configured")
	}
	var o Order
	err := store.WithRetry(ctx, op, store.DefaultAttempts, func(ctx context.Context) error {
		cur, err := m.get(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case cur.Debited:
			return apperr.Conflict(op, "order %s was already debited", id)
		case cur.Status == Cancelled:
			return apperr.Conflict(op, "order %s is cancelled", id)
		}
		upd, err := store.Update[Order](ctx, m.gw, Table, id, store.Patch{"inventory_debited": true}, cur.Version)
		if err != nil {
			return err
		}
		o = upd
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := m.withLines(ctx, []*Order{&o}); err != nil {
		return nil, apperr.Step(op, "load lines of order "+id, err)
	}

	var moves []inventory.Movement
	for _, l := range o.Lines {
		item, ok, err := m.stock.ForMenuItem(ctx, l.MenuItemID)
		if err != nil {
			return moves, apperr.Step(op, fmt.Sprintf("find stock for %s (%d movements recorded)", l.MenuItemID, len(moves)), err)
		}
		if !ok {
			continue
		}
		mv, err := m.stock.RecordMovement(ctx, inventory.MovementInput{
			ItemID:   item.ID,
			Quantity: l.Quantity,
			Type:     inventory.Out,
			Reason:   "order " + id,
			UserID:   userID,
		})
		if err != nil {
			return moves, apperr.Step(op, fmt.Sprintf("debit %s (%d movements recorded)", l.MenuItemID, len(moves)), err)
		}
		moves = append(moves, mv)
	}
	m.log.Info(ctx, "order debited", "order_id", id, "movements", len(moves))
	return moves, nil
}
