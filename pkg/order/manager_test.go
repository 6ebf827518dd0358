package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/catalog"
	"restaurantcore/pkg/events"
	"restaurantcore/pkg/inventory"
	"restaurantcore/pkg/logger"
	"restaurantcore/pkg/store"
	"restaurantcore/pkg/store/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newManager(t *testing.T, gw store.Gateway, opts ...Option) *Manager {
	t.Helper()
	if gw == nil {
		gw = memory.New()
	}
	return NewManager(gw, logger.Nop(), opts...)
}

func sampleOrder(user string) NewOrder {
	return NewOrder{UserID: user, Items: []LineInput{
		{MenuItemID: "burger", Quantity: 2, Price: dec("5.00")},
		{MenuItemID: "soda", Quantity: 1, Price: dec("3.50")},
	}}
}

func TestCreateComputesExactTotal(t *testing.T) {
	var rec events.Recorder
	m := newManager(t, nil, WithPublisher(&rec))
	ctx := context.Background()

	o, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)
	assert.Equal(t, Pending, o.Status)
	assert.True(t, o.Total.Equal(dec("13.50")), o.Total.String())
	require.Len(t, o.Lines, 2)

	got, err := m.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(dec("13.50")))
	require.Len(t, got.Lines, 2)
	sum := decimal.Zero
	for _, l := range got.Lines {
		assert.Equal(t, o.ID, l.OrderID)
		sum = sum.Add(l.Subtotal())
	}
	assert.True(t, sum.Equal(got.Total))
	assert.Len(t, rec.OfType(events.OrderCreated), 1)

	tenths := NewOrder{UserID: "u1", Items: []LineInput{
		{MenuItemID: "a", Quantity: 3, Price: dec("0.10")},
		{MenuItemID: "b", Quantity: 1, Price: dec("0.20")},
	}}
	o, err = m.Create(ctx, tenths)
	require.NoError(t, err)
	assert.Equal(t, "0.5", o.Total.String())
}

func TestCreateValidation(t *testing.T) {
	m := newManager(t, nil)
	ctx := context.Background()

	cases := map[string]NewOrder{
		"no user":      {Items: sampleOrder("").Items},
		"no lines":     {UserID: "u1"},
		"no menu item": {UserID: "u1", Items: []LineInput{{Quantity: 1, Price: dec("1")}}},
		"zero qty":     {UserID: "u1", Items: []LineInput{{MenuItemID: "x", Quantity: 0, Price: dec("1")}}},
		"zero price":   {UserID: "u1", Items: []LineInput{{MenuItemID: "x", Quantity: 1}}},
	}
	for name, in := range cases {
		_, err := m.Create(ctx, in)
		assert.True(t, apperr.Is(err, apperr.KindValidation), name)
	}
}

type failingLines struct {
	*memory.Gateway
}

func (f failingLines) Insert(ctx context.Context, table string, rec store.Record) (store.Record, error) {
	if table == LinesTable {
		return store.Record{}, errors.New("connection reset")
	}
	return f.Gateway.Insert(ctx, table, rec)
}

func TestLinesFailureFlagsOrder(t *testing.T) {
	gw := failingLines{memory.New()}
	m := newManager(t, gw)
	ctx := context.Background()

	_, createErr := m.Create(ctx, sampleOrder("u1"))
	require.Error(t, createErr)
	assert.True(t, apperr.Is(createErr, apperr.KindStore))
	assert.Contains(t, createErr.Error(), "insert lines")

	orders, err := m.ByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].IntegrityError)
	assert.Empty(t, orders[0].Lines)
	assert.Contains(t, createErr.Error(), orders[0].ID)
}

func TestCancel(t *testing.T) {
	m := newManager(t, nil)
	ctx := context.Background()

	pending, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)
	cancelled, err := m.Cancel(ctx, pending.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, Cancelled, cancelled.Status)
	_, err = m.Cancel(ctx, pending.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindConflict), "already cancelled")

	delivered, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)
	_, err = m.UpdateStatus(ctx, delivered.ID, Delivered)
	require.NoError(t, err)
	_, err = m.Cancel(ctx, delivered.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	other, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)
	_, err = m.Cancel(ctx, other.ID, "u2")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = m.Cancel(ctx, "missing", "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

// interleaved runs hook once, right after the next read of an order row.
type interleaved struct {
	*memory.Gateway
	hook func()
}

func (g *interleaved) Get(ctx context.Context, table, id string) (store.Record, error) {
	rec, err := g.Gateway.Get(ctx, table, id)
	if g.hook != nil && table == Table {
		h := g.hook
		g.hook = nil
		h()
	}
	return rec, err
}

func TestCancelLosesToDeliveryBetweenReadAndWrite(t *testing.T) {
	gw := &interleaved{Gateway: memory.New()}
	m := newManager(t, gw)
	ctx := context.Background()
	o, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)

	gw.hook = func() {
		_, err := gw.Gateway.Update(ctx, Table, o.ID, store.Patch{"status": Delivered}, 0)
		require.NoError(t, err)
	}
	_, err = m.Cancel(ctx, o.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	got, err := m.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, Delivered, got.Status)
}

func TestConcurrentCancelSucceedsOnce(t *testing.T) {
	gw := &interleaved{Gateway: memory.New()}
	m := newManager(t, gw)
	ctx := context.Background()
	o, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)

	var innerErr error
	gw.hook = func() { _, innerErr = m.Cancel(ctx, o.ID, "u1") }
	_, outerErr := m.Cancel(ctx, o.ID, "u1")
	require.NoError(t, innerErr)
	assert.True(t, apperr.Is(outerErr, apperr.KindConflict), "got %v", outerErr)
}

func TestUpdateDeliveryDetails(t *testing.T) {
	m := newManager(t, nil)
	ctx := context.Background()
	o, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)

	notes, addr := "ring twice", "  12 Main St  "
	got, err := m.Update(ctx, o.ID, Changes{Notes: &notes, DeliveryAddress: &addr})
	require.NoError(t, err)
	assert.Equal(t, "ring twice", got.Notes)
	assert.Equal(t, "12 Main St", got.DeliveryAddress)
	assert.Len(t, got.Lines, len(o.Lines))
	assert.True(t, got.Total.Equal(o.Total))

	same, err := m.Update(ctx, o.ID, Changes{})
	require.NoError(t, err)
	assert.Equal(t, got.Version, same.Version)

	_, err = m.UpdateStatus(ctx, o.ID, Delivered)
	require.NoError(t, err)
	_, err = m.Update(ctx, o.ID, Changes{Notes: &notes})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = m.Update(ctx, "missing", Changes{Notes: &notes})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateStatusIsPermissive(t *testing.T) {
	m := newManager(t, nil)
	ctx := context.Background()
	o, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)

	_, err = m.UpdateStatus(ctx, o.ID, "lost")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = m.UpdateStatus(ctx, o.ID, Delivered)
	require.NoError(t, err)
	back, err := m.UpdateStatus(ctx, o.ID, Pending)
	require.NoError(t, err)
	assert.Equal(t, Pending, back.Status)
	assert.True(t, back.Total.Equal(o.Total), "total is frozen")
	assert.False(t, CanTransition(Delivered, Pending))
}

func TestCanTransition(t *testing.T) {
	forward := []Status{Pending, Confirmed, Preparing, Ready, Delivered}
	for i := 0; i+1 < len(forward); i++ {
		assert.True(t, CanTransition(forward[i], forward[i+1]))
		assert.True(t, CanTransition(forward[i], Cancelled))
	}
	assert.False(t, CanTransition(Pending, Ready))
	assert.False(t, CanTransition(Ready, Preparing))
	for _, to := range Statuses {
		assert.False(t, CanTransition(Delivered, to))
		assert.False(t, CanTransition(Cancelled, to))
	}
}

func TestQueries(t *testing.T) {
	m := newManager(t, nil)
	ctx := context.Background()

	first, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)
	second, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)
	third, err := m.Create(ctx, sampleOrder("u2"))
	require.NoError(t, err)
	_, err = m.UpdateStatus(ctx, third.ID, Delivered)
	require.NoError(t, err)

	mine, err := m.ByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Len(t, mine[0].Lines, 2)

	limited, err := m.ByUser(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	active, err := m.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)

	delivered, err := m.ByStatus(ctx, Delivered)
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, third.ID, delivered[0].ID)

	_, err = m.ByStatus(ctx, "unknown")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	all, err := m.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	require.NoError(t, m.Delete(ctx, first.ID))
	_, err = m.Get(ctx, first.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestStats(t *testing.T) {
	m := newManager(t, nil)
	ctx := context.Background()
	start := time.Now().Add(-time.Minute)

	a, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)
	_, err = m.Create(ctx, NewOrder{UserID: "u1", Items: []LineInput{{MenuItemID: "x", Quantity: 1, Price: dec("6.50")}}})
	require.NoError(t, err)
	_, err = m.UpdateStatus(ctx, a.ID, Delivered)
	require.NoError(t, err)

	st, err := m.Stats(ctx, start, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Delivered)
	assert.Equal(t, 1, st.Pending)
	assert.True(t, st.TotalRevenue.Equal(dec("13.50")))
	assert.True(t, st.AverageOrderValue.Equal(dec("10")), st.AverageOrderValue.String())

	empty, err := m.Stats(ctx, start.Add(-time.Hour), start.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.True(t, empty.AverageOrderValue.IsZero())
}

func TestTopSelling(t *testing.T) {
	gw := memory.New()
	menu := catalog.NewService(gw, logger.Nop())
	m := newManager(t, gw, WithMenu(menu))
	ctx := context.Background()

	burger, err := menu.Create(ctx, catalog.NewMenuItem{Name: "Burger", Category: "main", Price: dec("5.00")})
	require.NoError(t, err)
	soda, err := menu.Create(ctx, catalog.NewMenuItem{Name: "Soda", Category: "drinks", Price: dec("3.50")})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := m.Create(ctx, NewOrder{UserID: "u1", Items: []LineInput{
			{MenuItemID: burger.ID, Quantity: 1, Price: dec("5.00")},
			{MenuItemID: soda.ID, Quantity: 3, Price: dec("3.50")},
		}})
		require.NoError(t, err)
	}

	top, err := m.TopSelling(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, soda.ID, top[0].MenuItemID)
	assert.Equal(t, 6, top[0].TotalQuantity)
	assert.Equal(t, "Soda", top[0].Name)
	assert.Equal(t, "drinks", top[0].Category)

	all, err := m.TopSelling(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDebit(t *testing.T) {
	gw := memory.New()
	menu := catalog.NewService(gw, logger.Nop())
	stock := inventory.NewLedger(gw, logger.Nop())
	m := newManager(t, gw, WithStock(stock))
	ctx := context.Background()

	pizza, err := menu.Create(ctx, catalog.NewMenuItem{Name: "Pizza", Category: "main", Price: dec("12")})
	require.NoError(t, err)
	dough, err := stock.CreateItem(ctx, inventory.NewItem{Name: "Masa", MenuItemID: pizza.ID, Quantity: 10})
	require.NoError(t, err)

	o, err := m.Create(ctx, NewOrder{UserID: "u1", Items: []LineInput{
		{MenuItemID: pizza.ID, Quantity: 3, Price: dec("12")},
		{MenuItemID: "unlinked", Quantity: 1, Price: dec("2")},
	}})
	require.NoError(t, err)

	moves, err := m.Debit(ctx, o.ID, "chef")
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, inventory.Out, moves[0].Type)

	got, err := stock.Get(ctx, dough.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)

	_, err = m.Debit(ctx, o.ID, "chef")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	cancelled, err := m.Create(ctx, sampleOrder("u1"))
	require.NoError(t, err)
	_, err = m.Cancel(ctx, cancelled.ID, "")
	require.NoError(t, err)
	_, err = m.Debit(ctx, cancelled.ID, "chef")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = newManager(t, gw).Debit(ctx, o.ID, "chef")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
