package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/catalog"
	"restaurantcore/pkg/events"
	"restaurantcore/pkg/logger"
	"restaurantcore/pkg/store"
	"restaurantcore/pkg/store/memory"
)

func newLedger(t *testing.T, opts ...Option) (*Ledger, *memory.Gateway) {
	t.Helper()
	gw := memory.New()
	return NewLedger(gw, logger.Nop(), opts...), gw
}

func intp(n int) *int { return &n }

func TestCreateItemDefaults(t *testing.T) {
	l, _ := newLedger(t)
	it, err := l.CreateItem(context.Background(), NewItem{Name: "Harina"})
	require.NoError(t, err)
	assert.Equal(t, 0, it.Quantity)
	assert.Equal(t, DefaultUnit, it.Unit)
	assert.Equal(t, DefaultMinQuantity, it.MinQuantity)
	assert.True(t, it.CostPerUnit.IsZero())
	assert.NotEmpty(t, it.ID)

	_, err = l.CreateItem(context.Background(), NewItem{Name: " "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestQuantityIsFoldOfMovements(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	it, err := l.CreateItem(ctx, NewItem{Name: "Tomate", Quantity: 4})
	require.NoError(t, err)

	moves := []MovementInput{
		{ItemID: it.ID, Quantity: 6, Type: In},
		{ItemID: it.ID, Quantity: 3, Type: Out},
		{ItemID: it.ID, Quantity: 2, Type: In, Reason: "delivery"},
		{ItemID: it.ID, Quantity: 1, Type: Out, UserID: "u1"},
	}
	for _, m := range moves {
		_, err := l.RecordMovement(ctx, m)
		require.NoError(t, err)
	}

	got, err := l.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Quantity)

	hist, err := l.History(ctx, it.ID, 0)
	require.NoError(t, err)
	require.Len(t, hist, 4)
	sum := 4
	for _, m := range hist {
		sum += m.Signed()
	}
	assert.Equal(t, got.Quantity, sum)
	assert.Equal(t, "u1", hist[0].UserID, "newest first")

	limited, err := l.History(ctx, it.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestOutMovementClampsAtZero(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	it, err := l.CreateItem(ctx, NewItem{Name: "Queso", Quantity: 3})
	require.NoError(t, err)

	_, err = l.RecordMovement(ctx, MovementInput{ItemID: it.ID, Quantity: 10, Type: Out})
	require.NoError(t, err)
	got, err := l.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	set, err := l.SetQuantity(ctx, it.ID, -5, ModeSet)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Quantity)
}

func TestRecordMovementValidation(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	it, err := l.CreateItem(ctx, NewItem{Name: "Sal"})
	require.NoError(t, err)

	cases := []MovementInput{
		{Quantity: 1, Type: In},
		{ItemID: it.ID, Quantity: 0, Type: In},
		{ItemID: it.ID, Quantity: 1, Type: "sideways"},
	}
	for _, c := range cases {
		_, err := l.RecordMovement(ctx, c)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%+v", c)
	}

	_, err = l.RecordMovement(ctx, MovementInput{ItemID: "missing", Quantity: 1, Type: In})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = l.SetQuantity(ctx, it.ID, 1, "double")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestConcurrentMovementsDoNotLoseUpdates(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	it, err := l.CreateItem(ctx, NewItem{Name: "Arroz"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.RecordMovement(ctx, MovementInput{ItemID: it.ID, Quantity: 5, Type: In})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := l.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Quantity)
}

// staleGateway reports a version conflict on every update.
type staleGateway struct {
	*memory.Gateway
}

func (staleGateway) Update(context.Context, string, string, store.Patch, int64) (store.Record, error) {
	return store.Record{}, store.ErrVersionConflict
}

func TestApplyFailureNamesMovement(t *testing.T) {
	gw := staleGateway{memory.New()}
	l := NewLedger(gw, logger.Nop())
	ctx := context.Background()
	it, err := l.CreateItem(ctx, NewItem{Name: "Aceite", Quantity: 1})
	require.NoError(t, err)

	mv, err := l.RecordMovement(ctx, MovementInput{ItemID: it.ID, Quantity: 1, Type: In})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConcurrentModification))
	assert.NotEmpty(t, mv.ID)
	assert.Contains(t, err.Error(), mv.ID)

	n, err := gw.Count(ctx, MovementsTable, store.Where(store.Eq("item_id", it.ID)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLowStockAndPurchaseOrder(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	cost := decimal.RequireFromString("1.25")
	low, err := l.CreateItem(ctx, NewItem{Name: "Leche", Quantity: 3, MinQuantity: intp(10), CostPerUnit: &cost})
	require.NoError(t, err)
	_, err = l.CreateItem(ctx, NewItem{Name: "Huevos", Quantity: 40})
	require.NoError(t, err)
	_, err = l.CreateItem(ctx, NewItem{Name: "Azucar", Quantity: 0})
	require.NoError(t, err)

	items, err := l.LowStock(ctx, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Azucar", items[0].Name)

	out, err := l.OutOfStock(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Azucar", out[0].Name)

	po, err := l.PurchaseOrder(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, po.TotalItems)
	var leche PurchaseLine
	for _, line := range po.Items {
		assert.NotEqual(t, "Huevos", line.Name)
		if line.ItemID == low.ID {
			leche = line
		}
	}
	assert.Equal(t, 17, leche.SuggestedOrder)
	assert.True(t, po.EstimatedCost.Equal(decimal.RequireFromString("21.25")), po.EstimatedCost.String())
}

func TestSuggestedOrderNeverNegative(t *testing.T) {
	assert.Equal(t, 17, SuggestedOrder(3, 10))
	assert.Equal(t, 0, SuggestedOrder(25, 10))
}

func TestLowStockEventOnCrossing(t *testing.T) {
	var rec events.Recorder
	l, _ := newLedger(t, WithPublisher(&rec))
	ctx := context.Background()
	it, err := l.CreateItem(ctx, NewItem{Name: "Pan", Quantity: 12, MinQuantity: intp(10)})
	require.NoError(t, err)

	_, err = l.RecordMovement(ctx, MovementInput{ItemID: it.ID, Quantity: 1, Type: Out})
	require.NoError(t, err)
	assert.Empty(t, rec.OfType(events.InventoryLowStock))

	_, err = l.RecordMovement(ctx, MovementInput{ItemID: it.ID, Quantity: 1, Type: Out})
	require.NoError(t, err)
	assert.Len(t, rec.OfType(events.InventoryLowStock), 1)

	_, err = l.RecordMovement(ctx, MovementInput{ItemID: it.ID, Quantity: 1, Type: Out})
	require.NoError(t, err)
	assert.Len(t, rec.OfType(events.InventoryLowStock), 1, "already low")
	assert.Len(t, rec.OfType(events.InventoryMovementRecorded), 3)
}

func TestStatsByCategory(t *testing.T) {
	gw := memory.New()
	menu := catalog.NewService(gw, logger.Nop())
	l := NewLedger(gw, logger.Nop(), WithMenu(menu))
	ctx := context.Background()

	pizza, err := menu.Create(ctx, catalog.NewMenuItem{Name: "Pizza", Category: "main", Price: decimal.NewFromInt(12)})
	require.NoError(t, err)
	cost := decimal.RequireFromString("0.50")
	_, err = l.CreateItem(ctx, NewItem{Name: "Masa", MenuItemID: pizza.ID, Quantity: 20, CostPerUnit: &cost})
	require.NoError(t, err)
	_, err = l.CreateItem(ctx, NewItem{Name: "Servilletas", Quantity: 0})
	require.NoError(t, err)

	st, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalItems)
	assert.Equal(t, 1, st.LowStockItems)
	assert.Equal(t, 1, st.OutOfStockItems)
	assert.True(t, st.TotalValue.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, map[string]int{"main": 1}, st.ItemsByCategory)
}

func TestUpdateAndDeleteItem(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	it, err := l.CreateItem(ctx, NewItem{Name: "Cafe", Quantity: 5})
	require.NoError(t, err)

	unit := "kg"
	upd, err := l.UpdateItem(ctx, it.ID, ItemChanges{Unit: &unit, MinQuantity: intp(2)})
	require.NoError(t, err)
	assert.Equal(t, "kg", upd.Unit)
	assert.Equal(t, 5, upd.Quantity)

	require.NoError(t, l.DeleteItem(ctx, it.ID))
	_, err = l.Get(ctx, it.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	list, err := l.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// interleaved runs hook once, right after the next read of an item.
type interleaved struct {
	*memory.Gateway
	hook func()
}

func (g *interleaved) Get(ctx context.Context, table, id string) (store.Record, error) {
	rec, err := g.Gateway.Get(ctx, table, id)
	if g.hook != nil && table == ItemsTable {
		h := g.hook
		g.hook = nil
		h()
	}
	return rec, err
}

func TestUpdateItemLosesToDeleteBetweenReadAndWrite(t *testing.T) {
	gw := &interleaved{Gateway: memory.New()}
	l := NewLedger(gw, logger.Nop())
	ctx := context.Background()
	it, err := l.CreateItem(ctx, NewItem{Name: "Sal", Quantity: 3})
	require.NoError(t, err)

	gw.hook = func() { require.NoError(t, l.DeleteItem(ctx, it.ID)) }
	unit := "kg"
	_, err = l.UpdateItem(ctx, it.ID, ItemChanges{Unit: &unit})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)

	raw, err := store.Get[Item](ctx, gw, ItemsTable, it.ID)
	require.NoError(t, err)
	assert.True(t, raw.Deleted())
	assert.Equal(t, it.Unit, raw.Unit)
}
