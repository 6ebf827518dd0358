package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/store"
)

type dish struct {
	store.Meta
	Name     string `json:"name"`
	Category string `json:"category"`
	Stock    int    `json:"stock"`
}

func TestGateway(t *testing.T) {
	ctx := context.Background()
	gw := New()

	created, err := store.Insert(ctx, gw, "dishes", dish{Name: "Widget", Category: "main", Stock: 2})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if created.ID == "" || created.Version != 1 {
		t.Fatalf("unexpected meta: %+v", created.Meta)
	}
	got, err := store.Get[dish](ctx, gw, "dishes", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Widget" {
		t.Fatalf("expected Widget, got %s", got.Name)
	}

	updated, err := store.Update[dish](ctx, gw, "dishes", created.ID, store.Patch{"name": "Gadget"}, 1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Gadget" || updated.Stock != 2 || updated.Version != 2 {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatal("expected updated_at to move forward")
	}

	if _, err := gw.Update(ctx, "dishes", created.ID, store.Patch{"stock": 9}, 1); !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	if _, err := gw.SoftDelete(ctx, "dishes", created.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	n, err := gw.Count(ctx, "dishes", store.Query{})
	if err != nil || n != 0 {
		t.Fatalf("count after soft delete: %v n=%d", err, n)
	}
	n, _ = gw.Count(ctx, "dishes", store.Query{WithDeleted: true})
	if n != 1 {
		t.Fatalf("expected soft-deleted row with WithDeleted, got %d", n)
	}

	removed, err := gw.HardDelete(ctx, "dishes", store.Where(store.Eq("id", created.ID)))
	if err != nil || removed != 1 {
		t.Fatalf("hard delete: %v removed=%d", err, removed)
	}
	if _, err := gw.Get(ctx, "dishes", created.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestFindFiltersSortAndPage(t *testing.T) {
	ctx := context.Background()
	gw := New()
	for _, d := range []dish{
		{Name: "soup", Category: "starter", Stock: 4},
		{Name: "steak", Category: "main", Stock: 0},
		{Name: "salad", Category: "starter", Stock: 12},
		{Name: "pie", Category: "dessert", Stock: 7},
	} {
		if _, err := store.Insert(ctx, gw, "dishes", d); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	low, err := store.Find[dish](ctx, gw, "dishes", store.Where(store.Lte("stock", 7)).Sort(store.Asc("stock")))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(low) != 3 || low[0].Name != "steak" || low[2].Name != "pie" {
		t.Fatalf("unexpected low stock result: %+v", low)
	}

	starters, _ := store.Find[dish](ctx, gw, "dishes", store.Where(store.In("category", "starter", "dessert")).Sort(store.Desc("name")))
	if len(starters) != 3 || starters[0].Name != "soup" {
		t.Fatalf("unexpected in result: %+v", starters)
	}

	page, _ := store.Find[dish](ctx, gw, "dishes", store.Query{}.Page(2, 1))
	if len(page) != 2 || page[0].Name != "steak" || page[1].Name != "salad" {
		t.Fatalf("unexpected page: %+v", page)
	}

	since := time.Now().Add(-time.Hour)
	recent, _ := gw.Count(ctx, "dishes", store.Where(store.Gte("created_at", since)))
	if recent != 4 {
		t.Fatalf("expected 4 recent rows, got %d", recent)
	}
}

func TestInsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	gw := New()
	rec := store.Record{Meta: store.Meta{ID: "fixed"}, Doc: json.RawMessage(`{"name":"a"}`)}
	if _, err := gw.Insert(ctx, "dishes", rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := gw.Insert(ctx, "dishes", rec); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Get(ctx, "dishes", "x"); !apperr.Is(err, apperr.KindStore) {
		t.Fatalf("expected store error, got %v", err)
	}
}
