// Package inventory keeps stock quantities as the fold of an append-only
// movement log.
package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"restaurantcore/pkg/store"
)

// Tables.
const (
	ItemsTable     = "inventory_items"
	MovementsTable = "inventory_movements"
)

// Defaults applied by CreateItem.
const (
	DefaultUnit         = "unidad"
	DefaultMinQuantity  = 10
	DefaultThreshold    = 10
	DefaultHistoryLimit = 50
)

// Direction of a movement.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Valid reports whether d is in or out.
func (d Direction) Valid() bool { return d == In || d == Out }

// Mode selects how SetQuantity combines the given quantity with the stored one.
type Mode string

const (
	ModeSet      Mode = "set"
	ModeAdd      Mode = "add"
	ModeSubtract Mode = "subtract"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSet, ModeAdd, ModeSubtract:
		return true
	}
	return false
}

// Apply returns the new quantity, never below zero.
func (m Mode) Apply(current, quantity int) int {
	next := quantity
	switch m {
	case ModeAdd:
		next = current + quantity
	case ModeSubtract:
		next = current - quantity
	}
	if next < 0 {
		return 0
	}
	return next
}

// Item is one stock-keeping unit.
type Item struct {
	store.Meta
	Name        string          `json:"name"`
	MenuItemID  string          `json:"menu_item_id,omitempty"`
	Quantity    int             `json:"quantity"`
	Unit        string          `json:"unit"`
	MinQuantity int             `json:"min_quantity"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Low reports whether the item is at or below its minimum.
func (i Item) Low() bool { return i.Quantity <= i.MinQuantity }

// NewItem is the input to CreateItem. Nil pointers take the defaults.
type NewItem struct {
	Name        string           `json:"name"`
	MenuItemID  string           `json:"menu_item_id"`
	Quantity    int              `json:"quantity"`
	Unit        string           `json:"unit"`
	MinQuantity *int             `json:"min_quantity"`
	CostPerUnit *decimal.Decimal `json:"cost_per_unit"`
}

// ItemChanges edits the descriptive fields of an item. Quantity only changes
// through SetQuantity and RecordMovement.
type ItemChanges struct {
	Name        *string          `json:"name"`
	MenuItemID  *string          `json:"menu_item_id"`
	Unit        *string          `json:"unit"`
	MinQuantity *int             `json:"min_quantity"`
	CostPerUnit *decimal.Decimal `json:"cost_per_unit"`
}

// Movement is an immutable stock adjustment.
type Movement struct {
	store.Meta
	ItemID   string    `json:"item_id"`
	Quantity int       `json:"quantity"`
	Type     Direction `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
}

// Signed returns the quantity with the direction's sign.
func (m Movement) Signed() int {
	if m.Type == Out {
		return -m.Quantity
	}
	return m.Quantity
}

// MovementInput is the input to RecordMovement.
type MovementInput struct {
	ItemID   string    `json:"item_id"`
	Quantity int       `json:"quantity"`
	Type     Direction `json:"type"`
	Reason   string    `json:"reason"`
	UserID   string    `json:"user_id"`
}

// PurchaseLine is one suggested reorder.
type PurchaseLine struct {
	ItemID          string          `json:"item_id"`
	Name            string          `json:"name"`
	CurrentQuantity int             `json:"current_quantity"`
	MinQuantity     int             `json:"min_quantity"`
	SuggestedOrder  int             `json:"suggested_order"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit"`
	Unit            string          `json:"unit"`
}

// PurchaseOrder is a reorder suggestion derived from a stock snapshot.
type PurchaseOrder struct {
	ID            string          `json:"id"`
	Items         []PurchaseLine  `json:"items"`
	TotalItems    int             `json:"total_items"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SuggestedOrder is the reorder quantity that brings an item to twice its
// minimum.
func SuggestedOrder(quantity, minQuantity int) int {
	return max(2*minQuantity-quantity, 0)
}

// BuildPurchaseOrder suggests a reorder for each item in items.
func BuildPurchaseOrder(id string, items []Item, at time.Time) PurchaseOrder {
	po := PurchaseOrder{ID: id, Items: make([]PurchaseLine, 0, len(items)), EstimatedCost: decimal.Zero, CreatedAt: at}
	for _, it := range items {
		n := SuggestedOrder(it.Quantity, it.MinQuantity)
		po.Items = append(po.Items, PurchaseLine{
			ItemID:          it.ID,
			Name:            it.Name,
			CurrentQuantity: it.Quantity,
			MinQuantity:     it.MinQuantity,
			SuggestedOrder:  n,
			CostPerUnit:     it.CostPerUnit,
			Unit:            it.Unit,
		})
		po.EstimatedCost = po.EstimatedCost.Add(it.CostPerUnit.Mul(decimal.NewFromInt(int64(n))))
	}
	po.TotalItems = len(po.Items)
	return po
}

// Stats summarises a stock snapshot.
type Stats struct {
	TotalItems      int             `json:"total_items"`
	LowStockItems   int             `json:"low_stock_items"`
	OutOfStockItems int             `json:"out_of_stock_items"`
	TotalValue      decimal.Decimal `json:"total_value"`
	ItemsByCategory map[string]int  `json:"items_by_category"`
}

// Summarize computes stats; categories maps a menu item id to its category.
func Summarize(items []Item, categories map[string]string) Stats {
	st := Stats{TotalValue: decimal.Zero, ItemsByCategory: map[string]int{}}
	for _, it := range items {
		st.TotalItems++
		if it.Low() {
			st.LowStockItems++
		}
		if it.Quantity == 0 {
			st.OutOfStockItems++
		}
		st.TotalValue = st.TotalValue.Add(it.CostPerUnit.Mul(decimal.NewFromInt(int64(it.Quantity))))
		if cat, ok := categories[it.MenuItemID]; ok && cat != "" {
			st.ItemsByCategory[cat]++
		}
	}
	return st
}
