// Package order computes order totals from their lines and moves orders
// through the kitchen lifecycle.
package order

import (
	"github.com/shopspring/decimal"

	"restaurantcore/pkg/store"
)

// Tables.
const (
	Table      = "orders"
	LinesTable = "order_items"
)

// Default page sizes.
const (
	DefaultUserLimit = 50
	DefaultTopLimit  = 10
)

// Status of an order.
type Status string

const (
	Pending   Status = "pending"
	Confirmed Status = "confirmed"
	Preparing Status = "preparing"
	Ready     Status = "ready"
	Delivered Status = "delivered"
	Cancelled Status = "cancelled"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{Pending, Confirmed, Preparing, Ready, Delivered, Cancelled}

// ActiveStatuses are the non-terminal statuses.
var ActiveStatuses = []Status{Pending, Confirmed, Preparing, Ready}

var next = map[Status]Status{
	Pending:   Confirmed,
	Confirmed: Preparing,
	Preparing: Ready,
	Ready:     Delivered,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether s is delivered or cancelled.
func (s Status) Terminal() bool { return s == Delivered || s == Cancelled }

// CanTransition reports whether the lifecycle allows from -> to: one step
// forward, or cancellation of a non-terminal order. UpdateStatus does not
// consult it.
func CanTransition(from, to Status) bool {
	if !from.Valid() || from.Terminal() {
		return false
	}
	return to == Cancelled || next[from] == to
}

// Order is a customer order. Total is frozen at creation.
type Order struct {
	store.Meta
	UserID          string          `json:"user_id"`
	Total           decimal.Decimal `json:"total"`
	Status          Status          `json:"status"`
	Notes           string          `json:"notes,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	IntegrityError  bool            `json:"integrity_error,omitempty"`
	Debited         bool            `json:"inventory_debited,omitempty"`
	// Lines is filled on read and is never part of the stored document.
	Lines []Line `json:"items,omitempty"`
}

// Line is one menu item of an order with its price snapshot.
type Line struct {
	store.Meta
	OrderID    string          `json:"order_id"`
	MenuItemID string          `json:"menu_item_id"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// Subtotal is quantity times price.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineInput is one requested line. Price is the client's snapshot and is not
// re-read from the catalog.
type LineInput struct {
	MenuItemID string          `json:"menu_item_id"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// NewOrder is the input to Create.
type NewOrder struct {
	UserID          string      `json:"user_id"`
	Items           []LineInput `json:"items"`
	Notes           string      `json:"notes"`
	DeliveryAddress string      `json:"delivery_address"`
}

// Changes are the editable fields of an order. Nil fields are left alone.
type Changes struct {
	Notes           *string `json:"notes"`
	DeliveryAddress *string `json:"delivery_address"`
}

// Total sums quantity times price over lines exactly.
func Total(lines []LineInput) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// Stats aggregates orders created in a range.
type Stats struct {
	Total             int             `json:"total"`
	Pending           int             `json:"pending"`
	Confirmed         int             `json:"confirmed"`
	Preparing         int             `json:"preparing"`
	Ready             int             `json:"ready"`
	Delivered         int             `json:"delivered"`
	Cancelled         int             `json:"cancelled"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

// Summarize folds orders into Stats. Revenue counts delivered orders only;
// the average is over all orders.
func Summarize(orders []Order) Stats {
	st := Stats{TotalRevenue: decimal.Zero, AverageOrderValue: decimal.Zero}
	sum := decimal.Zero
	for _, o := range orders {
		st.Total++
		sum = sum.Add(o.Total)
		switch o.Status {
		case Pending:
			st.Pending++
		case Confirmed:
			st.Confirmed++
		case Preparing:
			st.Preparing++
		case Ready:
			st.Ready++
		case Delivered:
			st.Delivered++
			st.TotalRevenue = st.TotalRevenue.Add(o.Total)
		case Cancelled:
			st.Cancelled++
		}
	}
	if st.Total > 0 {
		st.AverageOrderValue = sum.Div(decimal.NewFromInt(int64(st.Total))).Round(2)
	}
	return st
}

// TopItem is a menu item ranked by units sold.
type TopItem struct {
	MenuItemID    string          `json:"menu_item_id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	TotalQuantity int             `json:"total_quantity"`
}
