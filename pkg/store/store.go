// Package store is the gateway over the persistent datastore. Rows are JSON
// documents carrying an id, a version used for conditional updates, and
// created/updated/deleted timestamps.
//
// Soft-deleted rows are hidden from Find and Count unless Query.WithDeleted is
// set. Get returns them so callers can tell "deleted" from "never existed".
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrVersionConflict is returned by Update when the expected version no
// longer matches the stored row.
var ErrVersionConflict = errors.New("store: version conflict")

// Meta holds the columns every row carries outside its document.
type Meta struct {
	ID        string     `json:"id"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (m *Meta) meta() *Meta { return m }

// Deleted reports whether the row carries a soft-delete marker.
func (m Meta) Deleted() bool { return m.DeletedAt != nil }

// Record is a stored row.
type Record struct {
	Meta
	Doc json.RawMessage
}

// Patch is a partial document merged into a row on Update.
type Patch map[string]any

// Gateway is implemented by the storage drivers.
type Gateway interface {
	Get(ctx context.Context, table, id string) (Record, error)
	Find(ctx context.Context, table string, q Query) ([]Record, error)
	Count(ctx context.Context, table string, q Query) (int, error)
	Insert(ctx context.Context, table string, rec Record) (Record, error)
	// Update merges patch into the row. expectedVersion 0 skips the version
	// check; any other value must match or ErrVersionConflict is returned.
	Update(ctx context.Context, table, id string, patch Patch, expectedVersion int64) (Record, error)
	SoftDelete(ctx context.Context, table, id string) (Record, error)
	HardDelete(ctx context.Context, table string, q Query) (int, error)
}

// Op is a filter comparison.
type Op string

const (
	OpEq  Op = "eq"
	OpIn  Op = "in"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

// Filter compares one meta column or document field against a value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Filter  { return Filter{Field: field, Op: OpEq, Value: v} }
func Gt(field string, v any) Filter  { return Filter{Field: field, Op: OpGt, Value: v} }
func Gte(field string, v any) Filter { return Filter{Field: field, Op: OpGte, Value: v} }
func Lt(field string, v any) Filter  { return Filter{Field: field, Op: OpLt, Value: v} }
func Lte(field string, v any) Filter { return Filter{Field: field, Op: OpLte, Value: v} }

// In matches any of values.
func In[V any](field string, values ...V) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Field: field, Op: OpIn, Value: vs}
}

// Order sorts by a meta column or document field.
type Order struct {
	Field string
	Desc  bool
}

func Asc(field string) Order  { return Order{Field: field} }
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// Query selects rows of one table. A zero Limit means no limit.
type Query struct {
	Filters     []Filter
	OrderBy     []Order
	Limit       int
	Offset      int
	WithDeleted bool
}

// Where returns a query with the given filters.
func Where(filters ...Filter) Query { return Query{Filters: filters} }

// Sort appends ordering terms.
func (q Query) Sort(orders ...Order) Query {
	q.OrderBy = append(append([]Order(nil), q.OrderBy...), orders...)
	return q
}

// Page sets limit and offset.
func (q Query) Page(limit, offset int) Query {
	q.Limit, q.Offset = limit, offset
	return q
}

// MetaColumn reports whether field names a row column rather than a
// document field.
func MetaColumn(field string) bool {
	switch field {
	case "id", "version", "created_at", "updated_at", "deleted_at":
		return true
	}
	return false
}
