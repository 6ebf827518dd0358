// Package memory implements an in-memory store.Gateway.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/store"
)

// Gateway keeps every table in process memory. It is safe for concurrent use.
type Gateway struct {
	mu     sync.RWMutex
	tables map[string]map[string]store.Record
	now    func() time.Time
	last   time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New creates an empty in-memory gateway.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		tables: make(map[string]map[string]store.Record),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// stamp returns a strictly increasing UTC time so insertion order is
// recoverable from created_at. Callers hold mu.
func (g *Gateway) stamp() time.Time {
	t := g.now().UTC()
	if !t.After(g.last) {
		t = g.last.Add(time.Nanosecond)
	}
	g.last = t
	return t
}

func (g *Gateway) table(name string) map[string]store.Record {
	t, ok := g.tables[name]
	if !ok {
		t = make(map[string]store.Record)
		g.tables[name] = t
	}
	return t
}

// Get retrieves a row by id.
func (g *Gateway) Get(ctx context.Context, table, id string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, apperr.Store("memory.get", err)
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.tables[table][id]
	if !ok {
		return store.Record{}, apperr.NotFound("memory.get", "%s/%s not found", table, id)
	}
	return clone(rec), nil
}

// Find returns matching rows in the requested order.
func (g *Gateway) Find(ctx context.Context, table string, q store.Query) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Store("memory.find", err)
	}
	g.mu.RLock()
	rows, err := g.match(table, q)
	g.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	sortRows(rows, q.OrderBy)
	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			return []store.Record{}, nil
		}
		rows = rows[q.Offset:]
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

// Count returns the number of matching rows.
func (g *Gateway) Count(ctx context.Context, table string, q store.Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperr.Store("memory.count", err)
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	rows, err := g.match(table, q)
	return len(rows), err
}

// Insert stores a new row.
func (g *Gateway) Insert(ctx context.Context, table string, rec store.Record) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, apperr.Store("memory.insert", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.table(table)
	if _, exists := t[rec.ID]; exists {
		return store.Record{}, apperr.Conflict("memory.insert", "%s/%s already exists", table, rec.ID)
	}
	now := g.stamp()
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.DeletedAt = nil
	if len(rec.Doc) == 0 {
		rec.Doc = json.RawMessage("{}")
	}
	rec = clone(rec)
	t[rec.ID] = rec
	return clone(rec), nil
}

// Update merges patch into the document under the version precondition.
func (g *Gateway) Update(ctx context.Context, table, id string, patch store.Patch, expectedVersion int64) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, apperr.Store("memory.update", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.tables[table][id]
	if !ok {
		return store.Record{}, apperr.NotFound("memory.update", "%s/%s not found", table, id)
	}
	if expectedVersion > 0 && rec.Version != expectedVersion {
		return store.Record{}, store.ErrVersionConflict
	}
	doc, err := merge(rec.Doc, patch)
	if err != nil {
		return store.Record{}, apperr.Store("memory.update", err)
	}
	rec.Doc = doc
	rec.Version++
	rec.UpdatedAt = g.stamp()
	g.tables[table][id] = rec
	return clone(rec), nil
}

// SoftDelete marks a row as deleted.
func (g *Gateway) SoftDelete(ctx context.Context, table, id string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, apperr.Store("memory.soft_delete", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.tables[table][id]
	if !ok {
		return store.Record{}, apperr.NotFound("memory.soft_delete", "%s/%s not found", table, id)
	}
	now := g.stamp()
	rec.DeletedAt = &now
	rec.UpdatedAt = now
	rec.Version++
	g.tables[table][id] = rec
	return clone(rec), nil
}

// HardDelete removes matching rows, soft-deleted ones included.
func (g *Gateway) HardDelete(ctx context.Context, table string, q store.Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperr.Store("memory.hard_delete", err)
	}
	q.WithDeleted = true
	g.mu.Lock()
	defer g.mu.Unlock()
	rows, err := g.match(table, q)
	if err != nil {
		return 0, err
	}
	for _, rec := range rows {
		delete(g.tables[table], rec.ID)
	}
	return len(rows), nil
}

// match filters a table. Callers hold mu.
func (g *Gateway) match(table string, q store.Query) ([]store.Record, error) {
	out := make([]store.Record, 0)
	for _, rec := range g.tables[table] {
		if rec.Deleted() && !q.WithDeleted {
			continue
		}
		ok, err := matches(rec, q.Filters)
		if err != nil {
			return nil, apperr.Store("memory.match", err)
		}
		if ok {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

func clone(rec store.Record) store.Record {
	rec.Doc = append(json.RawMessage(nil), rec.Doc...)
	if rec.DeletedAt != nil {
		t := *rec.DeletedAt
		rec.DeletedAt = &t
	}
	return rec
}

func merge(doc json.RawMessage, patch store.Patch) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &fields); err != nil {
			return nil, err
		}
	}
	for k, v := range patch {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		fields[k] = raw
	}
	return json.Marshal(fields)
}
