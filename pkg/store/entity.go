package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"restaurantcore/pkg/apperr"
)

// DefaultAttempts bounds optimistic retries for single-row mutations.
const DefaultAttempts = 3

// Entity is any document type embedding Meta.
type Entity interface {
	meta() *Meta
}

type entityPtr[T any] interface {
	*T
	Entity
}

// Encode marshals an entity into a document, leaving out the meta columns.
func Encode(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for k := range fields {
		if MetaColumn(k) {
			delete(fields, k)
		}
	}
	return json.Marshal(fields)
}

// Decode builds an entity from a record.
func Decode[T any, P entityPtr[T]](rec Record) (T, error) {
	var v T
	if len(rec.Doc) > 0 {
		if err := json.Unmarshal(rec.Doc, &v); err != nil {
			return v, apperr.Store("store.decode", err)
		}
	}
	*P(&v).meta() = rec.Meta
	return v, nil
}

// DecodeAll decodes every record in order.
func DecodeAll[T any, P entityPtr[T]](recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := Decode[T, P](rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Get loads and decodes one row.
func Get[T any, P entityPtr[T]](ctx context.Context, gw Gateway, table, id string) (T, error) {
	rec, err := gw.Get(ctx, table, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T, P](rec)
}

// Find loads and decodes the rows matching q.
func Find[T any, P entityPtr[T]](ctx context.Context, gw Gateway, table string, q Query) ([]T, error) {
	recs, err := gw.Find(ctx, table, q)
	if err != nil {
		return nil, err
	}
	return DecodeAll[T, P](recs)
}

// Insert stores v, assigning a UUID when it has no id yet.
func Insert[T any, P entityPtr[T]](ctx context.Context, gw Gateway, table string, v T) (T, error) {
	id := P(&v).meta().ID
	if id == "" {
		id = uuid.NewString()
	}
	doc, err := Encode(v)
	if err != nil {
		return v, apperr.Store("store.encode", err)
	}
	rec, err := gw.Insert(ctx, table, Record{Meta: Meta{ID: id}, Doc: doc})
	if err != nil {
		return v, err
	}
	return Decode[T, P](rec)
}

// Update applies patch with a version precondition and decodes the result.
func Update[T any, P entityPtr[T]](ctx context.Context, gw Gateway, table, id string, patch Patch, expectedVersion int64) (T, error) {
	rec, err := gw.Update(ctx, table, id, patch, expectedVersion)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T, P](rec)
}

// WithRetry runs fn until it stops returning ErrVersionConflict, at most
// attempts times. Exhaustion yields a ConcurrentModification error; any other
// error is returned as is.
func WithRetry(ctx context.Context, op string, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * time.Millisecond):
			}
		}
		err = fn(ctx)
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}
	return apperr.ConcurrentModification(op, err)
}
