package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantcore/pkg/apperr"
)

type widget struct {
	Meta
	Name string `json:"name"`
}

func TestEncodeDropsMetaColumns(t *testing.T) {
	doc, err := Encode(widget{Meta: Meta{ID: "w1", Version: 4}, Name: "bolt"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(doc, &fields))
	assert.Equal(t, map[string]any{"name": "bolt"}, fields)
}

func TestDecodeTakesMetaFromRecord(t *testing.T) {
	w, err := Decode[widget](Record{Meta: Meta{ID: "w2", Version: 7}, Doc: json.RawMessage(`{"name":"nut"}`)})
	require.NoError(t, err)
	assert.Equal(t, "w2", w.ID)
	assert.Equal(t, int64(7), w.Version)
	assert.Equal(t, "nut", w.Name)
}

func TestWithRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "op", 3, func(context.Context) error {
		calls++
		if calls < 2 {
			return ErrVersionConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetryExhausted(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "inventory.set_quantity", 3, func(context.Context) error {
		calls++
		return ErrVersionConflict
	})
	assert.Equal(t, 3, calls)
	assert.True(t, apperr.Is(err, apperr.KindConcurrentModification))
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestWithRetryPassesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := WithRetry(context.Background(), "op", 3, func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestQueryBuilders(t *testing.T) {
	q := Where(Eq("status", "pending")).Sort(Asc("date"), Desc("time")).Page(10, 20)
	assert.Len(t, q.Filters, 1)
	assert.Equal(t, []Order{{Field: "date"}, {Field: "time", Desc: true}}, q.OrderBy)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 20, q.Offset)

	in := In("status", "pending", "confirmed")
	assert.Equal(t, OpIn, in.Op)
	assert.Equal(t, []any{"pending", "confirmed"}, in.Value)
	assert.True(t, MetaColumn("created_at"))
	assert.False(t, MetaColumn("status"))
}
