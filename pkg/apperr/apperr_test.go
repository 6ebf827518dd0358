package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	base := Conflict("order.cancel", "order %s already cancelled", "o1")
	wrapped := fmt.Errorf("handler: %w", base)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindConflict))
	assert.False(t, Is(wrapped, KindValidation))
	assert.True(t, errors.Is(wrapped, &Error{Kind: KindConflict}))
	assert.Equal(t, "order.cancel: order o1 already cancelled", base.Error())
}

func TestStoreKeepsTypedErrors(t *testing.T) {
	nf := NotFound("store.get", "orders/1 not found")
	assert.Equal(t, KindNotFound, KindOf(Store("x", nf)))

	raw := errors.New("connection reset")
	err := Store("store.insert", raw)
	assert.Equal(t, KindStore, KindOf(err))
	assert.ErrorIs(t, err, raw)
	assert.Nil(t, Store("noop", nil))
}

func TestUnknownKind(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindStore))
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestStepKeepsKind(t *testing.T) {
	cm := ConcurrentModification("inventory.set_quantity", errors.New("stale"))
	err := Step("inventory.record_movement", "apply movement m1", cm)
	assert.Equal(t, KindConcurrentModification, KindOf(err))
	assert.Contains(t, err.Error(), "apply movement m1")

	assert.Equal(t, KindStore, KindOf(Step("order.create", "insert lines", errors.New("io"))))
	assert.Nil(t, Step("x", "y", nil))
}
