package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		err := Wrap(ErrNotFound, "ledger entry")
		assert.Error(t, err)
		assert.Equal(t, "ledger entry: not found", err.Error())
		assert.True(t, Is(err, ErrNotFound))
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "context"))
	})

	t.Run("preserves chain through multiple wraps", func(t *testing.T) {
		err := Wrap(Wrap(ErrTransient, "version conflict"), "lock stock")
		assert.True(t, Is(err, ErrTransient))
	})
}

func TestIs(t *testing.T) {
	assert.True(t, Is(ErrConflict, ErrConflict))
	assert.False(t, Is(ErrConflict, ErrNotFound))
	assert.False(t, Is(nil, ErrNotFound))
}

func TestNew(t *testing.T) {
	err := New("something went wrong")
	assert.Error(t, err)
	assert.Equal(t, "something went wrong", err.Error())
}
