package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("nil tx leaves context untouched", func(t *testing.T) {
		got := WithTx(ctx, nil)
		_, ok := From(got)
		assert.False(t, ok)
	})

	t.Run("stored tx is returned", func(t *testing.T) {
		tx := &sql.Tx{}
		got, ok := From(WithTx(ctx, tx))
		assert.True(t, ok)
		assert.Same(t, tx, got)
	})

	t.Run("pick falls back to db", func(t *testing.T) {
		db := &sql.DB{}
		assert.Same(t, db, Pick(ctx, db))
		tx := &sql.Tx{}
		assert.Same(t, tx, Pick(WithTx(ctx, tx), db))
	})
}
