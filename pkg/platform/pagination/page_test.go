package pagination

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, ClampPageSize(0))
	assert.Equal(t, DefaultPageSize, ClampPageSize(-3))
	assert.Equal(t, 10, ClampPageSize(10))
	assert.Equal(t, MaxPageSize, ClampPageSize(MaxPageSize+1))
}

func TestTake(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	cursor := func(v int) string { return strconv.Itoa(v) }

	t.Run("partial window carries cursor", func(t *testing.T) {
		res := Take(items, 2, cursor)
		assert.Equal(t, []int{1, 2}, res.Items)
		assert.Equal(t, "2", res.NextAfter)
	})

	t.Run("last window has no cursor", func(t *testing.T) {
		res := Take(items[3:], 2, cursor)
		assert.Equal(t, []int{4, 5}, res.Items)
		assert.Empty(t, res.NextAfter)
	})

	t.Run("empty listing yields empty items", func(t *testing.T) {
		res := Take[int](nil, 2, cursor)
		assert.NotNil(t, res.Items)
		assert.Empty(t, res.Items)
	})
}
