package validity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemory_GetSetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute, time.Minute)
	until := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	_, ok := c.Get(ctx, "dl:1")
	assert.False(t, ok)

	c.Set(ctx, "dl:1", until)
	got, ok := c.Get(ctx, "dl:1")
	assert.True(t, ok)
	assert.Equal(t, until, got)

	c.Invalidate(ctx, "dl:1")
	_, ok = c.Get(ctx, "dl:1")
	assert.False(t, ok)
}

func TestValid(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, Valid(now.Add(time.Second), now))
	assert.False(t, Valid(now, now), "validity ends at the expiry instant")
	assert.False(t, Valid(time.Time{}, now))
	assert.True(t, Valid(Never, now))
}
