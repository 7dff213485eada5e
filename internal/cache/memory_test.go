package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetDelete(t *testing.T) {
	c := NewMemory("bootscript", time.Minute)
	ctx := context.Background()

	_, err := c.Get(ctx, "x1")
	assert.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "x1", "#!ipxe\nkernel ...", 0))

	got, err := c.Get(ctx, "x1")
	require.NoError(t, err)
	assert.Contains(t, got, "#!ipxe")

	ok, err := c.Exists(ctx, "x1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "x1"))
	_, err = c.Get(ctx, "x1")
	assert.True(t, IsNotFound(err))
}

func TestMemory_TTLExpires(t *testing.T) {
	c := NewMemory("", time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.True(t, IsNotFound(err))
}

func TestMemory_Stats(t *testing.T) {
	c := NewMemory("", time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	c.Get(ctx, "a")
	c.Get(ctx, "nope")

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", st.Driver)
	assert.EqualValues(t, 1, st.Keys)
	assert.EqualValues(t, 1, st.Hits)
	assert.EqualValues(t, 1, st.Misses)
}
