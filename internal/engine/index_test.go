package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexBindLookupUnbind(t *testing.T) {
	ix := newHostSetIndex()
	g := newGroup(BootTuple{Kernel: "k"})

	ix.Bind("a", g)
	ix.Bind("b", g)
	assert.Equal(t, 2, ix.Len())

	got, ok := ix.Lookup("a")
	require.True(t, ok)
	assert.Same(t, g, got)
	assert.Contains(t, g.Hosts, "a")

	old, ok := ix.Unbind("a")
	require.True(t, ok)
	assert.Same(t, g, old)
	assert.NotContains(t, g.Hosts, "a")
	assert.Equal(t, 1, ix.Len())

	_, ok = ix.Lookup("a")
	assert.False(t, ok)
}

func TestIndexUnbindMissing(t *testing.T) {
	ix := newHostSetIndex()
	g, ok := ix.Unbind("ghost")
	assert.False(t, ok)
	assert.Nil(t, g)
}

func TestIndexRebindMovesHost(t *testing.T) {
	ix := newHostSetIndex()
	g1 := newGroup(BootTuple{Kernel: "k1"})
	g2 := newGroup(BootTuple{Kernel: "k2"})

	ix.Bind("a", g1)
	old, ok := ix.Unbind("a")
	require.True(t, ok)
	require.Same(t, g1, old)
	ix.Bind("a", g2)

	got, _ := ix.Lookup("a")
	assert.Same(t, g2, got)
	assert.Empty(t, g1.Hosts)
}
