package boot

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/bootjohn/internal/engine"
	"github.com/dropDatabas3/bootjohn/internal/metrics"
	"github.com/dropDatabas3/bootjohn/internal/store/memory"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	eng, err := engine.Open(context.Background(), memory.New())
	require.NoError(t, err)
	return New(eng)
}

func TestCreateThenList(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, []string{"nid01", "nid02"}, engine.BootTuple{Kernel: "k1", Initrd: "i1"}))

	views, err := s.List(engine.ByHosts("nid01", "nid02"))
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, []string{"nid01"}, views[0].Hosts)
	assert.Equal(t, []string{"nid02"}, views[1].Hosts)
}

func TestUpdateRoutesThroughApplier(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, []string{"nid01"}, engine.BootTuple{Kernel: "k1", Initrd: "i1"}))
	require.NoError(t, s.Update(ctx, []string{"nid01"}, engine.UpdatePatch{Params: "quiet"}))

	views, err := s.List(engine.ByHosts("nid01"))
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "k1", views[0].Kernel)
	assert.Equal(t, "quiet", views[0].Params)
}

func TestUpdateUnassignedHostFails(t *testing.T) {
	s := newTestService(t)
	err := s.Update(context.Background(), []string{"ghost"}, engine.UpdatePatch{Kernel: "k1"})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, []string{"nid01"}, engine.BootTuple{Kernel: "k1", Initrd: "i1"}))
	require.NoError(t, s.Delete(ctx, engine.ByHosts("nid01")))
	require.NoError(t, s.Delete(ctx, engine.ByHosts("nid01")))

	assert.Empty(t, s.Hosts())
}

func TestDumpGroupsByTuple(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, []string{"nid01", "nid02"}, engine.BootTuple{Kernel: "k1", Initrd: "i1"}))
	require.NoError(t, s.Create(ctx, []string{"nid03"}, engine.BootTuple{Kernel: "k2", Initrd: "i2"}))

	groups := s.Dump()
	require.Len(t, groups, 2)
}

func TestReplicatedWriteWithoutLeaderIsRejected(t *testing.T) {
	eng, err := engine.Open(context.Background(), memory.New())
	require.NoError(t, err)

	// Sin nodo raft inicializado no hay líder: toda escritura se rechaza
	// con Conflict y queda contada como rechazo.
	s := NewReplicated(eng, nil, true)

	before := testutil.ToFloat64(metrics.RaftRejectedWrites)
	err = s.Create(context.Background(), []string{"nid01"}, engine.BootTuple{Kernel: "k1", Initrd: "i1"})
	assert.ErrorIs(t, err, engine.ErrConflict)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RaftRejectedWrites))

	// El engine local no fue tocado.
	assert.Empty(t, eng.Hosts())
}
