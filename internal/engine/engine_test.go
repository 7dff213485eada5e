package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/bootjohn/internal/store/core"
	"github.com/dropDatabas3/bootjohn/internal/store/memory"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(context.Background(), memory.New())
	require.NoError(t, err)
	return e
}

func mustList(t *testing.T, e *Engine, f Filter) []View {
	t.Helper()
	views, err := e.List(f)
	require.NoError(t, err)
	return views
}

func TestCreateAndListTwoHosts(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tuple := BootTuple{Kernel: "s3://boot/kernel", Initrd: "s3://boot/initrd", Params: "console=ttyS0"}
	require.NoError(t, e.Create(ctx, []string{"x1", "x2"}, tuple))

	views := mustList(t, e, ByHosts("x1", "x2"))
	require.Len(t, views, 2)
	assert.Equal(t, []string{"x1"}, views[0].Hosts)
	assert.Equal(t, []string{"x2"}, views[1].Hosts)
	for _, v := range views {
		assert.Equal(t, tuple.Kernel, v.Kernel)
		assert.Equal(t, tuple.Initrd, v.Initrd)
		assert.Equal(t, tuple.Params, v.Params)
	}
}

func TestCreateSupersedes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	t1 := BootTuple{Kernel: "k1", Initrd: "i1", Params: "p1"}
	t2 := BootTuple{Kernel: "k2", Initrd: "i2", Params: "p2"}
	require.NoError(t, e.Create(ctx, []string{"a", "b", "c"}, t1))

	// b se muda a t2: el grupo de t1 se parte, nunca falla por overlap.
	require.NoError(t, e.Create(ctx, []string{"b"}, t2))

	views := mustList(t, e, ByHosts("a", "b", "c"))
	require.Len(t, views, 3)
	assert.Equal(t, "k1", views[0].Kernel) // a
	assert.Equal(t, "k2", views[1].Kernel) // b
	assert.Equal(t, "k1", views[2].Kernel) // c

	hosts, groups := e.Stats()
	assert.Equal(t, 3, hosts)
	assert.Equal(t, 2, groups)
}

func TestCreateMergesIntoExactTupleGroup(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	t1 := BootTuple{Kernel: "k1", Initrd: "i1"}
	require.NoError(t, e.Create(ctx, []string{"a"}, t1))
	require.NoError(t, e.Create(ctx, []string{"b"}, BootTuple{Kernel: "k2", Initrd: "i2"}))

	// b vuelve al tuple de a: mismo grupo, el de k2 se poda.
	require.NoError(t, e.Create(ctx, []string{"b"}, t1))

	hosts, groups := e.Stats()
	assert.Equal(t, 2, hosts)
	assert.Equal(t, 1, groups)

	dump := e.Dump()
	require.Len(t, dump, 1)
	assert.Equal(t, []string{"a", "b"}, dump[0].Hosts)
}

func TestCreateIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tuple := BootTuple{Kernel: "k1", Initrd: "i1"}
	require.NoError(t, e.Create(ctx, []string{"a", "b"}, tuple))
	require.NoError(t, e.Create(ctx, []string{"a", "b"}, tuple))

	hosts, groups := e.Stats()
	assert.Equal(t, 2, hosts)
	assert.Equal(t, 1, groups)
}

func TestCreateInvalidArgs(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	err := e.Create(ctx, nil, BootTuple{Kernel: "k", Initrd: "i"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = e.Create(ctx, []string{"bad host"}, BootTuple{Kernel: "k", Initrd: "i"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = e.Create(ctx, []string{"x1"}, BootTuple{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = e.Create(ctx, []string{"x1"}, BootTuple{Kernel: "k", Initrd: "i", CloudInit: json.RawMessage(`{oops`)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCreateRequiresKernelAndInitrd(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// Params solo no alcanza: kernel e initrd son obligatorios.
	err := e.Create(ctx, []string{"x1"}, BootTuple{Params: "console=ttyS0"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = e.Create(ctx, []string{"x1"}, BootTuple{Kernel: "k"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = e.Create(ctx, []string{"x1"}, BootTuple{Initrd: "i"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Los intentos rechazados no dejaron nada asignado.
	_, ok := e.Lookup("x1")
	assert.False(t, ok)
}

func TestListUnmatchedIsEmptyNotError(t *testing.T) {
	e := newTestEngine(t)
	assert.Empty(t, mustList(t, e, ByHosts("ghost")))
	assert.Empty(t, mustList(t, e, AllHosts()))
}

func TestListAndDeleteRejectMalformedNames(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, []string{"a"}, BootTuple{Kernel: "k", Initrd: "i"}))

	// Un nombre imposible de asignar es un error del caller, no un "no match".
	_, err := e.List(ByHosts("bad host"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = e.Delete(ctx, ByHosts(";rm", "a"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// El delete rechazado no tocó los hosts válidos del filter.
	_, ok := e.Lookup("a")
	assert.True(t, ok)
}

func TestListAll(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, []string{"b", "a"}, BootTuple{Kernel: "k", Initrd: "i"}))

	views := mustList(t, e, AllHosts())
	require.Len(t, views, 2)
	assert.Equal(t, []string{"a"}, views[0].Hosts)
	assert.Equal(t, []string{"b"}, views[1].Hosts)
}

func TestDeleteIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, []string{"a", "b"}, BootTuple{Kernel: "k", Initrd: "i"}))

	require.NoError(t, e.Delete(ctx, ByHosts("a")))
	require.NoError(t, e.Delete(ctx, ByHosts("a"))) // segundo delete: no-op
	require.NoError(t, e.Delete(ctx, ByHosts("never-existed")))

	views := mustList(t, e, AllHosts())
	require.Len(t, views, 1)
	assert.Equal(t, []string{"b"}, views[0].Hosts)
}

func TestDeleteLastHostPrunesGroup(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, []string{"a"}, BootTuple{Kernel: "k", Initrd: "i"}))
	require.NoError(t, e.Delete(ctx, ByHosts("a")))

	hosts, groups := e.Stats()
	assert.Zero(t, hosts)
	assert.Zero(t, groups)
}

func TestUpdatePatchesExisting(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, []string{"a"}, BootTuple{Kernel: "k1", Initrd: "i1", Params: "p1"}))
	require.NoError(t, e.Update(ctx, []string{"a"}, UpdatePatch{Params: "p2"}))

	v, ok := e.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "k1", v.Kernel) // no tocado
	assert.Equal(t, "p2", v.Params)
}

func TestUpdateUnassignedHostFails(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, []string{"a"}, BootTuple{Kernel: "k1", Initrd: "i1"}))

	err := e.Update(ctx, []string{"a", "ghost"}, UpdatePatch{Params: "p"})
	assert.ErrorIs(t, err, ErrNotFound)

	// La operación entera se rechazó: a no cambió.
	v, _ := e.Lookup("a")
	assert.Empty(t, v.Params)
}

func TestUpdateMergesCloudInit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, []string{"a"}, BootTuple{
		Kernel:    "k1",
		Initrd:    "i1",
		CloudInit: json.RawMessage(`{"user-data":{"a":1,"b":2}}`),
	}))
	require.NoError(t, e.Update(ctx, []string{"a"}, UpdatePatch{
		CloudInit: json.RawMessage(`{"user-data":{"b":3}}`),
	}))

	v, _ := e.Lookup("a")
	var doc map[string]map[string]int
	require.NoError(t, json.Unmarshal(v.CloudInit, &doc))
	assert.Equal(t, 1, doc["user-data"]["a"])
	assert.Equal(t, 3, doc["user-data"]["b"])
}

// failRepo falla en Apply para verificar que el engine no deja estado
// parcial visible cuando la persistencia falla.
type failRepo struct{ core.Repository }

var errBoom = errors.New("boom")

func (f failRepo) Apply(ctx context.Context, cs core.Changeset) error { return errBoom }

func TestFailedPersistLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()

	e, err := Open(ctx, mem)
	require.NoError(t, err)
	require.NoError(t, e.Create(ctx, []string{"a"}, BootTuple{Kernel: "k1", Initrd: "i1"}))

	e.repo = failRepo{Repository: mem}

	err = e.Create(ctx, []string{"a", "b"}, BootTuple{Kernel: "k2", Initrd: "i2"})
	require.ErrorIs(t, err, errBoom)

	// Nada cambió: a sigue en k1, b no existe.
	v, ok := e.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "k1", v.Kernel)
	_, ok = e.Lookup("b")
	assert.False(t, ok)

	err = e.Delete(ctx, ByHosts("a"))
	require.ErrorIs(t, err, errBoom)
	_, ok = e.Lookup("a")
	assert.True(t, ok)
}

func TestSnapshotRestoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	require.NoError(t, e.Create(ctx, []string{"a", "b"}, BootTuple{Kernel: "k1", Initrd: "i1"}))
	require.NoError(t, e.Create(ctx, []string{"c"}, BootTuple{Kernel: "k2", Initrd: "i2"}))

	snap := e.Snapshot()
	require.Len(t, snap, 3)

	other := newTestEngine(t)
	require.NoError(t, other.Create(ctx, []string{"stale"}, BootTuple{Kernel: "old", Initrd: "old"}))
	require.NoError(t, other.Restore(ctx, snap))

	assert.Equal(t, mustList(t, e, AllHosts()), mustList(t, other, AllHosts()))
	_, ok := other.Lookup("stale")
	assert.False(t, ok, "restore reemplaza el estado completo")

	hosts, groups := other.Stats()
	assert.Equal(t, 3, hosts)
	assert.Equal(t, 2, groups)
}

func TestOpenRebuildsGroupsFromStore(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	require.NoError(t, mem.Apply(ctx, core.Changeset{Upserts: []core.Assignment{
		{Host: "a", Kernel: "k1", Params: "p"},
		{Host: "b", Kernel: "k1", Params: "p"},
		{Host: "c", Kernel: "k2"},
	}}))

	e, err := Open(ctx, mem)
	require.NoError(t, err)

	hosts, groups := e.Stats()
	assert.Equal(t, 3, hosts)
	assert.Equal(t, 2, groups, "hosts con el mismo tuple comparten grupo")
}

func TestViewsAreDetachedFromState(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, []string{"a"}, BootTuple{
		Kernel:    "k",
		Initrd:    "i",
		CloudInit: json.RawMessage(`{"x":1}`),
	}))

	v, _ := e.Lookup("a")
	v.CloudInit[1] = 'y' // mutar la copia no toca el estado interno

	v2, _ := e.Lookup("a")
	assert.JSONEq(t, `{"x":1}`, string(v2.CloudInit))
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Create(ctx, []string{"seed"}, BootTuple{Kernel: "k", Initrd: "i"}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		host := string(rune('a' + i))
		go func() {
			defer wg.Done()
			_ = e.Create(ctx, []string{host}, BootTuple{Kernel: "k", Initrd: "i"})
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = e.List(AllHosts())
				e.Lookup("seed")
			}
		}()
	}
	wg.Wait()

	hosts, _ := e.Stats()
	assert.Equal(t, 9, hosts)
}
