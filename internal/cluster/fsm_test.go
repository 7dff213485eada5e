package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/bootjohn/internal/engine"
	"github.com/dropDatabas3/bootjohn/internal/store/memory"
)

func newFSM(t *testing.T) (*FSM, *engine.Engine) {
	t.Helper()
	eng, err := engine.Open(context.Background(), memory.New())
	require.NoError(t, err)
	return NewFSM(eng), eng
}

func applyMutation(t *testing.T, f *FSM, m Mutation) interface{} {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return f.Apply(&raft.Log{Data: data})
}

func TestFSMApplyCreateDelete(t *testing.T) {
	f, eng := newFSM(t)

	res := applyMutation(t, f, Mutation{
		Op:     OpCreate,
		Hosts:  []string{"x1", "x2"},
		Kernel: "k1",
		Initrd: "i1",
		Params: "console=ttyS0",
	})
	assert.Nil(t, res)

	views, err := eng.List(engine.AllHosts())
	require.NoError(t, err)
	require.Len(t, views, 2)

	res = applyMutation(t, f, Mutation{Op: OpDelete, Hosts: []string{"x1"}})
	assert.Nil(t, res)
	views, err = eng.List(engine.AllHosts())
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestFSMApplyUpdate(t *testing.T) {
	f, eng := newFSM(t)

	applyMutation(t, f, Mutation{Op: OpCreate, Hosts: []string{"x1"}, Kernel: "k1", Initrd: "i1"})
	res := applyMutation(t, f, Mutation{Op: OpUpdate, Hosts: []string{"x1"}, Params: "quiet"})
	assert.Nil(t, res)

	v, ok := eng.Lookup("x1")
	require.True(t, ok)
	assert.Equal(t, "quiet", v.Params)
}

func TestFSMApplyErrorsSurface(t *testing.T) {
	f, _ := newFSM(t)

	// Update de un host sin asignar: la FSM devuelve el error del engine.
	res := applyMutation(t, f, Mutation{Op: OpUpdate, Hosts: []string{"ghost"}, Params: "p"})
	err, ok := res.(error)
	require.True(t, ok)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	res = applyMutation(t, f, Mutation{Op: "nope"})
	_, ok = res.(error)
	assert.True(t, ok)
}

type memSink struct {
	bytes.Buffer
}

func (m *memSink) ID() string    { return "test" }
func (m *memSink) Cancel() error { return nil }
func (m *memSink) Close() error  { return nil }

func TestFSMSnapshotRestore(t *testing.T) {
	f, _ := newFSM(t)
	applyMutation(t, f, Mutation{Op: OpCreate, Hosts: []string{"x1", "x2"}, Kernel: "k1", Initrd: "i1"})

	snap, err := f.Snapshot()
	require.NoError(t, err)

	var sink memSink
	require.NoError(t, snap.Persist(&sink))
	snap.Release()

	f2, eng2 := newFSM(t)
	require.NoError(t, f2.Restore(io.NopCloser(&sink)))

	views, err := eng2.List(engine.AllHosts())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "k1", views[0].Kernel)

	rows := eng2.Snapshot()
	assert.Len(t, rows, 2)
}

func TestParsePeers(t *testing.T) {
	peers, err := ParsePeers([]string{"n1@10.0.0.1:27779", "n2@10.0.0.2:27779"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"n1": "10.0.0.1:27779",
		"n2": "10.0.0.2:27779",
	}, peers)

	_, err = ParsePeers([]string{"garbage"})
	assert.Error(t, err)
}
