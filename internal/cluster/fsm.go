package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hashicorp/raft"

	"github.com/dropDatabas3/bootjohn/internal/engine"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
	"github.com/dropDatabas3/bootjohn/internal/store/core"
)

// FSM aplica las mutaciones replicadas al engine local del nodo.
type FSM struct {
	eng *engine.Engine
}

func NewFSM(eng *engine.Engine) *FSM {
	return &FSM{eng: eng}
}

// Apply decodifica la mutación y ejecuta la operación sobre el engine.
// El valor retornado viaja al caller de raft.Apply: nil en éxito, error si no.
func (f *FSM) Apply(l *raft.Log) interface{} {
	if l == nil || len(l.Data) == 0 {
		return nil
	}
	var m Mutation
	if err := json.Unmarshal(l.Data, &m); err != nil {
		return fmt.Errorf("cluster: decode mutation: %w", err)
	}

	ctx := context.Background()
	switch m.Op {
	case OpCreate:
		return errOrNil(f.eng.Create(ctx, m.Hosts, engine.BootTuple{
			Kernel:    m.Kernel,
			Initrd:    m.Initrd,
			Params:    m.Params,
			CloudInit: m.CloudInit,
		}))
	case OpUpdate:
		return errOrNil(f.eng.Update(ctx, m.Hosts, engine.UpdatePatch{
			Kernel:    m.Kernel,
			Initrd:    m.Initrd,
			Params:    m.Params,
			CloudInit: m.CloudInit,
		}))
	case OpDelete:
		filter := engine.Filter{Hosts: m.Hosts, All: m.All}
		return errOrNil(f.eng.Delete(ctx, filter))
	default:
		return fmt.Errorf("cluster: unknown mutation op %q", m.Op)
	}
}

// errOrNil evita devolver un *error no-nil con valor nil por la interfaz.
func errOrNil(err error) interface{} {
	if err != nil {
		return err
	}
	return nil
}

// Snapshot serializa el estado aplanado del engine.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	return &fsmSnapshot{rows: f.eng.Snapshot()}, nil
}

// Restore reemplaza el estado local con el snapshot recibido.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var rows []core.Assignment
	if err := json.NewDecoder(rc).Decode(&rows); err != nil {
		return fmt.Errorf("cluster: decode snapshot: %w", err)
	}
	if err := f.eng.Restore(context.Background(), rows); err != nil {
		return fmt.Errorf("cluster: restore snapshot: %w", err)
	}
	logger.Named("cluster").Info("snapshot restored", logger.HostCount(len(rows)))
	return nil
}

type fsmSnapshot struct {
	rows []core.Assignment
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	if err := json.NewEncoder(sink).Encode(s.rows); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}
