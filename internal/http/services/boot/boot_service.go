// Package boot implementa la lógica de negocio del API de boot parameters,
// delegando en el engine y, en modo cluster, replicando mutaciones vía Raft.
package boot

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/bootjohn/internal/cluster"
	"github.com/dropDatabas3/bootjohn/internal/engine"
	"github.com/dropDatabas3/bootjohn/internal/metrics"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
)

// Service expone las operaciones del API de boot parameters.
type Service interface {
	Create(ctx context.Context, hosts []string, tuple engine.BootTuple) error
	Update(ctx context.Context, hosts []string, patch engine.UpdatePatch) error
	Delete(ctx context.Context, f engine.Filter) error
	List(f engine.Filter) ([]engine.View, error)
	Hosts() []string
	Dump() []engine.GroupDump
}

// applier abstrae la ruta de escritura: directa contra el engine en modo
// standalone, o vía log de Raft en modo cluster.
type applier interface {
	apply(ctx context.Context, m cluster.Mutation) error
}

type service struct {
	eng     *engine.Engine
	applier applier
}

// New construye el servicio en modo standalone: las escrituras van directo
// al engine local.
func New(eng *engine.Engine) Service {
	return &service{eng: eng, applier: directApplier{eng: eng}}
}

// NewReplicated construye el servicio en modo cluster: las escrituras pasan
// por el log de Raft y solo el líder las acepta. Con leaderHint, los rechazos
// a followers incluyen la dirección del líder para que el cliente redirija.
func NewReplicated(eng *engine.Engine, node *cluster.Node, leaderHint bool) Service {
	return &service{eng: eng, applier: raftApplier{node: node, leaderHint: leaderHint}}
}

func (s *service) Create(ctx context.Context, hosts []string, tuple engine.BootTuple) error {
	err := s.applier.apply(ctx, cluster.Mutation{
		Op:        cluster.OpCreate,
		Hosts:     hosts,
		Kernel:    tuple.Kernel,
		Initrd:    tuple.Initrd,
		Params:    tuple.Params,
		CloudInit: tuple.CloudInit,
		TsUnix:    time.Now().Unix(),
	})
	s.observe(ctx, "create", err)
	return err
}

func (s *service) Update(ctx context.Context, hosts []string, patch engine.UpdatePatch) error {
	err := s.applier.apply(ctx, cluster.Mutation{
		Op:        cluster.OpUpdate,
		Hosts:     hosts,
		Kernel:    patch.Kernel,
		Initrd:    patch.Initrd,
		Params:    patch.Params,
		CloudInit: patch.CloudInit,
		TsUnix:    time.Now().Unix(),
	})
	s.observe(ctx, "update", err)
	return err
}

func (s *service) Delete(ctx context.Context, f engine.Filter) error {
	err := s.applier.apply(ctx, cluster.Mutation{
		Op:     cluster.OpDelete,
		Hosts:  f.Hosts,
		All:    f.All,
		TsUnix: time.Now().Unix(),
	})
	s.observe(ctx, "delete", err)
	return err
}

func (s *service) List(f engine.Filter) ([]engine.View, error) {
	return s.eng.List(f)
}

func (s *service) Hosts() []string {
	return s.eng.Hosts()
}

func (s *service) Dump() []engine.GroupDump {
	return s.eng.Dump()
}

// observe actualiza métricas y gauges después de cada mutación.
func (s *service) observe(ctx context.Context, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		logger.From(ctx).Warn("boot mutation failed", logger.Op(op), logger.Err(err))
	}
	metrics.EngineOps.WithLabelValues(op, result).Inc()

	hosts, groups := s.eng.Stats()
	metrics.AssignedHosts.Set(float64(hosts))
	metrics.ConfigGroups.Set(float64(groups))
}

// ---------------------------------------------------------------------------

type directApplier struct {
	eng *engine.Engine
}

func (d directApplier) apply(ctx context.Context, m cluster.Mutation) error {
	start := time.Now()
	var err error
	switch m.Op {
	case cluster.OpCreate:
		err = d.eng.Create(ctx, m.Hosts, engine.BootTuple{
			Kernel:    m.Kernel,
			Initrd:    m.Initrd,
			Params:    m.Params,
			CloudInit: m.CloudInit,
		})
	case cluster.OpUpdate:
		err = d.eng.Update(ctx, m.Hosts, engine.UpdatePatch{
			Kernel:    m.Kernel,
			Initrd:    m.Initrd,
			Params:    m.Params,
			CloudInit: m.CloudInit,
		})
	case cluster.OpDelete:
		err = d.eng.Delete(ctx, engine.Filter{Hosts: m.Hosts, All: m.All})
	default:
		err = fmt.Errorf("%w: unknown operation %q", engine.ErrInvalidArgument, m.Op)
	}
	metrics.EngineOpLatency.WithLabelValues(string(m.Op)).Observe(time.Since(start).Seconds() * 1000)
	return err
}

type raftApplier struct {
	node       *cluster.Node
	leaderHint bool
}

func (r raftApplier) apply(ctx context.Context, m cluster.Mutation) error {
	if !r.node.IsLeader() {
		metrics.RaftRejectedWrites.Inc()
		leader := r.node.LeaderAddr()
		if leader == "" {
			return fmt.Errorf("%w: no cluster leader elected", engine.ErrConflict)
		}
		if r.leaderHint {
			return fmt.Errorf("%w: not the leader, write to %s", engine.ErrConflict, leader)
		}
		return fmt.Errorf("%w: not the leader", engine.ErrConflict)
	}
	return r.node.Apply(ctx, m)
}
