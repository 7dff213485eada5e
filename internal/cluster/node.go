package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"

	appmetrics "github.com/dropDatabas3/bootjohn/internal/metrics"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
)

// Node es un wrapper liviano alrededor de *raft.Raft
// que provee helpers de Apply/Leader/Close y un constructor
// que inicializa stores (BoltDB), snapshots y transporte TCP.
type Node struct {
	r            *raft.Raft
	applyTimeout time.Duration
	id           raft.ServerID
	addr         raft.ServerAddress
	peers        map[string]string // nodeID -> raftAddr
}

type NodeOptions struct {
	NodeID   string   // Identidad de este nodo (cfg.Cluster.NodeID)
	RaftAddr string   // host:port para transporte Raft (cfg.Cluster.RaftAddr)
	DataDir  string   // Directorio de datos de Raft
	FSM      raft.FSM // Implementación de FSM
	// Nodes: conjunto estático "id@host:port". Con más de uno, bootstrap
	// estático en un solo nodo (el de menor NodeID, o el marcado).
	Nodes []string
	// BootstrapPreferred: si true, este nodo intentará ser el bootstrapper
	// inicial cuando no hay estado. Úsese solo en un nodo.
	BootstrapPreferred bool
	ApplyTimeout       time.Duration
}

// ParsePeers convierte la lista "id@host:port" a un mapa nodeID -> addr.
func ParsePeers(nodes []string) (map[string]string, error) {
	peers := make(map[string]string, len(nodes))
	for _, n := range nodes {
		id, addr, ok := strings.Cut(n, "@")
		if !ok || id == "" || addr == "" {
			return nil, fmt.Errorf("cluster: malformed node entry %q (want id@host:port)", n)
		}
		peers[id] = addr
	}
	return peers, nil
}

func NewNode(opts NodeOptions) (*Node, error) {
	if opts.NodeID == "" || opts.RaftAddr == "" || opts.DataDir == "" || opts.FSM == nil {
		return nil, errors.New("cluster: invalid NodeOptions")
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("cluster: mkdir data dir: %w", err)
	}
	peers, err := ParsePeers(opts.Nodes)
	if err != nil {
		return nil, err
	}

	log := logger.Named("cluster")

	// Stores: log + stable en la misma Bolt DB.
	boltPath := filepath.Join(opts.DataDir, "raft.db")
	boltStore, err := raftboltdb.NewBoltStore(boltPath)
	if err != nil {
		return nil, fmt.Errorf("cluster: bolt store: %w", err)
	}
	logStore := boltStore
	stableStore := boltStore

	// Snapshots en disco (retenemos 2).
	snapStore, err := raft.NewFileSnapshotStore(opts.DataDir, 2, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("cluster: snapshot store: %w", err)
	}

	trans, err := raft.NewTCPTransport(opts.RaftAddr, nil, 3, 10*time.Second, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("cluster: tcp transport: %w", err)
	}

	cfg := raft.DefaultConfig()
	cfg.LocalID = raft.ServerID(opts.NodeID)

	r, err := raft.NewRaft(cfg, opts.FSM, logStore, stableStore, snapStore, trans)
	if err != nil {
		return nil, fmt.Errorf("cluster: new raft: %w", err)
	}

	// Leadership change counter (metrics)
	go func(ch <-chan bool) {
		for v := range ch {
			if v {
				appmetrics.RaftLeadershipChanges.Inc()
			}
		}
	}(r.LeaderCh())

	// Bootstrap si no hay estado previo
	hasState, err := raft.HasExistingState(logStore, stableStore, snapStore)
	if err != nil {
		return nil, fmt.Errorf("cluster: check state: %w", err)
	}
	if !hasState {
		if len(peers) <= 1 {
			conf := raft.Configuration{Servers: []raft.Server{{ID: cfg.LocalID, Address: trans.LocalAddr()}}}
			if err := r.BootstrapCluster(conf).Error(); err != nil {
				return nil, fmt.Errorf("cluster: bootstrap: %w", err)
			}
			log.Info("bootstrapped single-node cluster",
				logger.String("node_id", opts.NodeID),
				logger.String("raft_addr", opts.RaftAddr),
			)
		} else {
			// Bootstrap estático en un solo nodo determinístico (menor NodeID)
			smallest := opts.NodeID
			for k := range peers {
				if k < smallest {
					smallest = k
				}
			}
			if opts.BootstrapPreferred || opts.NodeID == smallest {
				var servers []raft.Server
				for id, addr := range peers {
					servers = append(servers, raft.Server{ID: raft.ServerID(id), Address: raft.ServerAddress(addr)})
				}
				conf := raft.Configuration{Servers: servers}
				if err := r.BootstrapCluster(conf).Error(); err != nil {
					return nil, fmt.Errorf("cluster: bootstrap(static): %w", err)
				}
				log.Info("bootstrapped static cluster",
					logger.Count(len(servers)),
					logger.String("node_id", opts.NodeID),
				)
			} else {
				log.Info("waiting to join static cluster",
					logger.String("node_id", opts.NodeID),
					logger.String("bootstrapper", smallest),
				)
			}
		}
	}

	// Track raft log file size periodically
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for range t.C {
			if st, err := os.Stat(boltPath); err == nil {
				appmetrics.RaftLogSizeBytes.Set(float64(st.Size()))
			}
		}
	}()

	applyTimeout := opts.ApplyTimeout
	if applyTimeout <= 0 {
		applyTimeout = 5 * time.Second
	}

	return &Node{
		r:            r,
		applyTimeout: applyTimeout,
		id:           cfg.LocalID,
		addr:         trans.LocalAddr(),
		peers:        peers,
	}, nil
}

// Apply serializa la mutación y espera commit o timeout. Si la FSM devolvió
// un error de aplicación, lo retorna.
func (n *Node) Apply(ctx context.Context, m Mutation) error {
	if n == nil || n.r == nil {
		return errors.New("cluster: raft not initialized")
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return err
	}

	start := time.Now()
	fut := n.r.Apply(buf, n.applyTimeout)

	// Respetar cancelación de ctx mientras esperamos el futuro.
	done := make(chan struct{})
	var applyErr error
	var response interface{}
	go func() {
		applyErr = fut.Error()
		if applyErr == nil {
			response = fut.Response()
		}
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		appmetrics.RaftApplyLatency.Observe(float64(time.Since(start).Milliseconds()))
		if applyErr != nil {
			return applyErr
		}
		if err, ok := response.(error); ok {
			return err
		}
		return nil
	}
}

func (n *Node) IsLeader() bool {
	if n == nil || n.r == nil {
		return false
	}
	return n.r.State() == raft.Leader
}

// LeaderAddr retorna la dirección del líder actual, si se conoce.
func (n *Node) LeaderAddr() string {
	if n == nil || n.r == nil {
		return ""
	}
	addr, _ := n.r.LeaderWithID()
	return string(addr)
}

func (n *Node) LeaderID() string {
	if n == nil || n.r == nil {
		return ""
	}
	addr, id := n.r.LeaderWithID()
	if id != "" {
		return string(id)
	}
	return string(addr)
}

func (n *Node) NodeID() string {
	if n == nil {
		return ""
	}
	return string(n.id)
}

func (n *Node) RaftAddr() string {
	if n == nil {
		return ""
	}
	return string(n.addr)
}

func (n *Node) PeerMap() map[string]string { return n.peers }

// Stats expone las métricas internas de Raft tal como las produce
// raft.Raft.Stats().
func (n *Node) Stats() map[string]string {
	if n == nil || n.r == nil {
		return map[string]string{}
	}
	return n.r.Stats()
}

func (n *Node) Close() error {
	if n == nil || n.r == nil {
		return nil
	}
	return n.r.Shutdown().Error()
}
