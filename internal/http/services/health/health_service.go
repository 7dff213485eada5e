package health

import (
	"context"
	"time"

	"github.com/dropDatabas3/bootjohn/internal/cache"
	"github.com/dropDatabas3/bootjohn/internal/cluster"
	dto "github.com/dropDatabas3/bootjohn/internal/http/dto/health"
	"github.com/dropDatabas3/bootjohn/internal/store/core"
)

// Service reporta el estado del servicio y sus dependencias.
type Service interface {
	Liveness() dto.HealthResponse
	Readiness(ctx context.Context) dto.HealthResponse
	Cluster() (dto.ClusterStatus, bool)
}

type service struct {
	repo  core.Repository
	cache cache.Client  // puede ser nil
	node  *cluster.Node // puede ser nil
}

func New(repo core.Repository, cacheClient cache.Client, node *cluster.Node) Service {
	return &service{repo: repo, cache: cacheClient, node: node}
}

func (s *service) Liveness() dto.HealthResponse {
	return dto.HealthResponse{Status: "ok", Timestamp: time.Now().UTC()}
}

func (s *service) Readiness(ctx context.Context) dto.HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	components := make(map[string]dto.ComponentStatus)
	overall := "ok"

	if err := s.repo.Ping(ctx); err != nil {
		components["storage"] = dto.ComponentStatus{Status: "down", Detail: err.Error()}
		overall = "degraded"
	} else {
		components["storage"] = dto.ComponentStatus{Status: "ok"}
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			// Cache caído degrada performance, no disponibilidad
			components["cache"] = dto.ComponentStatus{Status: "down", Detail: err.Error()}
		} else {
			components["cache"] = dto.ComponentStatus{Status: "ok"}
		}
	}

	if s.node != nil {
		if s.node.LeaderAddr() == "" {
			components["cluster"] = dto.ComponentStatus{Status: "no_leader"}
			overall = "degraded"
		} else {
			components["cluster"] = dto.ComponentStatus{Status: "ok"}
		}
	}

	return dto.HealthResponse{Status: overall, Components: components, Timestamp: time.Now().UTC()}
}

func (s *service) Cluster() (dto.ClusterStatus, bool) {
	if s.node == nil {
		return dto.ClusterStatus{}, false
	}
	return dto.ClusterStatus{
		NodeID:     s.node.NodeID(),
		IsLeader:   s.node.IsLeader(),
		LeaderAddr: s.node.LeaderAddr(),
		LeaderID:   s.node.LeaderID(),
		Peers:      s.node.PeerMap(),
		Raft:       s.node.Stats(),
	}, true
}
