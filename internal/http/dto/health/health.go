package health

import "time"

// ComponentStatus describe el estado de un componente individual.
type ComponentStatus struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse es la respuesta de los endpoints de health/readiness.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// ClusterStatus expone el estado del consenso cuando el modo cluster está activo.
type ClusterStatus struct {
	NodeID     string            `json:"node_id"`
	IsLeader   bool              `json:"is_leader"`
	LeaderAddr string            `json:"leader_addr,omitempty"`
	LeaderID   string            `json:"leader_id,omitempty"`
	Peers      map[string]string `json:"peers,omitempty"`
	Raft       map[string]string `json:"raft,omitempty"`
}
