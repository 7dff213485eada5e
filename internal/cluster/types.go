// Package cluster provee la replicación embebida sobre Raft: las mutaciones
// del engine se escriben como entradas de log y cada nodo las aplica a su
// engine local.
package cluster

import "encoding/json"

// MutationOp define el catálogo de operaciones replicadas.
type MutationOp string

const (
	OpCreate MutationOp = "create"
	OpUpdate MutationOp = "update"
	OpDelete MutationOp = "delete"
)

// Mutation representa una operación a replicar por Raft.
// Para create lleva el tuple completo; para update los campos del patch;
// para delete solo el filtro de hosts.
type Mutation struct {
	Op        MutationOp      `json:"op"`
	Hosts     []string        `json:"hosts,omitempty"`
	All       bool            `json:"all,omitempty"` // delete: matchear todo
	Kernel    string          `json:"kernel,omitempty"`
	Initrd    string          `json:"initrd,omitempty"`
	Params    string          `json:"params,omitempty"`
	CloudInit json.RawMessage `json:"cloud_init,omitempty"`
	TsUnix    int64           `json:"ts_unix"`
}
