package core

import "encoding/json"

// Assignment es el registro persistido por host: el tuple de boot completo
// que el engine resuelve para un nombre de host.
type Assignment struct {
	Host      string          `json:"host"`
	Kernel    string          `json:"kernel,omitempty"`
	Initrd    string          `json:"initrd,omitempty"`
	Params    string          `json:"params,omitempty"`
	CloudInit json.RawMessage `json:"cloud_init,omitempty"`
}

// Changeset es el delta atómico que produce una mutación del engine.
// Apply debe persistir upserts y deletes en una sola unidad: o todo o nada.
type Changeset struct {
	Upserts []Assignment
	Deletes []string // hosts
}

// Empty reporta si el changeset no tiene nada que aplicar.
func (c Changeset) Empty() bool {
	return len(c.Upserts) == 0 && len(c.Deletes) == 0
}
