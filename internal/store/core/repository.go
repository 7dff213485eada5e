package core

import "context"

// Repository persiste las asignaciones por host.
//
// El engine es el dueño del estado en memoria: carga todo al arrancar con
// LoadAll y escribe cada mutación como un Changeset atómico antes de hacerla
// visible. Si Apply falla, el engine descarta la mutación completa.
type Repository interface {
	// LoadAll retorna todas las asignaciones persistidas.
	LoadAll(ctx context.Context) ([]Assignment, error)

	// Apply persiste el changeset de forma atómica.
	Apply(ctx context.Context, cs Changeset) error

	// Ping verifica conectividad (readiness).
	Ping(ctx context.Context) error

	// Close libera recursos (pool de conexiones, etc).
	Close() error
}
