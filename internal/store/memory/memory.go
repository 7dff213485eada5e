// Package memory implementa un Repository en memoria.
//
// Pensado para desarrollo, tests y nodos follower de un cluster embebido
// (el estado replicado llega por raft, no hace falta durabilidad local).
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/bootjohn/internal/store/core"
)

// Store es un Repository respaldado por un map protegido por mutex.
type Store struct {
	mu   sync.RWMutex
	rows map[string]core.Assignment // host -> assignment
}

// New crea un Store vacío.
func New() *Store {
	return &Store{rows: make(map[string]core.Assignment)}
}

// LoadAll retorna una copia de todas las asignaciones.
func (s *Store) LoadAll(ctx context.Context) ([]core.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Assignment, 0, len(s.rows))
	for _, a := range s.rows {
		out = append(out, a)
	}
	return out, nil
}

// Apply aplica el changeset. Sobre un map en memoria la atomicidad es
// trivial: todo ocurre bajo el mismo lock.
func (s *Store) Apply(ctx context.Context, cs core.Changeset) error {
	if cs.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, host := range cs.Deletes {
		delete(s.rows, host)
	}
	for _, a := range cs.Upserts {
		s.rows[a.Host] = a
	}
	return nil
}

// Ping siempre responde ok.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close no tiene recursos que liberar.
func (s *Store) Close() error { return nil }
