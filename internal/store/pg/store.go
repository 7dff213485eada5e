// Package pg implementa el Repository sobre PostgreSQL usando pgx/v5.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
	"github.com/dropDatabas3/bootjohn/internal/store/core"
)

// Config tunea el pool de conexiones.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Store es un Repository respaldado por un pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

// New abre el pool y verifica conectividad.
func New(ctx context.Context, cfg Config) (*Store, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("pg: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}

	logger.Named("store.pg").Info("connected",
		logger.Int("max_conns", int(pc.MaxConns)),
	)
	return &Store{pool: pool}, nil
}

// LoadAll lee todas las asignaciones de boot_assignment.
func (s *Store) LoadAll(ctx context.Context) ([]core.Assignment, error) {
	const q = `
SELECT host, kernel, initrd, params, cloud_init
FROM boot_assignment`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("pg: load all: %w", err)
	}
	defer rows.Close()

	var out []core.Assignment
	for rows.Next() {
		var a core.Assignment
		if err := rows.Scan(&a.Host, &a.Kernel, &a.Initrd, &a.Params, &a.CloudInit); err != nil {
			return nil, fmt.Errorf("pg: scan assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg: load all: %w", err)
	}
	return out, nil
}

// Apply persiste el changeset en una sola transacción.
// Deletes primero, después upserts: un host puede aparecer en ambos lados.
func (s *Store) Apply(ctx context.Context, cs core.Changeset) error {
	if cs.Empty() {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(cs.Deletes) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM boot_assignment WHERE host = ANY($1)`, cs.Deletes); err != nil {
			return fmt.Errorf("pg: delete: %w", err)
		}
	}

	const upsert = `
INSERT INTO boot_assignment (host, kernel, initrd, params, cloud_init, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (host) DO UPDATE SET
  kernel     = EXCLUDED.kernel,
  initrd     = EXCLUDED.initrd,
  params     = EXCLUDED.params,
  cloud_init = EXCLUDED.cloud_init,
  updated_at = now()`

	for _, a := range cs.Upserts {
		if _, err := tx.Exec(ctx, upsert, a.Host, a.Kernel, a.Initrd, a.Params, a.CloudInit); err != nil {
			return fmt.Errorf("pg: upsert %s: %w", a.Host, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: commit: %w", err)
	}
	return nil
}

// Ping verifica el pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close cierra el pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
