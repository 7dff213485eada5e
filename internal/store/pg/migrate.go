package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
	migrations "github.com/dropDatabas3/bootjohn/migrations/postgres"
)

// Migrate aplica las migraciones embebidas que falten, en orden lexicográfico.
// Las aplicadas se registran en schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	log := logger.Named("store.pg")

	if _, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    name       TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return fmt.Errorf("pg: ensure schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrations.SchemaFS, migrations.SchemaDir)
	if err != nil {
		return fmt.Errorf("pg: read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var done bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&done); err != nil {
			return fmt.Errorf("pg: check migration %s: %w", name, err)
		}
		if done {
			continue
		}

		sql, err := fs.ReadFile(migrations.SchemaFS, migrations.SchemaDir+"/"+name)
		if err != nil {
			return fmt.Errorf("pg: read migration %s: %w", name, err)
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("pg: begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("pg: apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("pg: record migration %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("pg: commit migration %s: %w", name, err)
		}
		log.Info("migration applied", logger.String("name", name))
	}
	return nil
}
