// Package store selecciona el Repository según configuración.
package store

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/bootjohn/internal/config"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
	"github.com/dropDatabas3/bootjohn/internal/store/core"
	"github.com/dropDatabas3/bootjohn/internal/store/memory"
	"github.com/dropDatabas3/bootjohn/internal/store/pg"
)

// Open construye el Repository para el driver configurado.
func Open(ctx context.Context, cfg config.StorageConfig) (core.Repository, error) {
	log := logger.Named("store")

	switch cfg.Driver {
	case "memory":
		log.Info("using in-memory repository")
		return memory.New(), nil

	case "postgres":
		log.Info("using postgres repository", logger.Driver("postgres"))
		return pg.New(ctx, pg.Config{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		})

	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
