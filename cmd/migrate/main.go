// Aplica las migraciones de Postgres sin levantar el servicio. Útil en
// pipelines de deploy donde el esquema se migra antes del rollout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/bootjohn/internal/config"
	"github.com/dropDatabas3/bootjohn/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("BOOTJOHN_CONFIG"), "ruta al archivo de configuración YAML")
	timeout := flag.Duration("timeout", 2*time.Minute, "timeout total de la migración")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if cfg.Storage.Driver != "postgres" {
		fatal(fmt.Errorf("storage.driver=%q: las migraciones solo aplican a postgres", cfg.Storage.Driver))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := pg.New(ctx, pg.Config{
		DSN:             cfg.Storage.DSN,
		MaxConns:        cfg.Storage.MaxConns,
		MinConns:        cfg.Storage.MinConns,
		ConnMaxLifetime: cfg.Storage.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Storage.ConnMaxIdleTime,
	})
	if err != nil {
		fatal(err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		fatal(err)
	}
	fmt.Println("migraciones aplicadas")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "migrate:", err.Error())
	os.Exit(1)
}
