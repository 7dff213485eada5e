package main

import (
	"context"
	"flag"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/bootjohn/internal/bootscript"
	"github.com/dropDatabas3/bootjohn/internal/cache"
	"github.com/dropDatabas3/bootjohn/internal/cluster"
	"github.com/dropDatabas3/bootjohn/internal/config"
	"github.com/dropDatabas3/bootjohn/internal/engine"
	httpserver "github.com/dropDatabas3/bootjohn/internal/http"
	bootctrl "github.com/dropDatabas3/bootjohn/internal/http/controllers/boot"
	scriptctrl "github.com/dropDatabas3/bootjohn/internal/http/controllers/bootscript"
	healthctrl "github.com/dropDatabas3/bootjohn/internal/http/controllers/health"
	"github.com/dropDatabas3/bootjohn/internal/http/router"
	bootsvc "github.com/dropDatabas3/bootjohn/internal/http/services/boot"
	scriptsvc "github.com/dropDatabas3/bootjohn/internal/http/services/bootscript"
	healthsvc "github.com/dropDatabas3/bootjohn/internal/http/services/health"
	"github.com/dropDatabas3/bootjohn/internal/metrics"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
	"github.com/dropDatabas3/bootjohn/internal/rate"
	"github.com/dropDatabas3/bootjohn/internal/security/apikey"
	"github.com/dropDatabas3/bootjohn/internal/security/boottoken"
	"github.com/dropDatabas3/bootjohn/internal/spire"
	"github.com/dropDatabas3/bootjohn/internal/store"
	"github.com/dropDatabas3/bootjohn/internal/store/pg"
)

var version = "dev"

func main() {
	// .env es opcional; en producción todo llega por ENV reales
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("BOOTJOHN_CONFIG"), "ruta al archivo de configuración YAML")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// logger todavía no inicializado
		panic(err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	if err := run(cfg); err != nil {
		log.Fatal("service terminated", logger.Err(err))
	}
}

func run(cfg *config.Config) error {
	log := logger.L()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// -----------------------------------------------------------------------
	// Storage
	// -----------------------------------------------------------------------
	repo, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	if pgStore, ok := repo.(*pg.Store); ok {
		if err := pgStore.Migrate(ctx); err != nil {
			return err
		}
	}
	log.Info("storage ready", logger.Driver(cfg.Storage.Driver))

	// -----------------------------------------------------------------------
	// Engine
	// -----------------------------------------------------------------------
	eng, err := engine.Open(ctx, repo)
	if err != nil {
		return err
	}
	hosts, groups := eng.Stats()
	log.Info("assignment state loaded", logger.HostCount(hosts), logger.GroupCount(groups))

	// -----------------------------------------------------------------------
	// Cache (bootscripts + join tokens)
	// -----------------------------------------------------------------------
	cacheClient, err := cache.New(cache.Config{
		Kind:     cfg.Cache.Kind,
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
		Prefix:   "bootjohn",
		TTL:      cfg.Cache.TTL,
	})
	if err != nil {
		return err
	}
	defer func() { _ = cacheClient.Close() }()

	// -----------------------------------------------------------------------
	// Métricas
	// -----------------------------------------------------------------------
	reg := prometheus.DefaultRegisterer
	if err := metrics.RegisterEngine(reg); err != nil {
		return err
	}
	if err := metrics.RegisterBootscript(reg); err != nil {
		return err
	}

	// -----------------------------------------------------------------------
	// Cluster (opcional)
	// -----------------------------------------------------------------------
	var node *cluster.Node
	if cfg.Cluster.Mode == "embedded" {
		if err := metrics.RegisterRaft(reg); err != nil {
			return err
		}
		node, err = cluster.NewNode(cluster.NodeOptions{
			NodeID:             cfg.Cluster.NodeID,
			RaftAddr:           cfg.Cluster.RaftAddr,
			DataDir:            cfg.Cluster.DataDir,
			FSM:                cluster.NewFSM(eng),
			Nodes:              cfg.Cluster.Nodes,
			BootstrapPreferred: cfg.Cluster.Bootstrap,
			ApplyTimeout:       cfg.Cluster.ApplyTimeout,
		})
		if err != nil {
			return err
		}
		defer func() { _ = node.Close() }()
		log.Info("cluster node started",
			logger.String("node_id", node.NodeID()),
			logger.String("raft_addr", node.RaftAddr()),
		)
	}

	// -----------------------------------------------------------------------
	// Bootscript: SPIRE + boot tokens + builder
	// -----------------------------------------------------------------------
	var joinTokens bootscript.JoinTokenSource
	if cfg.Spire.Enabled {
		spireClient, err := spire.New(spire.Config{
			URL:      cfg.Spire.URL,
			Opts:     cfg.Spire.Opts,
			TokenTTL: cfg.Spire.TokenTTL,
			Timeout:  cfg.Spire.Timeout,
		}, cacheClient)
		if err != nil {
			return err
		}
		joinTokens = spireClient
	}

	var bootTokens bootscript.BootTokenIssuer
	if cfg.BootToken.Enabled {
		bootTokens = boottoken.New(cfg.BootToken.Secret, cfg.BootToken.TTL)
	}

	builder := bootscript.New(bootscript.Config{
		ServerURL:   cfg.IPXE.ServerURL,
		ChainProto:  cfg.IPXE.ChainProto,
		ChainServer: chainServer(cfg),
		GatewayURI:  cfg.IPXE.GatewayURI,
		RetryDelay:  cfg.IPXE.RetryDelay,
	}, joinTokens, bootTokens)

	// -----------------------------------------------------------------------
	// Rate limiting de /bootscript (boot storms)
	// -----------------------------------------------------------------------
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if cfg.Cache.Kind == "redis" {
			limiter = rate.NewRedisLimiter(rdb.NewClient(&rdb.Options{
				Addr:     cfg.Cache.RedisAddr,
				Password: cfg.Cache.RedisPassword,
				DB:       cfg.Cache.RedisDB,
			}), "bootjohn:rl", cfg.Rate.Limit, cfg.Rate.Window)
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.Limit, cfg.Rate.Window)
		}
	}

	// -----------------------------------------------------------------------
	// Services + HTTP
	// -----------------------------------------------------------------------
	var boots bootsvc.Service
	if node != nil {
		boots = bootsvc.NewReplicated(eng, node, cfg.Cluster.LeaderHint)
	} else {
		boots = bootsvc.New(eng)
	}
	scripts := scriptsvc.New(eng, builder, cacheClient, cfg.Cache.TTL, cfg.IPXE.MaxRetries)
	health := healthsvc.New(repo, cacheClient, node)

	mux := http.NewServeMux()
	router.RegisterRoutes(router.RouterDeps{
		Mux:           mux,
		Boot:          bootctrl.NewController(boots),
		Bootscript:    scriptctrl.NewController(scripts),
		Health:        healthctrl.NewController(health),
		AdminKey:      apikey.New(cfg.Admin.APIKeyHash),
		ScriptLimiter: limiter,
	})

	srv := httpserver.NewServer(cfg.Server, mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("bootjohn up",
		logger.String("addr", cfg.Server.Addr),
		logger.String("version", version),
	)
	return g.Wait()
}

// chainServer deriva el host:port que los scripts usan para el chain de
// reintento. Por defecto el host de la URL pública; como último recurso,
// la dirección de listen.
func chainServer(cfg *config.Config) string {
	if u := cfg.IPXE.ServerURL; u != "" {
		if host := hostOf(u); host != "" {
			return host
		}
	}
	return cfg.Server.Addr
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
