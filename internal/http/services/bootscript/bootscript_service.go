// Package bootscript arma la respuesta del endpoint de bootscript: resuelve
// los parámetros del host, renderiza el script iPXE y lo cachea.
package bootscript

import (
	"context"
	"time"

	"github.com/dropDatabas3/bootjohn/internal/bootscript"
	"github.com/dropDatabas3/bootjohn/internal/cache"
	"github.com/dropDatabas3/bootjohn/internal/engine"
	"github.com/dropDatabas3/bootjohn/internal/metrics"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
)

// defaultTag es la asignación comodín: hosts sin parámetros propios booteen
// con lo que tenga asignado este pseudo-host.
const defaultTag = "Default"

// Service renderiza scripts de boot por host.
type Service interface {
	Render(ctx context.Context, host string, retry int) (string, error)
}

type service struct {
	eng        *engine.Engine
	builder    *bootscript.Builder
	cache      cache.Client // puede ser nil
	cacheTTL   time.Duration
	maxRetries int
}

// New construye el servicio. cacheClient es opcional; si es nil cada request
// renderiza de cero. maxRetries no corta el loop de chain (la máquina tiene
// que poder seguir intentando), solo marca el umbral de alerta en logs.
func New(eng *engine.Engine, builder *bootscript.Builder, cacheClient cache.Client, cacheTTL time.Duration, maxRetries int) Service {
	if maxRetries <= 0 {
		maxRetries = 10
	}
	return &service{eng: eng, builder: builder, cache: cacheClient, cacheTTL: cacheTTL, maxRetries: maxRetries}
}

func (s *service) Render(ctx context.Context, host string, retry int) (string, error) {
	if retry > s.maxRetries {
		logger.From(ctx).Warn("host stuck in boot retry loop",
			logger.Host(host), logger.Int("retry", retry))
	}
	// El cache solo aplica al primer intento: los retries llevan contador y
	// timestamp propios, cachearlos serviría scripts con ts viejo.
	cacheKey := "bootscript:" + host
	if s.cache != nil && retry == 0 {
		if script, err := s.cache.Get(ctx, cacheKey); err == nil {
			metrics.BootscriptRenders.WithLabelValues("cache_hit").Inc()
			return script, nil
		}
	}

	start := time.Now()
	view, ok := s.eng.Lookup(host)
	if !ok {
		// Sin asignación propia probamos el comodín. Si tampoco existe,
		// devolvemos un script de solo-retry: el host va a reintentar hasta
		// que alguien le asigne parámetros. Así arrancaba el original.
		view, ok = s.eng.Lookup(defaultTag)
		if !ok {
			metrics.BootscriptRenders.WithLabelValues("retry_only").Inc()
			logger.From(ctx).Info("host without boot parameters, serving retry script",
				logger.Host(host))
			return s.builder.BuildRetryOnly(host, retry), nil
		}
	}

	script, err := s.builder.Build(ctx, host, view, retry)
	metrics.BootscriptRenderLatency.Observe(time.Since(start).Seconds() * 1000)
	if err != nil {
		metrics.BootscriptRenders.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.BootscriptRenders.WithLabelValues("ok").Inc()

	if s.cache != nil && retry == 0 {
		if cerr := s.cache.Set(ctx, cacheKey, script, s.cacheTTL); cerr != nil {
			logger.From(ctx).Warn("bootscript cache set failed", logger.Host(host), logger.Err(cerr))
		}
	}
	return script, nil
}
