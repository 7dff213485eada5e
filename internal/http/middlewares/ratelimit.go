package middlewares

import (
	"net/http"
	"strconv"

	"github.com/dropDatabas3/bootjohn/internal/http/helpers"
	"github.com/dropDatabas3/bootjohn/internal/metrics"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
	"github.com/dropDatabas3/bootjohn/internal/rate"
)

// KeyFunc extrae la key de rate limiting del request.
type KeyFunc func(r *http.Request) string

// KeyByHostParam usa el query param name (el host que bootea) como key,
// con fallback a la IP remota para requests sin nombre.
func KeyByHostParam(r *http.Request) string {
	if name := r.URL.Query().Get("name"); name != "" {
		return name
	}
	return r.RemoteAddr
}

// WithRateLimit aplica el limiter por key. En rechazo responde 429 con
// Retry-After. Si el limiter falla (ej: Redis caído) el request pasa:
// preferimos servir scripts a frenar un boot por infraestructura auxiliar.
func WithRateLimit(l rate.Limiter, keyFn KeyFunc) Middleware {
	if keyFn == nil {
		keyFn = KeyByHostParam
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), keyFn(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable, allowing request", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				metrics.BootscriptRateLimited.Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
				helpers.WriteError(w, helpers.ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
