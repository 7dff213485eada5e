package middlewares

import (
	"net/http"
	"runtime/debug"

	"github.com/dropDatabas3/bootjohn/internal/http/helpers"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
)

// WithRecover captura panics del handler y responde 500 en lugar de tirar
// la conexión. El stack va al log, nunca al cliente.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Any("panic", rec),
						logger.String("stack", string(debug.Stack())),
					)
					helpers.WriteError(w, helpers.ErrInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
