package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/bootjohn/internal/http/helpers"
	"github.com/dropDatabas3/bootjohn/internal/security/apikey"
)

const adminKeyHeader = "X-Admin-API-Key"

// RequireAPIKey protege las rutas de mutación con la API key administrativa.
// Si el verifier no tiene hash configurado, el middleware es un passthrough
// (modo desarrollo).
func RequireAPIKey(v *apikey.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil || !v.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(adminKeyHeader))
			if key == "" {
				helpers.WriteError(w, helpers.ErrUnauthorized.WithDetail("missing "+adminKeyHeader+" header"))
				return
			}
			if !v.Verify(key) {
				helpers.WriteError(w, helpers.ErrForbidden.WithDetail("invalid API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
