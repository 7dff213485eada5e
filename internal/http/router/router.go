// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bootctrl "github.com/dropDatabas3/bootjohn/internal/http/controllers/boot"
	scriptctrl "github.com/dropDatabas3/bootjohn/internal/http/controllers/bootscript"
	healthctrl "github.com/dropDatabas3/bootjohn/internal/http/controllers/health"
	mw "github.com/dropDatabas3/bootjohn/internal/http/middlewares"
	"github.com/dropDatabas3/bootjohn/internal/rate"
	"github.com/dropDatabas3/bootjohn/internal/security/apikey"
)

// RouterDeps contiene todas las dependencias del router.
type RouterDeps struct {
	Mux *http.ServeMux

	// Controllers
	Boot       *bootctrl.Controller
	Bootscript *scriptctrl.Controller
	Health     *healthctrl.Controller

	// Seguridad y límites
	AdminKey      *apikey.Verifier // nil o sin hash: rutas de mutación abiertas
	ScriptLimiter rate.Limiter     // nil: sin rate limit en bootscript

	// Registry para /metrics. Nil usa el registry global.
	Metrics prometheus.Gatherer
}

// RegisterRoutes registra el API bajo /boot/v1 más los endpoints operativos
// en la raíz del mux. Es el punto de entrada del wiring desde main.
func RegisterRoutes(deps RouterDeps) {
	mux := deps.Mux
	if mux == nil {
		return
	}

	r := chi.NewRouter()

	// Middlewares comunes a todo el API
	common := []mw.Middleware{
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
	}

	// ===========================================================================
	// Boot parameters
	// ===========================================================================
	if deps.Boot != nil {
		requireKey := mw.RequireAPIKey(deps.AdminKey)

		r.Method(http.MethodGet, "/bootparameters", mw.ChainFunc(deps.Boot.List, common...))
		r.Method(http.MethodPost, "/bootparameters", mw.ChainFunc(deps.Boot.Create, append(common, requireKey)...))
		r.Method(http.MethodPut, "/bootparameters", mw.ChainFunc(deps.Boot.Replace, append(common, requireKey)...))
		r.Method(http.MethodPatch, "/bootparameters", mw.ChainFunc(deps.Boot.Patch, append(common, requireKey)...))
		r.Method(http.MethodDelete, "/bootparameters", mw.ChainFunc(deps.Boot.Delete, append(common, requireKey)...))

		r.Method(http.MethodGet, "/hosts", mw.ChainFunc(deps.Boot.Hosts, common...))
		r.Method(http.MethodGet, "/dumpstate", mw.ChainFunc(deps.Boot.Dump, append(common, requireKey)...))
	}

	// ===========================================================================
	// Bootscript (el endpoint que pegan las máquinas al bootear)
	// ===========================================================================
	if deps.Bootscript != nil {
		mws := common
		if deps.ScriptLimiter != nil {
			mws = append(mws, mw.WithRateLimit(deps.ScriptLimiter, mw.KeyByHostParam))
		}
		r.Method(http.MethodGet, "/bootscript", mw.ChainFunc(deps.Bootscript.Get, mws...))
	}

	// ===========================================================================
	// Cluster
	// ===========================================================================
	if deps.Health != nil {
		r.Method(http.MethodGet, "/cluster/status", mw.ChainFunc(deps.Health.Cluster, common...))
	}

	mux.Handle("/boot/v1/", http.StripPrefix("/boot/v1", r))

	// Endpoints operativos fuera del prefijo versionado
	if deps.Health != nil {
		mux.Handle("/healthz", mw.ChainFunc(deps.Health.Liveness, common...))
		mux.Handle("/readyz", mw.ChainFunc(deps.Health.Readiness, common...))
	}

	gatherer := deps.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
