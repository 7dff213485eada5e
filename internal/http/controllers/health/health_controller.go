package health

import (
	"net/http"

	"github.com/dropDatabas3/bootjohn/internal/http/helpers"
	svc "github.com/dropDatabas3/bootjohn/internal/http/services/health"
)

type Controller struct {
	svc svc.Service
}

func NewController(s svc.Service) *Controller {
	return &Controller{svc: s}
}

// Liveness responde mientras el proceso esté vivo.
// GET /healthz
func (c *Controller) Liveness(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, c.svc.Liveness())
}

// Readiness chequea las dependencias. Responde 503 si el storage no está.
// GET /readyz
func (c *Controller) Readiness(w http.ResponseWriter, r *http.Request) {
	resp := c.svc.Readiness(r.Context())
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	helpers.WriteJSON(w, status, resp)
}

// Cluster expone el estado del consenso. 404 en modo standalone.
// GET /cluster/status
func (c *Controller) Cluster(w http.ResponseWriter, r *http.Request) {
	st, ok := c.svc.Cluster()
	if !ok {
		helpers.WriteError(w, helpers.ErrNotFound.WithDetail("clustering not enabled"))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, st)
}
