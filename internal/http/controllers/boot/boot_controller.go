// Package boot expone los handlers HTTP del API de boot parameters.
package boot

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/dropDatabas3/bootjohn/internal/engine"
	dto "github.com/dropDatabas3/bootjohn/internal/http/dto/boot"
	"github.com/dropDatabas3/bootjohn/internal/http/helpers"
	svc "github.com/dropDatabas3/bootjohn/internal/http/services/boot"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
)

// Controller maneja las rutas de /bootparameters.
type Controller struct {
	svc svc.Service
}

func NewController(s svc.Service) *Controller {
	return &Controller{svc: s}
}

// Create asigna parámetros de boot a un conjunto de hosts.
// POST /bootparameters
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.Params
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.WriteError(w, err)
		return
	}

	err := c.svc.Create(r.Context(), req.Hosts, engine.BootTuple{
		Kernel:    req.Kernel,
		Initrd:    req.Initrd,
		Params:    req.Params,
		CloudInit: req.CloudInit,
	})
	if err != nil {
		helpers.WriteError(w, helpers.FromEngineError(err))
		return
	}

	logger.From(r.Context()).Info("boot parameters created", logger.HostCount(len(req.Hosts)))
	w.WriteHeader(http.StatusCreated)
}

// Replace reasigna los parámetros completos de los hosts dados. Mismo
// comportamiento que Create pero idempotente a nivel HTTP.
// PUT /bootparameters
func (c *Controller) Replace(w http.ResponseWriter, r *http.Request) {
	var req dto.Params
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.WriteError(w, err)
		return
	}

	err := c.svc.Create(r.Context(), req.Hosts, engine.BootTuple{
		Kernel:    req.Kernel,
		Initrd:    req.Initrd,
		Params:    req.Params,
		CloudInit: req.CloudInit,
	})
	if err != nil {
		helpers.WriteError(w, helpers.FromEngineError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, req)
}

// Patch actualiza campos individuales de hosts ya asignados. Los campos
// vacíos se dejan como están; cloud_init se mergea (RFC 7386).
// PATCH /bootparameters
func (c *Controller) Patch(w http.ResponseWriter, r *http.Request) {
	var req dto.Params
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.WriteError(w, err)
		return
	}

	err := c.svc.Update(r.Context(), req.Hosts, engine.UpdatePatch{
		Kernel:    req.Kernel,
		Initrd:    req.Initrd,
		Params:    req.Params,
		CloudInit: req.CloudInit,
	})
	if err != nil {
		helpers.WriteError(w, helpers.FromEngineError(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// List devuelve los parámetros asignados, opcionalmente filtrados por
// ?name=h1&name=h2. Sin filtro devuelve todos los hosts asignados.
// GET /bootparameters
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	f := filterFromRequest(r)

	views, err := c.svc.List(f)
	if err != nil {
		helpers.WriteError(w, helpers.FromEngineError(err))
		return
	}
	out := make([]dto.Params, 0, len(views))
	for _, v := range views {
		out = append(out, dto.Params{
			Hosts:     v.Hosts,
			Kernel:    v.Kernel,
			Initrd:    v.Initrd,
			Params:    v.Params,
			CloudInit: v.CloudInit,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// Delete remueve la asignación de los hosts dados. Hosts sin asignación se
// ignoran: borrar lo que no existe no es un error.
// DELETE /bootparameters
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	// A diferencia de List, acá no hay default a "todos": borrar todo el
	// estado requiere pedirlo explícitamente con all en el body.
	f := engine.Filter{Hosts: r.URL.Query()["name"]}

	// DELETE también acepta el filtro en el body; body vacío no es error,
	// el filtro queda en lo que digan los query params.
	if len(f.Hosts) == 0 && r.Body != nil {
		body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if len(bytes.TrimSpace(body)) > 0 {
			var req dto.Filter
			if uerr := json.Unmarshal(body, &req); uerr != nil {
				helpers.WriteError(w, helpers.ErrInvalidJSON.WithDetail(uerr.Error()))
				return
			}
			f = engine.Filter{Hosts: req.Hosts, All: req.All}
		}
	}

	if len(f.Hosts) == 0 && !f.All {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("no hosts given"))
		return
	}

	if err := c.svc.Delete(r.Context(), f); err != nil {
		helpers.WriteError(w, helpers.FromEngineError(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Hosts lista los hosts con parámetros asignados.
// GET /hosts
func (c *Controller) Hosts(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, dto.HostsResponse{Hosts: c.svc.Hosts()})
}

// Dump expone la agrupación interna para diagnóstico.
// GET /dumpstate
func (c *Controller) Dump(w http.ResponseWriter, r *http.Request) {
	groups := c.svc.Dump()
	out := make([]dto.GroupDump, 0, len(groups))
	hosts := 0
	for _, g := range groups {
		hosts += len(g.Hosts)
		out = append(out, dto.GroupDump{
			ID:        g.ID,
			Hosts:     g.Hosts,
			Kernel:    g.Kernel,
			Initrd:    g.Initrd,
			Params:    g.Params,
			CloudInit: g.CloudInit,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, dto.DumpResponse{Groups: out, Hosts: hosts})
}

func filterFromRequest(r *http.Request) engine.Filter {
	names := r.URL.Query()["name"]
	if len(names) == 0 {
		return engine.AllHosts()
	}
	return engine.ByHosts(names...)
}
