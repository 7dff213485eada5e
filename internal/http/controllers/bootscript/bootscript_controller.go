// Package bootscript expone el endpoint que sirve scripts iPXE.
package bootscript

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/bootjohn/internal/bootscript"
	"github.com/dropDatabas3/bootjohn/internal/http/helpers"
	svc "github.com/dropDatabas3/bootjohn/internal/http/services/bootscript"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
)

type Controller struct {
	svc svc.Service
}

func NewController(s svc.Service) *Controller {
	return &Controller{svc: s}
}

// Get sirve el script iPXE para el host pedido.
// GET /bootscript?name=<host>&retry=<n>
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("missing name query parameter"))
		return
	}

	retry := 0
	if rv := r.URL.Query().Get("retry"); rv != "" {
		n, err := strconv.Atoi(rv)
		if err != nil || n < 0 {
			helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("invalid retry query parameter"))
			return
		}
		retry = n
	}

	script, err := c.svc.Render(r.Context(), name, retry)
	if err != nil {
		if errors.Is(err, bootscript.ErrNotConfigured) {
			helpers.WriteError(w, helpers.ErrNotFound.WithDetail(err.Error()))
			return
		}
		logger.From(r.Context()).Error("bootscript render failed", logger.Host(name), logger.Err(err))
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(script))
}
