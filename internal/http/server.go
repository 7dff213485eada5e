// Package http arma el servidor del servicio de boot.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/bootjohn/internal/config"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
)

// Server envuelve http.Server con los timeouts de configuración y un
// shutdown ordenado.
type Server struct {
	srv *http.Server
}

func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// ListenAndServe bloquea hasta que el server cierre. http.ErrServerClosed
// no se propaga: es el retorno normal de un shutdown ordenado.
func (s *Server) ListenAndServe() error {
	logger.L().Info("http server listening", logger.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drena las conexiones activas respetando el deadline del contexto.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.L().Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}
