package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cursorhide/cursorhide/internal/config"
	"github.com/cursorhide/cursorhide/internal/database"

	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
}

// NewServer builds the status API. repo may be nil when the journal is disabled.
func NewServer(cfg *config.Config, ctrl Controller, repo *database.Repository) *Server {
	handler := NewHandler(ctrl, repo)

	var h http.Handler = handler.Router()
	h = handlers.LoggingHandler(logrus.StandardLogger().WriterLevel(logrus.DebugLevel), h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(panicLogger{}),
		handlers.PrintRecoveryStack(true),
	)(h)

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Web.Host, fmt.Sprint(cfg.Web.Port)),
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
	}
}

type panicLogger struct{}

func (panicLogger) Println(args ...interface{}) {
	logrus.Error(args...)
}

func (s *Server) Start() error {
	logrus.Infof("Starting web server on http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logrus.Info("Shutting down web server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}
