package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/registry"
)

const (
	ReadHeaderTimeout = 10 * time.Second
	ShutdownTimeout   = 15 * time.Second
)

type Server struct {
	Router   *mux.Router
	http     *http.Server
	listener net.Listener
	exitChan chan error
	registry registry.ServiceRegistrator
	log      *slog.Logger
}

// BuildServer opens the listener on addr and prepares a router with a health route.
// Middlewares wrap every route registered later.
func BuildServer(addr string, reg registry.ServiceRegistrator, exitChan chan error, log *slog.Logger, middlewares ...mux.MiddlewareFunc) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Internal(
			err.Error(),
			errors.WithID("server.build.listen.error"),
		)
	}
	if reg == nil {
		reg = registry.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}

	router := mux.NewRouter()
	router.Use(middlewares...)
	router.HandleFunc("/health", health).Methods(http.MethodGet)

	return &Server{
		Router: router,
		http: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: ReadHeaderTimeout,
		},
		listener: listener,
		exitChan: exitChan,
		registry: reg,
		log:      log,
	}, nil
}

func (s *Server) Addr() string { return s.listener.Addr().String() }

// Start registers the service and serves until Stop.
func (s *Server) Start() {
	if err := s.registry.Register(); err != nil {
		s.exitChan <- err
		return
	}
	s.log.Info("http server listening", slog.String("addr", s.Addr()))
	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.exitChan <- errors.Internal(
			err.Error(),
			errors.WithID("server.start.serve.error"),
		)
	}
}

// Stop deregisters the service and drains in-flight requests.
func (s *Server) Stop() {
	if err := s.registry.Deregister(); err != nil {
		s.log.Error("deregister service", slog.Any("error", err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Error("shutdown http server", slog.Any("error", err))
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
