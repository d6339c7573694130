// Package agent implements the HTTP log-reading agent: the process that
// runs on every host in a tier and serves /log/stream and /log/summary
// over the local glob of log files.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultPort is the fixed TCP port every agent listens on.
const DefaultPort = "6957"

// Server is one running agent instance.
type Server struct {
	router     *http.ServeMux
	httpServer *http.Server
	logger     *slog.Logger
	host       string
	port       string
	verbose    bool
}

// NewServer builds an agent listening on host:port, logging through
// logger. verbose enables the seek/debug log lines the original tool
// gated behind --verbose.
func NewServer(host, port string, logger *slog.Logger, verbose bool) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		logger:  logger,
		host:    host,
		port:    port,
		verbose: verbose,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/", s.indexHandler)
	s.router.HandleFunc("/log/stream", s.logStreamHandler)
	s.router.HandleFunc("/log/summary", s.logSummaryHandler)
}

// Start runs the HTTP server and blocks until a shutdown signal or fatal
// server error.
func (s *Server) Start() error {
	handler := chainMiddleware(s.router, s.recoveryMiddleware, s.corsMiddleware, s.requestIDMiddleware, s.loggingMiddleware)

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("agent: failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("agent listening", "addr", listener.Addr().String())
		serverErrors <- s.httpServer.Serve(listener)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("agent: server error: %w", err)
		}

	case sig := <-shutdown:
		s.logger.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("graceful shutdown failed", "err", err)
			return s.httpServer.Close()
		}
		s.logger.Info("agent shutdown gracefully")
	}

	return nil
}

// Stop gracefully shuts the server down, for callers (tests, the CLI's
// signal handling in non-foreground modes) driving the lifecycle
// themselves instead of Start's blocking signal wait.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the fully wrapped handler, for tests that want to
// drive requests through httptest without binding a real socket.
func (s *Server) Handler() http.Handler {
	return chainMiddleware(s.router, s.recoveryMiddleware, s.corsMiddleware, s.requestIDMiddleware, s.loggingMiddleware)
}
