package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
)

// Server serves /metrics and /healthz over HTTP
type Server struct {
	server   *http.Server
	listener net.Listener
}

// NewServer starts serving c at addr
func NewServer(ctx context.Context, addr string, c *Collectors,
	logger *slog.Logger) (*Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("newServer: listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux}
	go func() {
		err := srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	return &Server{server: srv, listener: listener}, nil
}

// Addr returns the address the server is listening on
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close shuts the server down
func (s *Server) Close() error {
	if err := s.server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
