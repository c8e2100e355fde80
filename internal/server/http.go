// Package server exposes health, readiness, Prometheus and stats endpoints
// next to the stdio MCP transport.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmmcquay/pdn-mcp/internal/health"
	"github.com/dmmcquay/pdn-mcp/internal/logging"
	"github.com/dmmcquay/pdn-mcp/internal/metrics"
)

// StatsFunc returns a JSON-encodable status snapshot for /stats.
type StatsFunc func() interface{}

// HTTPServer provides HTTP endpoints for health checks and metrics.
type HTTPServer struct {
	server   *http.Server
	logger   logging.ContextLogger
	listener net.Listener
	served   chan struct{}
}

// NewHTTPServer wires the endpoints. stats may be nil, in which case /stats
// is not registered.
func NewHTTPServer(addr string, logger logging.ContextLogger, checker *health.Checker, stats StatsFunc) *HTTPServer {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.LivenessHandler())
	mux.HandleFunc("/ready", checker.ReadinessHandler())
	mux.Handle("/metrics", promhttp.Handler())
	if stats != nil {
		mux.HandleFunc("/stats", statsHandler(stats, logger))
	}

	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           PrometheusMiddleware(metrics.NewPrometheusCollector())(mux),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
		served: make(chan struct{}),
	}
}

func statsHandler(stats StatsFunc, logger logging.ContextLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats()); err != nil {
			logger.Error("Failed to encode stats", "error", err)
		}
	}
}

// Handler returns the routed handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listener and serves in the background. Bind errors are
// returned directly.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("Starting HTTP health check server", "addr", ln.Addr().String())

	go func() {
		defer close(s.served)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *HTTPServer) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the HTTP server and waits for Serve to return.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP health check server")
	err := s.server.Shutdown(ctx)
	if s.listener != nil {
		<-s.served
	}
	return err
}
