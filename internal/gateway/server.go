package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/copilot/internal/observability"
)

// Server hosts the copilot HTTP API.
type Server struct {
	service *Service
	metrics *observability.Metrics
	logger  *observability.Logger

	addr     string
	server   *http.Server
	listener net.Listener
}

// ServerConfig wires the HTTP server.
type ServerConfig struct {
	Addr    string
	Service *Service
	Metrics *observability.Metrics
	Logger  *observability.Logger
}

// NewServer creates the server. Call Start to begin serving.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		service: cfg.Service,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		addr:    cfg.Addr,
	}
	if s.logger == nil {
		s.logger = observability.NewLogger(observability.LogConfig{})
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /copilot/run", s.handleRun)
	mux.HandleFunc("POST /copilot/run/stream", s.handleRunStream)
	mux.HandleFunc("GET /copilot/agents", s.handleListAgents)
	mux.HandleFunc("GET /copilot/agents/{id}/tools", s.handleGetAgentTools)
	mux.HandleFunc("PUT /copilot/agents/{id}/tools", s.handleSetAgentTools)
	mux.HandleFunc("POST /copilot/actions/{id}/confirm", s.handleConfirmAction)
	mux.HandleFunc("POST /copilot/actions/{id}/cancel", s.handleCancelAction)

	return s.withRequestID(s.withMetrics(mux))
}

// Start begins serving on the configured address. Non-blocking; serve
// errors are logged.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	s.server = server
	s.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "http server error", "error", err)
		}
	}()

	s.logger.Info(ctx, "starting http server", "addr", s.Addr())
	return nil
}

// Addr returns the bound address, useful when configured with port 0.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down, draining in-flight requests.
func (s *Server) Stop(ctx context.Context) {
	if s.server == nil {
		return
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "http server shutdown error", "error", err)
	}
	s.server = nil
	s.listener = nil
}

// withRequestID stamps each request with a correlation id, honoring one
// supplied by the caller.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := observability.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withMetrics records request counts and latency per route.
func (s *Server) withMetrics(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if pattern := r.Pattern; pattern != "" {
			path = pattern
		}
		s.metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}

// statusRecorder captures the response status for metrics. Flush is
// forwarded so streaming responses keep working behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
