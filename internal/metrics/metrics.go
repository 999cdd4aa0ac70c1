package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/FranksOps/hnscrape/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnscrape_sessions_total",
			Help: "Total number of browser sessions run to completion",
		},
		[]string{"mode", "outcome"},
	)

	ConnectAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnscrape_connect_attempts_total",
			Help: "Total number of CDP connection attempts",
		},
		[]string{"mode", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hnscrape_operation_duration_seconds",
			Help:    "Duration of search and scrape operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnscrape_results_total",
			Help: "Total number of results extracted",
		},
		[]string{"operation"},
	)

	CleanupFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnscrape_cleanup_failures_total",
			Help: "Total number of failed cleanup steps",
		},
		[]string{"stage"},
	)
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Recorder feeds session lifecycle events into the package collectors.
type Recorder struct{}

var _ session.Recorder = Recorder{}

func (Recorder) ConnectAttempt(mode string, err error) {
	ConnectAttemptsTotal.WithLabelValues(mode, outcome(err)).Inc()
}

func (Recorder) SessionDone(mode string, err error) {
	SessionsTotal.WithLabelValues(mode, outcome(err)).Inc()
}

func (Recorder) Operation(name string, d time.Duration, results int, err error) {
	OperationDuration.WithLabelValues(name).Observe(d.Seconds())
	if err == nil {
		ResultsTotal.WithLabelValues(name).Add(float64(results))
	}
}

func (Recorder) CleanupFailure(stage string) {
	CleanupFailuresTotal.WithLabelValues(stage).Inc()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Start listens on port and serves /metrics in the background. Port 0 picks
// a free port; see Addr.
func Start(port int, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	logger.Debug("metrics server listening", "addr", ln.Addr().String())

	return &Server{srv: srv, ln: ln}, nil
}

// Addr is the address the server is bound to.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
