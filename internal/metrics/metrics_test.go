package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	r := Recorder{}

	before := testutil.ToFloat64(ConnectAttemptsTotal.WithLabelValues("local", "error"))
	r.ConnectAttempt("local", errors.New("refused"))
	r.ConnectAttempt("local", errors.New("refused"))
	if got := testutil.ToFloat64(ConnectAttemptsTotal.WithLabelValues("local", "error")) - before; got != 2 {
		t.Errorf("expected 2 failed attempts, got %v", got)
	}

	before = testutil.ToFloat64(ResultsTotal.WithLabelValues("search"))
	r.Operation("search", time.Second, 7, nil)
	r.Operation("search", time.Second, 3, errors.New("timeout"))
	if got := testutil.ToFloat64(ResultsTotal.WithLabelValues("search")) - before; got != 7 {
		t.Errorf("expected 7 results counted, got %v", got)
	}

	before = testutil.ToFloat64(CleanupFailuresTotal.WithLabelValues("page"))
	r.CleanupFailure("page")
	if got := testutil.ToFloat64(CleanupFailuresTotal.WithLabelValues("page")) - before; got != 1 {
		t.Errorf("expected 1 cleanup failure, got %v", got)
	}
}

func TestMetricsServer(t *testing.T) {
	srv, err := Start(0, nil)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer srv.Stop(context.Background())

	Recorder{}.SessionDone("cloud", nil)
	Recorder{}.Operation("scrape", 250*time.Millisecond, 1, nil)

	_, port, _ := net.SplitHostPort(srv.Addr())
	resp, err := http.Get("http://127.0.0.1:" + port + "/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	output := string(body)

	if !strings.Contains(output, `hnscrape_sessions_total{mode="cloud",outcome="success"}`) {
		t.Errorf("expected hnscrape_sessions_total metric for cloud")
	}
	if !strings.Contains(output, `hnscrape_operation_duration_seconds_bucket{operation="scrape"`) {
		t.Errorf("expected hnscrape_operation_duration_seconds metric")
	}
}

func TestStopNil(t *testing.T) {
	var s *Server
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on nil server returned error: %v", err)
	}
}
