//go:build integration

package test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/FranksOps/hnscrape/internal/browser/browsertest"
	"github.com/FranksOps/hnscrape/internal/extract"
	"github.com/FranksOps/hnscrape/internal/report"
	"github.com/FranksOps/hnscrape/internal/serp"
	"github.com/FranksOps/hnscrape/internal/session"
	"github.com/FranksOps/hnscrape/internal/storage"
	"github.com/FranksOps/hnscrape/pkg/hnscrape"
)

// mockBackend is an in-memory storage.Backend for verifying results
type mockBackend struct {
	mu      sync.Mutex
	records []*storage.Record
}

func (m *mockBackend) Save(ctx context.Context, r *storage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *mockBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.Record
	for _, r := range m.records {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	return storage.Window(out, filter), nil
}

func (m *mockBackend) Close() error { return nil }

// lightpandaBinary locates the browser or skips the test.
func lightpandaBinary(t *testing.T) string {
	t.Helper()
	if bin := os.Getenv("HNSCRAPE_LIGHTPANDA_BIN"); bin != "" {
		return bin
	}
	bin, err := exec.LookPath("lightpanda")
	if err != nil {
		t.Skip("Skipping integration test: lightpanda not found (set HNSCRAPE_LIGHTPANDA_BIN)")
	}
	return bin
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// fakeHackerNews serves a front page with a search box and an Algolia-like
// results page.
func fakeHackerNews() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<input name="q" type="text">
			<script>
			document.querySelector('input[name="q"]').addEventListener('keydown', e => {
				if (e.key === 'Enter') location.href = '/search?q=' + encodeURIComponent(e.target.value);
			});
			</script>
		</body></html>`)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body>
			<div class="Story_container">
				<div class="Story_title"><a href="https://example.com/%[1]s"><span>All about %[1]s</span></a></div>
				<div class="Story_meta"><span>42 points</span><span class="Story_separator">|</span><span>by tester</span><span class="Story_comment">3 comments</span></div>
			</div>
			<div class="Story_container">
				<div class="Story_title"></div>
				<div class="Story_meta"></div>
			</div>
		</body></html>`, q)
	})
	return httptest.NewServer(mux)
}

func options(t *testing.T, extra ...session.Option) hnscrape.Options {
	return hnscrape.Options{
		Session: session.Config{
			Binary:  lightpandaBinary(t),
			Port:    freePort(t),
			Timeout: 15 * time.Second,
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Extra:  extra,
	}
}

func TestIntegration_Search(t *testing.T) {
	srv := fakeHackerNews()
	defer srv.Close()

	opts := options(t, session.WithProvider(&serp.HackerNews{BaseURL: srv.URL + "/"}))

	results, err := hnscrape.Search(context.Background(), "lightpanda", opts)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	first := results[0]
	if first.Title != "All about lightpanda" || first.URL != "https://example.com/lightpanda" {
		t.Errorf("unexpected first result %+v", first)
	}
	if len(first.Meta) != 2 || first.Meta[0] != "42 points" || first.Meta[1] != "by tester" {
		t.Errorf("unexpected meta %v", first.Meta)
	}
	if results[1].Title != "N/A" || results[1].URL != "N/A" || len(results[1].Meta) != 0 {
		t.Errorf("expected N/A fallbacks, got %+v", results[1])
	}

	backend := &mockBackend{}
	runID := storage.NewRunID()
	for _, r := range storage.SearchRecords(runID, "local", "lightpanda", results, time.Now()) {
		if err := backend.Save(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	records, _ := backend.Query(context.Background(), storage.Filter{RunID: runID})
	summary := report.GenerateSummary(records)
	if summary.TotalRecords != 2 || summary.Domains["example.com"] != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestIntegration_ScrapeURL(t *testing.T) {
	srv := fakeHackerNews()
	defer srv.Close()

	data, err := hnscrape.ScrapeURL(context.Background(), srv.URL+"/search?q=go", extract.Selector{CSS: ".Story_title a", Attr: "href"}, options(t))
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}

	links, ok := data.([]string)
	if !ok || len(links) != 1 || links[0] != "https://example.com/go" {
		t.Fatalf("unexpected links %#v", data)
	}
}

func TestIntegration_UnreachableBrowser(t *testing.T) {
	opts := options(t, session.WithLauncher(&browsertest.Launcher{}), session.WithRetry(2, 10*time.Millisecond), session.WithSettleDelay(0))

	start := time.Now()
	_, err := hnscrape.Search(context.Background(), "x", opts)
	if err == nil {
		t.Fatal("expected connection failure")
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("expected a backoff wait, finished in %v", elapsed)
	}
}

