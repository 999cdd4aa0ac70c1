package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/hnscrape/internal/serp"
	"github.com/FranksOps/hnscrape/internal/storage"
)

func TestGenerateSummary(t *testing.T) {
	now := time.Now()

	records := storage.SearchRecords("run-1", "local", "lightpanda", []serp.Result{
		{Title: "a", URL: "https://www.lightpanda.io/blog"},
		{Title: "b", URL: "https://github.com/lightpanda-io/browser"},
		{Title: "c", URL: "item?id=1"},
		{Title: "d", URL: "N/A"},
	}, now)
	scrape, err := storage.ScrapeRecord("run-2", "cloud", "https://example.com/", []string{"x"}, now.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	records = append(records, scrape,
		storage.FailedRecord("run-3", storage.KindSearch, "local", "zig", errors.New("timeout"), now.Add(2*time.Second)))

	summary := GenerateSummary(records)

	if summary.TotalRecords != 5 {
		t.Errorf("expected 5 records, got %d", summary.TotalRecords)
	}
	if summary.TotalRuns != 3 || summary.FailedRuns != 1 {
		t.Errorf("expected 3 runs with 1 failure, got %d/%d", summary.TotalRuns, summary.FailedRuns)
	}
	if summary.Queries["lightpanda"] != 4 || summary.Queries["https://example.com/"] != 1 {
		t.Errorf("unexpected queries %v", summary.Queries)
	}
	if _, ok := summary.Queries["zig"]; ok {
		t.Errorf("failed run should not count results: %v", summary.Queries)
	}
	if summary.Modes["local"] != 2 || summary.Modes["cloud"] != 1 {
		t.Errorf("unexpected modes %v", summary.Modes)
	}
	wantDomains := map[string]int{"lightpanda.io": 1, "github.com": 1, "news.ycombinator.com": 1, "n/a": 1}
	for d, n := range wantDomains {
		if summary.Domains[d] != n {
			t.Errorf("expected %d for %s, got %d", n, d, summary.Domains[d])
		}
	}
	if summary.Duration != time.Second {
		t.Errorf("expected 1s duration, got %v", summary.Duration)
	}
}

func TestGenerateSummaryEmpty(t *testing.T) {
	summary := GenerateSummary(nil)
	if summary.TotalRuns != 0 || summary.Queries == nil {
		t.Errorf("unexpected empty summary %+v", summary)
	}
}

func TestWriteJSON(t *testing.T) {
	summary := Summary{
		TotalRecords: 5,
	}
	var buf bytes.Buffer
	err := WriteJSON(&buf, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), `"TotalRecords": 5`) {
		t.Errorf("expected JSON to contain TotalRecords: 5")
	}
}

func TestWriteText(t *testing.T) {
	summary := Summary{
		TotalRecords: 5,
		TotalRuns:    2,
		FailedRuns:   1,
		Queries: map[string]int{
			"lightpanda": 5,
		},
	}
	var buf bytes.Buffer
	err := WriteText(&buf, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Runs:          2 (1 failed)") {
		t.Errorf("expected run counts, got:\n%s", out)
	}
	if !strings.Contains(out, "lightpanda: 5") {
		t.Errorf("expected text to contain lightpanda: 5")
	}
}

func TestWriteHTML(t *testing.T) {
	summary := Summary{
		TotalRecords: 10,
		Domains: map[string]int{
			"<script>evil.com</script>": 2,
		},
	}
	var buf bytes.Buffer
	err := WriteHTML(&buf, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<title>hnscrape Report</title>") {
		t.Errorf("expected HTML title")
	}
	if strings.Contains(out, "<script>evil.com") || !strings.Contains(out, "&lt;script&gt;evil.com") {
		t.Errorf("expected domain to be escaped")
	}
}
