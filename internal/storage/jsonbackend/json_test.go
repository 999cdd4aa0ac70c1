package jsonbackend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/hnscrape/internal/serp"
	"github.com/FranksOps/hnscrape/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "hnscrape.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond).UTC()

	older := storage.SearchRecords("run-old", "local", "zig", []serp.Result{
		{Title: "Zig 0.13", URL: "https://ziglang.org", Meta: []string{"420 points"}},
	}, now.Add(-2*time.Hour))
	newer := storage.SearchRecords("run-new", "local", "lightpanda", []serp.Result{
		{Title: "First", URL: "/1"},
		{Title: "Second", URL: "/2"},
	}, now.Add(-1*time.Hour))

	for _, r := range append(older, newer...) {
		if err := b.Save(ctx, r); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	if all[0].Title != "First" || all[1].Title != "Second" || all[2].Title != "Zig 0.13" {
		t.Errorf("Unexpected order: %s, %s, %s", all[0].Title, all[1].Title, all[2].Title)
	}
	if !all[2].CreatedAt.Equal(now.Add(-2 * time.Hour)) {
		t.Errorf("Expected CreatedAt %v, got %v", now.Add(-2*time.Hour), all[2].CreatedAt)
	}
	if len(all[2].Meta) != 1 || all[2].Meta[0] != "420 points" {
		t.Errorf("Unexpected meta %v", all[2].Meta)
	}

	byQuery, err := b.Query(ctx, storage.Filter{Query: "zig"})
	if err != nil {
		t.Fatalf("Failed to query by query: %v", err)
	}
	if len(byQuery) != 1 || byQuery[0].RunID != "run-old" {
		t.Errorf("Expected the zig record, got %d records", len(byQuery))
	}

	since := now.Add(-90 * time.Minute)
	recent, err := b.Query(ctx, storage.Filter{Since: &since, Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query since: %v", err)
	}
	if len(recent) != 1 || recent[0].Title != "Second" {
		t.Errorf("Unexpected records after offset: %d", len(recent))
	}

	// Writes after a query still append
	extra := storage.FailedRecord("run-fail", storage.KindSearch, "cloud", "rust", os.ErrDeadlineExceeded, now)
	if err := b.Save(ctx, extra); err != nil {
		t.Fatalf("Failed to save after query: %v", err)
	}
	raw, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(raw), "\n"); lines != 4 {
		t.Errorf("Expected 4 lines, got %d", lines)
	}
}

func TestJSONBackendReopen(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "hnscrape.jsonl")
	ctx := context.Background()

	b, err := New(filePath)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := storage.ScrapeRecord("run-1", "local", "https://example.com/", map[string]int{"n": 1}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	b.Close()

	b, err = New(filePath)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	got, err := b.Query(ctx, storage.Filter{Kind: storage.KindScrape})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(got) != 1 || string(got[0].Data) != `{"n":1}` {
		t.Fatalf("Unexpected records %+v", got)
	}
}
