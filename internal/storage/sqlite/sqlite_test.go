package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/hnscrape/internal/serp"
	"github.com/FranksOps/hnscrape/internal/storage"
)

func TestSQLiteBackend(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "hnscrape.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	results := []serp.Result{
		{Title: "Lightpanda: a headless browser", URL: "https://lightpanda.io", Meta: []string{"312 points", "by krichprollsch"}},
		{Title: "Show HN: Lightpanda", URL: "N/A"},
	}
	for _, r := range storage.SearchRecords("run-1", "local", "lightpanda", results, now) {
		if err := b.Save(ctx, r); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
	}

	scrape, err := storage.ScrapeRecord("run-2", "cloud", "https://example.com/", map[string]string{"title": "Example"}, now.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Save(ctx, scrape); err != nil {
		t.Fatalf("Failed to save scrape record: %v", err)
	}

	got, err := b.Query(ctx, storage.Filter{Query: "lightpanda"})
	if err != nil {
		t.Fatalf("Failed to query records: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	first := got[0]
	if first.Position != 1 || first.Title != results[0].Title || first.URL != results[0].URL {
		t.Errorf("Unexpected first record %+v", first)
	}
	if len(first.Meta) != 2 || first.Meta[1] != "by krichprollsch" {
		t.Errorf("Expected meta %v, got %v", results[0].Meta, first.Meta)
	}
	if first.Kind != storage.KindSearch || first.RunID != "run-1" || first.Mode != "local" {
		t.Errorf("Unexpected record identity %+v", first)
	}
	if first.CreatedAt.Unix() != now.Unix() {
		t.Errorf("Expected CreatedAt %v, got %v", now, first.CreatedAt)
	}
	if first.Data != nil {
		t.Errorf("Expected no data on search record, got %s", first.Data)
	}

	// Newest run first
	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all records: %v", err)
	}
	if len(all) != 3 || all[0].Kind != storage.KindScrape {
		t.Fatalf("Expected scrape record first, got %d records", len(all))
	}
	if string(all[0].Data) != `{"title":"Example"}` {
		t.Errorf("Unexpected data %s", all[0].Data)
	}

	paged, err := b.Query(ctx, storage.Filter{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query page: %v", err)
	}
	if len(paged) != 1 || paged[0].Position != 1 || paged[0].Kind != storage.KindSearch {
		t.Errorf("Unexpected page %+v", paged)
	}

	future := now.Add(time.Hour)
	none, err := b.Query(ctx, storage.Filter{Since: &future})
	if err != nil {
		t.Fatalf("Failed to query with Since: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected 0 records, got %d", len(none))
	}

	byRun, err := b.Query(ctx, storage.Filter{RunID: "run-2", Kind: storage.KindScrape})
	if err != nil {
		t.Fatalf("Failed to query by run: %v", err)
	}
	if len(byRun) != 1 {
		t.Errorf("Expected 1 record for run-2, got %d", len(byRun))
	}
}
