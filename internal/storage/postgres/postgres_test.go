package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/FranksOps/hnscrape/internal/serp"
	"github.com/FranksOps/hnscrape/internal/storage"
)

func TestPostgresBackend(t *testing.T) {
	// Only run this test if HNSCRAPE_TEST_PG_DSN is set
	dsn := os.Getenv("HNSCRAPE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres backend test: HNSCRAPE_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres backend: %v", err)
	}
	defer b.Close()

	now := time.Now().UTC()
	runID := storage.NewRunID()

	results := []serp.Result{
		{Title: "Lightpanda", URL: "https://lightpanda.io", Meta: []string{"99 points"}},
		{Title: "Ask HN: headless browsers?", URL: "N/A", Meta: []string{}},
	}
	for _, r := range storage.SearchRecords(runID, "cloud", "lightpanda", results, now) {
		if err := b.Save(ctx, r); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
	}

	got, err := b.Query(ctx, storage.Filter{RunID: runID})
	if err != nil {
		t.Fatalf("Failed to query records: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].Position != 1 || got[0].Title != "Lightpanda" || got[0].Meta[0] != "99 points" {
		t.Errorf("Unexpected first record %+v", got[0])
	}
	if got[1].URL != "N/A" {
		t.Errorf("Expected N/A url, got %q", got[1].URL)
	}

	// Postgres timestamps might differ slightly in sub-millisecond precision
	if got[0].CreatedAt.Unix() != now.Unix() {
		t.Errorf("Expected CreatedAt %v, got %v", now, got[0].CreatedAt)
	}

	past := now.Add(-1 * time.Hour)
	since, err := b.Query(ctx, storage.Filter{Query: "lightpanda", Since: &past, Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query records with Since: %v", err)
	}
	if len(since) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(since))
	}
}
