package storage

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/FranksOps/hnscrape/internal/serp"
	"github.com/google/uuid"
)

// Kind distinguishes search hits from scraped pages.
type Kind string

const (
	KindSearch Kind = "search"
	KindScrape Kind = "scrape"
)

// Record is one persisted result of a run. A search produces one record per
// hit; a scrape produces a single record carrying the extracted data.
type Record struct {
	ID    string `json:"id"`
	RunID string `json:"run_id"`
	Kind  Kind   `json:"kind"`
	// Query is the search term, or the target URL for scrapes.
	Query    string          `json:"query"`
	Mode     string          `json:"mode"`
	Position int             `json:"position"`
	Title    string          `json:"title,omitempty"`
	URL      string          `json:"url,omitempty"`
	Meta     []string        `json:"meta,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	// Error is non-empty if the run failed before producing results.
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter allows querying for specific Records.
type Filter struct {
	Query  string
	Kind   Kind
	RunID  string
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend defines the interface for storing and querying records.
type Backend interface {
	Save(ctx context.Context, record *Record) error
	Query(ctx context.Context, filter Filter) ([]*Record, error)
	Close() error
}

// Match reports whether r passes every condition of f except paging.
func (f Filter) Match(r *Record) bool {
	if f.Query != "" && r.Query != f.Query {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Window orders records newest first, keeping result order within a run, and
// applies the filter's offset and limit. Backends without a query engine use
// it after matching.
func Window(records []*Record, f Filter) []*Record {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Position < b.Position
	})

	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []*Record{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}

// NewRunID returns a fresh identifier grouping the records of one run.
func NewRunID() string { return uuid.NewString() }

// SearchRecords converts search results into records stamped with at.
func SearchRecords(runID, mode, term string, results []serp.Result, at time.Time) []*Record {
	records := make([]*Record, 0, len(results))
	for i, res := range results {
		records = append(records, &Record{
			ID:        uuid.NewString(),
			RunID:     runID,
			Kind:      KindSearch,
			Query:     term,
			Mode:      mode,
			Position:  i + 1,
			Title:     res.Title,
			URL:       res.URL,
			Meta:      res.Meta,
			CreatedAt: at,
		})
	}
	return records
}

// ScrapeRecord wraps extracted data for url.
func ScrapeRecord(runID, mode, url string, data any, at time.Time) (*Record, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:        uuid.NewString(),
		RunID:     runID,
		Kind:      KindScrape,
		Query:     url,
		Mode:      mode,
		Position:  1,
		URL:       url,
		Data:      raw,
		CreatedAt: at,
	}, nil
}

// FailedRecord notes a run that produced no results.
func FailedRecord(runID string, kind Kind, mode, query string, runErr error, at time.Time) *Record {
	return &Record{
		ID:        uuid.NewString(),
		RunID:     runID,
		Kind:      kind,
		Query:     query,
		Mode:      mode,
		Error:     runErr.Error(),
		CreatedAt: at,
	}
}
