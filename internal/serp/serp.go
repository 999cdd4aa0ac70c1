// Package serp drives a site's search box through a browser page and returns
// the listed results.
package serp

import (
	"context"
	"time"

	"github.com/FranksOps/hnscrape/internal/browser"
)

// Result is one entry on a search results page.
type Result struct {
	Title string   `json:"title"`
	URL   string   `json:"url"`
	Meta  []string `json:"meta"`
}

// Provider abstracts a site whose search can be driven through a page.
// Implementations navigate, submit the query, wait for results and extract
// them; the results are returned in page order.
type Provider interface {
	Name() string
	Search(ctx context.Context, page browser.Page, query string, timeout time.Duration) ([]Result, error)
}

// Limit returns at most n results. A non-positive n keeps everything.
func Limit(results []Result, n int) []Result {
	if n <= 0 || n >= len(results) {
		return results
	}
	return results[:n]
}
