package serp

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/hnscrape/internal/browser"
)

const (
	HackerNewsURL = "https://news.ycombinator.com/"

	hnSearchInput    = `input[name="q"]`
	hnStoryContainer = ".Story_container"
)

// hnExtractScript maps every story on the Algolia results page to a Result.
const hnExtractScript = `() => Array.from(document.querySelectorAll('.Story_container')).map(row => {
	const title = row.querySelector('.Story_title span');
	const link = row.querySelector('.Story_title a');
	const meta = row.querySelectorAll('.Story_meta > span:not(.Story_separator, .Story_comment)');
	return {
		title: title ? title.textContent : 'N/A',
		url: link ? link.getAttribute('href') : 'N/A',
		meta: Array.from(meta).map(el => el.textContent),
	};
})`

// HackerNews searches Hacker News through the search box on the front page,
// which forwards to hn.algolia.com.
type HackerNews struct {
	// BaseURL defaults to HackerNewsURL.
	BaseURL string
}

// NewHackerNews returns a provider for the public Hacker News site.
func NewHackerNews() *HackerNews {
	return &HackerNews{BaseURL: HackerNewsURL}
}

func (h *HackerNews) Name() string { return "hackernews" }

// Search submits query through the front page search box and extracts every
// story on the results page. Each page step is bounded by timeout.
func (h *HackerNews) Search(ctx context.Context, page browser.Page, query string, timeout time.Duration) ([]Result, error) {
	base := h.BaseURL
	if base == "" {
		base = HackerNewsURL
	}

	if err := page.Goto(ctx, base, browser.GotoOptions{
		WaitUntil: browser.WaitNetworkAlmostIdle,
		Timeout:   timeout,
	}); err != nil {
		return nil, err
	}
	if err := bounded(ctx, timeout, func(ctx context.Context) error {
		return page.Type(ctx, hnSearchInput, query)
	}); err != nil {
		return nil, fmt.Errorf("enter query: %w", err)
	}
	if err := bounded(ctx, timeout, func(ctx context.Context) error {
		return page.Press(ctx, "Enter")
	}); err != nil {
		return nil, fmt.Errorf("submit query: %w", err)
	}
	if err := page.WaitForSelector(ctx, hnStoryContainer, timeout); err != nil {
		return nil, err
	}

	var results []Result
	if err := bounded(ctx, timeout, func(ctx context.Context) error {
		return page.Evaluate(ctx, hnExtractScript, &results)
	}); err != nil {
		return nil, err
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}

// bounded runs fn under timeout. A non-positive timeout leaves ctx as is.
func bounded(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
