package session

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/FranksOps/hnscrape/internal/browser"
	"github.com/FranksOps/hnscrape/internal/extract"
	"github.com/FranksOps/hnscrape/internal/serp"
)

var errNotInitialized = errors.New("session not initialized")

// Search runs term through the session's search provider.
func (s *Session) Search(ctx context.Context, term string) ([]serp.Result, error) {
	page := s.Page()
	if page == nil {
		return nil, errNotInitialized
	}

	logger := s.logger.With("mode", s.cfg.Mode, "term", term, "provider", s.provider.Name())
	logger.Info("performing search")

	start := time.Now()
	results, err := s.provider.Search(ctx, page, term, s.cfg.Timeout)
	s.recorder.Operation("search", time.Since(start), len(results), err)
	if err != nil {
		logger.Error("search failed", "err", err)
		return nil, err
	}

	logger.Info("search completed successfully", "results", len(results))
	return results, nil
}

// ScrapeURL navigates to url, waits for the network to settle and applies ex
// to the loaded document.
func (s *Session) ScrapeURL(ctx context.Context, url string, ex extract.Extractor) (any, error) {
	page := s.Page()
	if page == nil {
		return nil, errNotInitialized
	}
	if ex == nil {
		ex = extract.DefaultScript
	}

	logger := s.logger.With("mode", s.cfg.Mode, "url", url)
	logger.Info("navigating to url")

	start := time.Now()
	data, err := s.scrape(ctx, page, url, ex)
	s.recorder.Operation("scrape", time.Since(start), countOf(data), err)
	if err != nil {
		logger.Error("failed to scrape url", "err", err)
		return nil, err
	}

	logger.Info("data extraction completed successfully")
	return data, nil
}

func (s *Session) scrape(ctx context.Context, page browser.Page, url string, ex extract.Extractor) (any, error) {
	if err := page.Goto(ctx, url, browser.GotoOptions{
		WaitUntil: browser.WaitNetworkAlmostIdle,
		Timeout:   s.cfg.Timeout,
	}); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return ex.Extract(ctx, page)
}

// countOf reports the length of slice results and 1 for anything else.
func countOf(v any) int {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		return rv.Len()
	}
	return 1
}
