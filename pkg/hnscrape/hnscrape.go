// Package hnscrape searches Hacker News and scrapes pages through a
// Lightpanda browser, either spawned locally or reached in the cloud.
//
// Each call runs one full browser session: connect, operate, tear down.
package hnscrape

import (
	"context"
	"log/slog"

	"github.com/FranksOps/hnscrape/internal/config"
	"github.com/FranksOps/hnscrape/internal/extract"
	"github.com/FranksOps/hnscrape/internal/serp"
	"github.com/FranksOps/hnscrape/internal/session"
)

type (
	// Result is a single search hit.
	Result = serp.Result
	// Extractor pulls data from a loaded page.
	Extractor = extract.Extractor
)

// Options configures a single call. The zero value drives a local browser
// with default settings.
type Options struct {
	Session  session.Config
	Logger   *slog.Logger
	Recorder session.Recorder
	// Extra is applied after the fields above.
	Extra []session.Option
}

// OptionsFromEnv builds Options from environment variables and defaults.
func OptionsFromEnv() (Options, error) {
	cfg, err := config.Load(config.New())
	if err != nil {
		return Options{}, err
	}
	return Options{Session: cfg.Session()}, nil
}

func (o Options) newSession() (*session.Session, error) {
	opts := []session.Option{session.WithLogger(o.Logger), session.WithRecorder(o.Recorder)}
	return session.New(o.Session, append(opts, o.Extra...)...)
}

// Search looks term up on Hacker News and returns the hits in page order.
func Search(ctx context.Context, term string, opts Options) ([]Result, error) {
	s, err := opts.newSession()
	if err != nil {
		return nil, err
	}
	return session.Run(ctx, s, func(ctx context.Context, s *session.Session) ([]Result, error) {
		return s.Search(ctx, term)
	})
}

// ScrapeURL loads url and returns whatever ex extracts. A nil extractor
// returns the page title and final URL.
func ScrapeURL(ctx context.Context, url string, ex Extractor, opts Options) (any, error) {
	s, err := opts.newSession()
	if err != nil {
		return nil, err
	}
	return session.Run(ctx, s, func(ctx context.Context, s *session.Session) (any, error) {
		return s.ScrapeURL(ctx, url, ex)
	})
}
