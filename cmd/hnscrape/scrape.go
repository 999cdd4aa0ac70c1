package main

import (
	"context"

	"github.com/FranksOps/hnscrape/internal/extract"
	"github.com/FranksOps/hnscrape/internal/storage"
	"github.com/FranksOps/hnscrape/pkg/hnscrape"
	"github.com/spf13/cobra"
)

func (a *app) scrapeCmd() *cobra.Command {
	var (
		selector string
		attr     string
		script   string
	)

	cmd := &cobra.Command{
		Use:   "scrape URL",
		Short: "Load a page and extract data from it",
		Long: `Load URL, wait for the network to settle and print the extracted data as
JSON. Without --selector or --script the page title and final URL are printed.`,
		Example: `  # Story titles from the front page
  hnscrape scrape https://news.ycombinator.com/ --selector ".titleline > a"

  # Links, via an attribute
  hnscrape scrape https://news.ycombinator.com/ --selector ".titleline > a" --attr href

  # A custom page function
  hnscrape scrape https://example.com/ --script "() => document.querySelectorAll('p').length"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ex extract.Extractor = extract.DefaultScript
			switch {
			case selector != "":
				ex = extract.Selector{CSS: selector, Attr: attr}
			case script != "":
				ex = extract.Script(script)
			}
			return a.scrape(cmd.Context(), args[0], ex)
		},
	}

	f := cmd.Flags()
	f.StringVar(&selector, "selector", "", "CSS selector whose matches are returned as text")
	f.StringVar(&attr, "attr", "", "with --selector, return this attribute instead of text")
	f.StringVar(&script, "script", "", "JavaScript function evaluated in the page")
	cmd.MarkFlagsMutuallyExclusive("selector", "script")

	return cmd
}

func (a *app) scrape(ctx context.Context, url string, ex extract.Extractor) error {
	mode := string(a.cfg.Mode())
	a.logger.Info("starting page scrape", "url", url, "mode", mode)

	runID := storage.NewRunID()
	data, err := hnscrape.ScrapeURL(ctx, url, ex, a.options())
	if err = a.tolerateCleanup(err); err != nil {
		a.logger.Error("scrape failed", "url", url, "err", err)
		failed := storage.FailedRecord(runID, storage.KindScrape, mode, url, err, a.now())
		if perr := a.persist(ctx, []*storage.Record{failed}); perr != nil {
			a.logger.Warn("failed to store run", "err", perr)
		}
		return err
	}

	if err := writeJSON(a.stdout, data); err != nil {
		return err
	}

	rec, err := storage.ScrapeRecord(runID, mode, url, data, a.now())
	if err != nil {
		return err
	}
	return a.persist(ctx, []*storage.Record{rec})
}
