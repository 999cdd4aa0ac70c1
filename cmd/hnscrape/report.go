package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/FranksOps/hnscrape/internal/report"
	"github.com/FranksOps/hnscrape/internal/storage"
	"github.com/FranksOps/hnscrape/internal/storage/open"
	"github.com/spf13/cobra"
)

func (a *app) reportCmd() *cobra.Command {
	var (
		format string
		query  string
		runID  string
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize results persisted with --store",
		Example: `  hnscrape report --store sqlite://hnscrape.db
  hnscrape report --store json://runs.jsonl --format html > report.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Store == "" {
				return errors.New("report needs a store: pass --store or set STORE")
			}
			filter := storage.Filter{Query: query, RunID: runID}
			if since > 0 {
				t := a.now().Add(-since)
				filter.Since = &t
			}

			b, err := open.Backend(cmd.Context(), a.cfg.Store)
			if err != nil {
				return err
			}
			defer b.Close()

			records, err := b.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			summary := report.GenerateSummary(records)

			switch format {
			case "text":
				return report.WriteText(a.stdout, summary)
			case "json":
				return report.WriteJSON(a.stdout, summary)
			case "html":
				return report.WriteHTML(a.stdout, summary)
			default:
				return fmt.Errorf("unknown report format %q", format)
			}
		},
	}

	f := cmd.Flags()
	f.StringVar(&format, "format", "text", "report format: text, json, html")
	f.StringVar(&query, "query", "", "only include this search term or URL")
	f.StringVar(&runID, "run", "", "only include this run id")
	f.DurationVar(&since, "since", 0, "only include records newer than this, e.g. 24h")

	return cmd
}
