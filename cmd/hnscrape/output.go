package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/FranksOps/hnscrape/internal/serp"
)

const (
	formatPretty = "pretty"
	formatJSON   = "json"
)

var rule = strings.Repeat("=", 80)

func writeResults(w io.Writer, results []serp.Result, format string) error {
	if format == formatJSON {
		return writeJSON(w, results)
	}

	fmt.Fprintf(w, "\n%s\nFound %d results\n%s\n\n", rule, len(results), rule)
	for i, r := range results {
		fmt.Fprintf(w, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(w, "   URL: %s\n", r.URL)
		if len(r.Meta) > 0 {
			fmt.Fprintf(w, "   Meta: %s\n", strings.Join(r.Meta, " | "))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}
