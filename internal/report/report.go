package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/FranksOps/hnscrape/internal/storage"
)

// Summary contains aggregated figures about stored runs.
type Summary struct {
	TotalRecords int
	TotalRuns    int
	FailedRuns   int
	// Queries counts results per search term or scraped URL.
	Queries map[string]int
	Modes   map[string]int
	// Domains counts result links by host. Relative and missing links are
	// counted under "news.ycombinator.com" and "n/a".
	Domains   map[string]int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// GenerateSummary processes stored records to generate summary figures.
func GenerateSummary(records []*storage.Record) Summary {
	s := Summary{
		Queries: make(map[string]int),
		Modes:   make(map[string]int),
		Domains: make(map[string]int),
	}

	if len(records) == 0 {
		return s
	}

	runs := make(map[string]bool)
	for _, r := range records {
		if _, seen := runs[r.RunID]; !seen {
			runs[r.RunID] = false
			s.Modes[r.Mode]++
		}
		if r.Error != "" {
			runs[r.RunID] = true
			continue
		}

		s.TotalRecords++
		s.Queries[r.Query]++
		if r.Kind == storage.KindSearch {
			s.Domains[domainOf(r.URL)]++
		}

		if s.StartTime.IsZero() || r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.TotalRuns = len(runs)
	for _, failed := range runs {
		if failed {
			s.FailedRuns++
		}
	}

	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

func domainOf(link string) string {
	if link == "" || link == "N/A" {
		return "n/a"
	}
	u, err := url.Parse(link)
	if err != nil {
		return "n/a"
	}
	if u.Host == "" {
		return "news.ycombinator.com"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `hnscrape Summary
----------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Runs:          {{.TotalRuns}} ({{.FailedRuns}} failed)
Results:       {{.TotalRecords}}

Queries:
{{- range $q, $count := .Queries}}
  {{$q}}: {{$count}}
{{- else}}
  None
{{- end}}

Modes:
{{- range $mode, $count := .Modes}}
  {{$mode}}: {{$count}}
{{- else}}
  None
{{- end}}

Domains:
{{- range $domain, $count := .Domains}}
  {{$domain}}: {{$count}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>hnscrape Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ff6600; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f6f6ef; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  .failed { color: {{if gt .FailedRuns 0}}red{{else}}green{{end}}; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>hnscrape Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Runs</div>
    <div class="stat-val">{{.TotalRuns}}</div>
  </div>
  <div class="stat-card">
    <div>Failed Runs</div>
    <div class="stat-val failed">{{.FailedRuns}}</div>
  </div>
  <div class="stat-card">
    <div>Results</div>
    <div class="stat-val">{{.TotalRecords}}</div>
  </div>

  <h3>Queries</h3>
  <table>
    <tr><th>Query</th><th>Results</th></tr>
    {{- range $q, $count := .Queries}}
    <tr><td>{{$q}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Domains</h3>
  <table>
    <tr><th>Domain</th><th>Results</th></tr>
    {{- range $domain, $count := .Domains}}
    <tr><td>{{$domain}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("parse html template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	return nil
}
