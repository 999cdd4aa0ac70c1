package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/FranksOps/hnscrape/internal/config"
	"github.com/FranksOps/hnscrape/internal/logging"
	"github.com/FranksOps/hnscrape/internal/metrics"
	"github.com/FranksOps/hnscrape/internal/serp"
	"github.com/FranksOps/hnscrape/internal/session"
	"github.com/FranksOps/hnscrape/internal/storage"
	"github.com/FranksOps/hnscrape/internal/storage/open"
	"github.com/FranksOps/hnscrape/pkg/hnscrape"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
	// extra is appended to every session's options.
	extra []session.Option
	now   func() time.Time

	envFile string
	local   bool

	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Server
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, extra []session.Option) int {
	a := &app{
		v:      config.New(),
		stdout: stdout,
		stderr: stderr,
		extra:  extra,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if stopErr := a.metrics.Stop(context.Background()); stopErr != nil {
		a.logger.Warn("metrics server shutdown failed", "err", stopErr)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	var (
		asJSON   bool
		asPretty bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "hnscrape [SEARCH_TERM]",
		Short: "Search Hacker News with a Lightpanda headless browser",
		Long: `hnscrape drives a Lightpanda browser, spawned locally or reached in the
cloud, to search Hacker News and print the matching stories.

Settings come from flags, then environment variables, then a .env file:
  LPD_TOKEN             Cloud browser authentication token
  USE_CLOUD             Set to 'true' to use cloud by default
  LPD_CLOUD_ENDPOINT    Cloud WebSocket endpoint
  LPD_HOST              Local browser host (default: 127.0.0.1)
  LPD_PORT              Local browser port (default: 9222)
  LPD_BINARY            Local browser executable (default: lightpanda)
  TIMEOUT               Request timeout in ms (default: 10000)
  SEARCH_TERM           Default search term (default: lightpanda)
  LOG_LEVEL             Log level: debug, info, warn, error (default: info)
  LOG_FORMAT            Log format: pretty, json (default: pretty)
  STORE                 Result store DSN, e.g. sqlite://hnscrape.db
  METRICS_PORT          Serve Prometheus metrics on this port`,
		Example: `  # Search for "rust" using local browser
  hnscrape rust

  # Search using cloud browser with JSON output
  hnscrape --cloud --json "web scraping"

  # Search with explicit search flag
  hnscrape --search "artificial intelligence"`,
		Args:              cobra.MaximumNArgs(1),
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			term := a.cfg.SearchTerm
			if len(args) == 1 {
				term = args[0]
			}
			format := formatPretty
			if asJSON && !asPretty {
				format = formatJSON
			}
			return a.search(cmd.Context(), term, limit, format)
		},
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.BoolP("cloud", "c", false, "use cloud browser (requires LPD_TOKEN)")
	pf.BoolVarP(&a.local, "local", "l", false, "use local browser (default)")
	pf.String("store", "", "persist results to this store (sqlite://, postgres://, json://, csv://)")
	pf.Int("metrics-port", 0, "serve Prometheus metrics on this port")
	pf.Int("timeout", int(session.DefaultTimeout.Milliseconds()), "operation timeout in milliseconds")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&a.envFile, "env-file", ".env", "read KEY=value defaults from this file if it exists")
	cmd.MarkFlagsMutuallyExclusive("cloud", "local")

	f := cmd.Flags()
	f.StringP("search", "s", "", "search term (default: SEARCH_TERM or 'lightpanda')")
	f.BoolVarP(&asJSON, "json", "j", false, "output results as JSON")
	f.BoolVarP(&asPretty, "pretty", "p", false, "output results in pretty format (default)")
	f.IntVar(&limit, "limit", 0, "print at most this many results")
	cmd.MarkFlagsMutuallyExclusive("json", "pretty")

	bindFlags(a.v, pf, map[string]string{
		config.KeyCloud:       "cloud",
		config.KeyStore:       "store",
		config.KeyMetricsPort: "metrics-port",
		config.KeyTimeout:     "timeout",
		config.KeyLogLevel:    "log-level",
	})
	bindFlags(a.v, f, map[string]string{config.KeySearchTerm: "search"})

	cmd.AddCommand(a.scrapeCmd(), a.reportCmd(), a.versionCmd())
	return cmd
}

// bindFlags lets flags override the config keys they map to. Only flags set
// on the command line take precedence over the environment.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// setup resolves configuration and builds the logger once flags are parsed.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.ReadDotEnv(a.v, a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if a.local {
		cfg.Cloud = false
	}
	a.cfg = cfg

	level, _ := logging.ParseLevel(cfg.LogLevel)
	a.logger = logging.New(a.stderr, level, cfg.LogFormat)

	if cfg.MetricsPort > 0 {
		srv, err := metrics.Start(cfg.MetricsPort, a.logger)
		if err != nil {
			return err
		}
		a.metrics = srv
	}
	return nil
}

func (a *app) options() hnscrape.Options {
	return hnscrape.Options{
		Session:  a.cfg.Session(),
		Logger:   a.logger,
		Recorder: metrics.Recorder{},
		Extra:    a.extra,
	}
}

// tolerateCleanup reports a cleanup-only failure as a warning. The
// operation's result is still valid in that case.
func (a *app) tolerateCleanup(err error) error {
	var cleanupErr *session.CleanupError
	if errors.As(err, &cleanupErr) && err == error(cleanupErr) {
		a.logger.Warn("browser cleanup incomplete", "err", err)
		return nil
	}
	return err
}

// persist saves records when a store is configured.
func (a *app) persist(ctx context.Context, records []*storage.Record) error {
	if a.cfg.Store == "" || len(records) == 0 {
		return nil
	}
	b, err := open.Backend(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	defer b.Close()

	for _, r := range records {
		if err := b.Save(ctx, r); err != nil {
			return err
		}
	}
	a.logger.Debug("results stored", "records", len(records), "run_id", records[0].RunID)
	return nil
}

func (a *app) search(ctx context.Context, term string, limit int, format string) error {
	mode := string(a.cfg.Mode())
	a.logger.Info("starting hackernews scraper", "term", term, "mode", mode)

	runID := storage.NewRunID()
	results, err := hnscrape.Search(ctx, term, a.options())
	if err = a.tolerateCleanup(err); err != nil {
		a.logger.Error("scraper failed", "err", err)
		failed := storage.FailedRecord(runID, storage.KindSearch, mode, term, err, a.now())
		if perr := a.persist(ctx, []*storage.Record{failed}); perr != nil {
			a.logger.Warn("failed to store run", "err", perr)
		}
		return err
	}

	results = serp.Limit(results, limit)
	if err := writeResults(a.stdout, results, format); err != nil {
		return err
	}
	return a.persist(ctx, storage.SearchRecords(runID, mode, term, results, a.now()))
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "hnscrape v%s\n", version)
		},
	}
}
