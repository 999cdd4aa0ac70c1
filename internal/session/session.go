// Package session manages one browser lifecycle: connect, run a scoped
// operation, and tear everything down again.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/hnscrape/internal/browser"
	"github.com/FranksOps/hnscrape/internal/serp"
	"github.com/cenkalti/backoff/v4"
)

// Operation is the caller-supplied work run against a live session.
type Operation func(ctx context.Context, s *Session) error

// Session owns a browser connection, a browsing context, one page and, in
// local mode, the browser process. It is not safe for concurrent use.
type Session struct {
	cfg      Config
	logger   *slog.Logger
	launcher browser.Launcher
	dialer   browser.Dialer
	provider serp.Provider
	recorder Recorder

	newTimer       func() backoff.Timer
	settle         time.Duration
	maxAttempts    int
	initialBackoff time.Duration

	proc  browser.Process
	conn  browser.Conn
	bctx  browser.Context
	page  browser.Page
	ready bool
}

// New validates cfg and returns an uninitialized Session.
func New(cfg Config, opts ...Option) (*Session, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:            cfg,
		logger:         slog.Default(),
		recorder:       nopRecorder{},
		newTimer:       newClockTimer,
		settle:         DefaultSettleDelay,
		maxAttempts:    DefaultMaxConnectAttempts,
		initialBackoff: DefaultInitialBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.launcher == nil {
		s.launcher = browser.NewLightpandaLauncher(cfg.Binary, s.logger)
	}
	if s.dialer == nil {
		s.dialer = browser.NewRodDialer(s.logger)
	}
	if s.provider == nil {
		s.provider = serp.NewHackerNews()
	}
	return s, nil
}

// Mode reports whether the session drives a local or cloud browser.
func (s *Session) Mode() Mode { return s.cfg.Mode }

// Timeout is the per-operation timeout.
func (s *Session) Timeout() time.Duration { return s.cfg.Timeout }

// Page returns the live page, or nil until Initialize has fully succeeded.
func (s *Session) Page() browser.Page {
	if !s.ready {
		return nil
	}
	return s.page
}

// Initialize connects to the browser and opens a browsing context with one
// page. On failure the handles acquired so far stay owned by the session
// and are released by Cleanup.
func (s *Session) Initialize(ctx context.Context) error {
	if s.ready {
		return errors.New("session already initialized")
	}

	logger := s.logger.With("mode", s.cfg.Mode)
	logger.Info("initializing browser connection")

	var err error
	switch s.cfg.Mode {
	case ModeCloud:
		err = s.connectCloud(ctx)
	default:
		err = s.connectLocal(ctx)
	}
	if err == nil {
		err = s.openPage(ctx)
	}
	if err != nil {
		logger.Error("failed to initialize browser", "err", err)
		return err
	}

	s.ready = true
	logger.Info("browser connection established")
	return nil
}

func (s *Session) openPage(ctx context.Context) error {
	bctx, err := s.conn.NewContext(ctx)
	if err != nil {
		return err
	}
	s.bctx = bctx

	page, err := bctx.NewPage(ctx)
	if err != nil {
		return err
	}
	s.page = page
	return nil
}

// Execute initializes the session, runs op and always cleans up, even when
// op panics. An op or initialization error takes precedence: if cleanup
// also fails, its error is joined behind the primary one. When op succeeds
// but cleanup fails, the *CleanupError is returned.
func (s *Session) Execute(ctx context.Context, op Operation) (err error) {
	defer func() {
		cerr := s.Cleanup(context.WithoutCancel(ctx))
		switch {
		case err != nil && cerr != nil:
			err = errors.Join(err, cerr)
		case cerr != nil:
			err = cerr
		}
		s.recorder.SessionDone(string(s.cfg.Mode), err)
	}()

	if err := s.Initialize(ctx); err != nil {
		return err
	}
	return op(ctx, s)
}

// Run is Execute for operations that produce a value. The value is returned
// even when only cleanup failed.
func Run[T any](ctx context.Context, s *Session, op func(context.Context, *Session) (T, error)) (T, error) {
	var out T
	err := s.Execute(ctx, func(ctx context.Context, s *Session) error {
		v, err := op(ctx, s)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Cleanup releases the page, browsing context, connection and local process
// in that order. Each step runs even if an earlier one failed; missing or
// already released handles are skipped. Cleanup may be called repeatedly.
func (s *Session) Cleanup(ctx context.Context) error {
	logger := s.logger.With("mode", s.cfg.Mode)
	logger.Info("cleaning up browser resources")

	var errs []error
	release := func(stage string, fn func() error) {
		if err := guard(fn); err != nil {
			logger.Error("cleanup step failed", "stage", stage, "err", err)
			s.recorder.CleanupFailure(stage)
			errs = append(errs, fmt.Errorf("%s: %w", stage, err))
		}
	}

	s.ready = false
	if page := s.page; page != nil {
		s.page = nil
		release("page", page.Close)
	}
	if bctx := s.bctx; bctx != nil {
		s.bctx = nil
		release("context", bctx.Close)
	}
	if conn := s.conn; conn != nil {
		s.conn = nil
		release("connection", conn.Disconnect)
	}
	if proc := s.proc; proc != nil {
		s.proc = nil
		release("process", func() error { return proc.Stop(ctx) })
	}

	if len(errs) > 0 {
		return &CleanupError{Errs: errs}
	}
	logger.Info("cleanup completed successfully")
	return nil
}

// guard turns a panicking release step into an error so later steps still run.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
