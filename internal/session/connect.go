package session

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/hnscrape/internal/browser"
	"github.com/cenkalti/backoff/v4"
)

// Recorder observes session lifecycle events, typically for metrics.
type Recorder interface {
	ConnectAttempt(mode string, err error)
	SessionDone(mode string, err error)
	Operation(name string, d time.Duration, results int, err error)
	CleanupFailure(stage string)
}

type nopRecorder struct{}

func (nopRecorder) ConnectAttempt(string, error) {}
func (nopRecorder) SessionDone(string, error) {}
func (nopRecorder) Operation(string, time.Duration, int, error) {}
func (nopRecorder) CleanupFailure(string) {}

// clockTimer is a backoff.Timer backed by time.Timer.
type clockTimer struct {
	timer *time.Timer
}

func newClockTimer() backoff.Timer { return &clockTimer{} }

func (t *clockTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = time.NewTimer(d)
		return
	}
	t.timer.Reset(d)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time { return t.timer.C }

// sleep blocks for d on t or until ctx ends.
func sleep(ctx context.Context, t backoff.Timer, d time.Duration) error {
	t.Start(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// policy is a deterministic doubling backoff capped at maxAttempts tries.
func (s *Session) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialBackoff
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = s.initialBackoff << uint(s.maxAttempts)
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxAttempts-1)), ctx)
}

// dial makes one connection attempt bounded by the session timeout.
func (s *Session) dial(ctx context.Context, endpoint string) (browser.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	conn, err := s.dialer.Dial(dialCtx, endpoint)
	s.recorder.ConnectAttempt(string(s.cfg.Mode), err)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// connectLocal spawns the browser, waits the settle delay and dials it with
// retries.
func (s *Session) connectLocal(ctx context.Context) error {
	proc, err := s.launcher.Launch(ctx, s.cfg.Host, s.cfg.Port)
	if err != nil {
		return fmt.Errorf("launch local browser: %w", err)
	}
	s.proc = proc
	s.logger.Debug("local browser launched", "pid", proc.PID(), "host", s.cfg.Host, "port", s.cfg.Port)

	timer := s.newTimer()
	if s.settle > 0 {
		if err := sleep(ctx, timer, s.settle); err != nil {
			return err
		}
	}

	endpoint := browser.LocalEndpoint(s.cfg.Host, s.cfg.Port)
	attempt := 0
	connect := func() error {
		attempt++
		conn, err := s.dial(ctx, endpoint)
		if err != nil {
			return err
		}
		s.conn = conn
		return nil
	}
	notify := func(err error, delay time.Duration) {
		s.logger.Warn("connection failed, retrying",
			"mode", s.cfg.Mode,
			"attempt", attempt,
			"remaining", s.maxAttempts-attempt,
			"delay", delay,
			"err", err,
		)
	}

	if err := backoff.RetryNotifyWithTimer(connect, s.policy(ctx), notify, timer); err != nil {
		return fmt.Errorf("connect after %d attempts: %w", attempt, err)
	}
	return nil
}

// connectCloud makes a single attempt against the token-bearing endpoint.
func (s *Session) connectCloud(ctx context.Context) error {
	if s.cfg.CloudToken == "" {
		return &ConfigurationError{Field: "LPD_TOKEN", Err: ErrMissingToken}
	}
	endpoint, err := browser.CloudEndpoint(s.cfg.CloudEndpoint, s.cfg.CloudToken)
	if err != nil {
		return &ConfigurationError{Field: "cloud endpoint", Err: err}
	}

	conn, err := s.dial(ctx, endpoint)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}
