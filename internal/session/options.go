package session

import (
	"log/slog"
	"time"

	"github.com/FranksOps/hnscrape/internal/browser"
	"github.com/FranksOps/hnscrape/internal/serp"
	"github.com/cenkalti/backoff/v4"
)

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLauncher overrides how the local browser process is spawned.
func WithLauncher(l browser.Launcher) Option {
	return func(s *Session) { s.launcher = l }
}

// WithDialer overrides the protocol client.
func WithDialer(d browser.Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithProvider overrides the search provider used by Search.
func WithProvider(p serp.Provider) Option {
	return func(s *Session) { s.provider = p }
}

// WithRecorder reports lifecycle metrics to r.
func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithTimer supplies the timer used for the settle delay and backoff waits.
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(s *Session) { s.newTimer = newTimer }
}

// WithSettleDelay sets the pause between launching the local browser and the
// first connection attempt. Zero disables it.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Session) { s.settle = d }
}

// WithRetry sets the total number of local connection attempts and the first
// backoff delay, which doubles after every failure.
func WithRetry(attempts int, initial time.Duration) Option {
	return func(s *Session) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
		if initial > 0 {
			s.initialBackoff = initial
		}
	}
}
