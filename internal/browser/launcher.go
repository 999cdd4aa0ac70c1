package browser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultBinary    = "lightpanda"
	defaultStopGrace = 5 * time.Second
)

// LightpandaLauncher starts `lightpanda serve` as a child process.
type LightpandaLauncher struct {
	Binary string
	// ExtraArgs are appended after the serve flags.
	ExtraArgs []string
	// StopGrace is how long Stop waits after SIGTERM before killing.
	StopGrace time.Duration
	Logger    *slog.Logger
}

// NewLightpandaLauncher returns a launcher for the given binary. An empty
// binary resolves "lightpanda" from PATH.
func NewLightpandaLauncher(binary string, logger *slog.Logger) *LightpandaLauncher {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LightpandaLauncher{
		Binary:    binary,
		StopGrace: defaultStopGrace,
		Logger:    logger,
	}
}

// Launch starts the browser. The process is not tied to ctx; it lives until
// Stop is called.
func (l *LightpandaLauncher) Launch(ctx context.Context, host string, port int) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.Binary == "" {
		return nil, errors.New("lightpanda: binary path required")
	}

	args := append([]string{"serve", "--host", host, "--port", strconv.Itoa(port)}, l.ExtraArgs...)
	cmd := exec.Command(l.Binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lightpanda: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("lightpanda: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lightpanda: start: %w", err)
	}

	logger := l.Logger.With("pid", cmd.Process.Pid)
	logger.Debug("lightpanda started", "binary", l.Binary, "host", host, "port", port)

	p := &process{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		grace:  l.StopGrace,
		exited: make(chan struct{}),
		logger: logger,
	}
	if p.grace <= 0 {
		p.grace = defaultStopGrace
	}

	p.pumps.Go(func() error { return pump(stdout, logger, "stdout") })
	p.pumps.Go(func() error { return pump(stderr, logger, "stderr") })

	go func() {
		// Pipes must be drained before Wait closes them.
		_ = p.pumps.Wait()
		p.exitErr = cmd.Wait()
		close(p.exited)
		logger.Debug("lightpanda exited", "err", p.exitErr)
	}()

	return p, nil
}

func pump(r io.Reader, logger *slog.Logger, stream string) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Debug("lightpanda output", "stream", stream, "line", scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("read %s: %w", stream, err)
	}
	return nil
}

type process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
	grace  time.Duration
	logger *slog.Logger

	pumps   errgroup.Group
	exited  chan struct{}
	exitErr error

	stopOnce sync.Once
	stopErr  error
}

func (p *process) PID() int                { return p.cmd.Process.Pid }
func (p *process) Exited() <-chan struct{} { return p.exited }

// Stop closes both output streams, sends SIGTERM and escalates to SIGKILL
// once the grace period or ctx runs out.
func (p *process) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		var errs []error
		if err := p.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, fmt.Errorf("close stdout: %w", err))
		}
		if err := p.stderr.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, fmt.Errorf("close stderr: %w", err))
		}

		select {
		case <-p.exited:
			p.stopErr = errors.Join(errs...)
			return
		default:
		}

		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, fmt.Errorf("signal term: %w", err))
		}

		stopCtx, cancel := context.WithTimeout(ctx, p.grace)
		defer cancel()

		select {
		case <-p.exited:
		case <-stopCtx.Done():
			p.logger.Warn("lightpanda did not exit, killing", "grace", p.grace)
			if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				errs = append(errs, fmt.Errorf("kill: %w", err))
			}
			<-p.exited
		}
		p.stopErr = errors.Join(errs...)
	})
	return p.stopErr
}
