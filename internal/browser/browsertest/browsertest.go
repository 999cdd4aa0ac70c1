// Package browsertest provides in-memory browser collaborators for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/FranksOps/hnscrape/internal/browser"
)

// Page is a scripted browser.Page. Calls are recorded in order as
// "goto <url>", "type <selector> <text>", "press <key>", "wait <selector>",
// "eval", "html" and "close".
type Page struct {
	// EvalResult is the JSON document returned by Evaluate.
	EvalResult string
	Content    string

	GotoErr  error
	TypeErr  error
	WaitErr  error
	EvalErr  error
	CloseErr error

	// BlockType makes Type wait for ctx to end, like an input that never
	// appears.
	BlockType bool

	mu      sync.Mutex
	calls   []string
	scripts []string
	closes  int
}

var _ browser.Page = (*Page)(nil)

func (p *Page) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

// Calls returns the recorded calls.
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Scripts returns every script passed to Evaluate.
func (p *Page) Scripts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.scripts...)
}

// Closes reports how many times Close was called.
func (p *Page) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *Page) Goto(ctx context.Context, url string, opts browser.GotoOptions) error {
	p.record("goto " + url)
	if p.GotoErr != nil {
		return p.GotoErr
	}
	return ctx.Err()
}

func (p *Page) Type(ctx context.Context, selector, text string) error {
	p.record(fmt.Sprintf("type %s %s", selector, text))
	if p.BlockType {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.TypeErr
}

func (p *Page) Press(_ context.Context, key string) error {
	p.record("press " + key)
	return nil
}

func (p *Page) WaitForSelector(_ context.Context, selector string, _ time.Duration) error {
	p.record("wait " + selector)
	return p.WaitErr
}

func (p *Page) Evaluate(_ context.Context, script string, out any) error {
	p.record("eval")
	p.mu.Lock()
	p.scripts = append(p.scripts, script)
	p.mu.Unlock()
	if p.EvalErr != nil {
		return &browser.ExtractionError{Err: p.EvalErr}
	}
	if out == nil || p.EvalResult == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(p.EvalResult), out); err != nil {
		return &browser.ExtractionError{Err: err}
	}
	return nil
}

func (p *Page) HTML(context.Context) (string, error) {
	p.record("html")
	return p.Content, nil
}

func (p *Page) Close() error {
	p.record("close")
	p.mu.Lock()
	p.closes++
	p.mu.Unlock()
	return p.CloseErr
}

// Context hands out a single Page.
type Context struct {
	Page     *Page
	PageErr  error
	CloseErr error
	closes   int
}

var _ browser.Context = (*Context)(nil)

func (c *Context) NewPage(context.Context) (browser.Page, error) {
	if c.PageErr != nil {
		return nil, c.PageErr
	}
	if c.Page == nil {
		c.Page = &Page{}
	}
	return c.Page, nil
}

func (c *Context) Close() error {
	c.closes++
	return c.CloseErr
}

// Closes reports how many times Close was called.
func (c *Context) Closes() int { return c.closes }

// Conn hands out a single Context.
type Conn struct {
	Context       *Context
	ContextErr    error
	DisconnectErr error
	disconnects   int
}

var _ browser.Conn = (*Conn)(nil)

func (c *Conn) NewContext(context.Context) (browser.Context, error) {
	if c.ContextErr != nil {
		return nil, c.ContextErr
	}
	if c.Context == nil {
		c.Context = &Context{}
	}
	return c.Context, nil
}

func (c *Conn) Disconnect() error {
	c.disconnects++
	return c.DisconnectErr
}

// Disconnects reports how many times Disconnect was called.
func (c *Conn) Disconnects() int { return c.disconnects }

// ErrRefused is returned by Dialer for scripted failures.
var ErrRefused = errors.New("connection refused")

// Dialer fails the first Failures dials and then returns Conn.
type Dialer struct {
	Failures int
	Conn     *Conn

	mu        sync.Mutex
	endpoints []string
}

var _ browser.Dialer = (*Dialer)(nil)

func (d *Dialer) Dial(ctx context.Context, endpoint string) (browser.Conn, error) {
	d.mu.Lock()
	d.endpoints = append(d.endpoints, endpoint)
	n := len(d.endpoints)
	d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= d.Failures {
		return nil, &browser.ConnectionError{
			Endpoint: browser.Redact(endpoint),
			Err:      fmt.Errorf("attempt %d: %w", n, ErrRefused),
		}
	}
	if d.Conn == nil {
		d.Conn = &Conn{}
	}
	return d.Conn, nil
}

// Dials returns the endpoints dialed so far.
func (d *Dialer) Dials() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.endpoints...)
}

// Process is a browser.Process that never runs anything.
type Process struct {
	StopErr error

	once   sync.Once
	exited chan struct{}
	stops  int
}

var _ browser.Process = (*Process)(nil)

func (p *Process) PID() int { return 4242 }

func (p *Process) Exited() <-chan struct{} {
	p.once.Do(func() { p.exited = make(chan struct{}) })
	return p.exited
}

func (p *Process) Stop(context.Context) error {
	p.Exited()
	p.stops++
	if p.stops == 1 {
		close(p.exited)
	}
	return p.StopErr
}

// Stops reports how many times Stop was called.
func (p *Process) Stops() int { return p.stops }

// Launcher returns Process from every Launch.
type Launcher struct {
	Process *Process
	Err     error

	launches int
}

var _ browser.Launcher = (*Launcher)(nil)

func (l *Launcher) Launch(context.Context, string, int) (browser.Process, error) {
	l.launches++
	if l.Err != nil {
		return nil, l.Err
	}
	if l.Process == nil {
		l.Process = &Process{}
	}
	return l.Process, nil
}

// Launches reports how many processes were launched.
func (l *Launcher) Launches() int { return l.launches }
