package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// ensure the rod types implement the collaborator contracts
var (
	_ Dialer  = (*RodDialer)(nil)
	_ Conn    = (*rodConn)(nil)
	_ Context = (*rodContext)(nil)
	_ Page    = (*rodPage)(nil)
)

// RodDialer connects to CDP endpoints with go-rod. The endpoint is used as-is,
// which is what Lightpanda expects for both ws://host:port and the cloud URL.
type RodDialer struct {
	Logger *slog.Logger
}

// NewRodDialer returns a Dialer backed by go-rod.
func NewRodDialer(logger *slog.Logger) *RodDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RodDialer{Logger: logger}
}

// Dial opens the WebSocket within ctx's deadline. The returned connection
// outlives ctx and is released by Disconnect.
func (d *RodDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, endpoint, nil); err != nil {
		return nil, &ConnectionError{Endpoint: Redact(endpoint), Err: err}
	}

	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	client := cdp.New().Start(ws)
	b := rod.New().Client(client).Context(connCtx)

	// The browser keeps connCtx for its event loop, so the handshake is
	// bounded by ctx from the outside.
	connected := make(chan error, 1)
	go func() { connected <- b.Connect() }()

	var err error
	select {
	case err = <-connected:
	case <-ctx.Done():
		cancel()
		_ = ws.Close()
		<-connected
		return nil, &ConnectionError{Endpoint: Redact(endpoint), Err: ctx.Err()}
	}
	if err != nil {
		cancel()
		_ = ws.Close()
		return nil, &ConnectionError{Endpoint: Redact(endpoint), Err: err}
	}

	d.Logger.Debug("cdp connection open", "endpoint", Redact(endpoint))
	return &rodConn{browser: b, ws: ws, cancel: cancel}, nil
}

type rodConn struct {
	browser *rod.Browser
	ws      *cdp.WebSocket
	cancel  context.CancelFunc
	once    sync.Once
	err     error
}

func (c *rodConn) NewContext(ctx context.Context) (Context, error) {
	incognito, err := c.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	// Detach from the caller's ctx so the context survives the call.
	return &rodContext{browser: incognito.Context(context.WithoutCancel(ctx))}, nil
}

func (c *rodConn) Disconnect() error {
	c.once.Do(func() {
		c.cancel()
		c.err = c.ws.Close()
	})
	return c.err
}

type rodContext struct {
	browser *rod.Browser
	mu      sync.Mutex
	closed  bool
}

func (c *rodContext) NewPage(ctx context.Context) (Page, error) {
	p, err := c.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &rodPage{page: p.Context(context.WithoutCancel(ctx))}, nil
}

// Close disposes the browser context.
func (c *rodContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.browser.Close(); err != nil {
		return fmt.Errorf("dispose browser context: %w", err)
	}
	return nil
}

type rodPage struct {
	page   *rod.Page
	mu     sync.Mutex
	closed bool
}

func lifecycleEvent(w WaitCondition) (proto.PageLifecycleEventName, error) {
	switch w {
	case WaitLoad:
		return proto.PageLifecycleEventNameLoad, nil
	case WaitDOMContentLoaded:
		return proto.PageLifecycleEventNameDOMContentLoaded, nil
	case WaitNetworkIdle:
		return proto.PageLifecycleEventNameNetworkIdle, nil
	case WaitNetworkAlmostIdle, "":
		return proto.PageLifecycleEventNameNetworkAlmostIdle, nil
	default:
		return "", fmt.Errorf("unknown wait condition %q", w)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (p *rodPage) Goto(ctx context.Context, url string, opts GotoOptions) error {
	event, err := lifecycleEvent(opts.WaitUntil)
	if err != nil {
		return &NavigationError{URL: url, Stage: "goto", Err: err}
	}

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	page := p.page.Context(ctx)
	wait := page.WaitNavigation(event)
	if err := page.Navigate(url); err != nil {
		return &NavigationError{URL: url, Stage: "goto", Err: err}
	}
	wait()

	// WaitNavigation returns silently when ctx ends.
	if err := ctx.Err(); err != nil {
		return &NavigationError{URL: url, Stage: "wait", Err: err}
	}
	return nil
}

func (p *rodPage) Type(ctx context.Context, selector, text string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

var namedKeys = map[string]input.Key{
	"Enter":     input.Enter,
	"Tab":       input.Tab,
	"Escape":    input.Escape,
	"Backspace": input.Backspace,
}

func (p *rodPage) Press(ctx context.Context, key string) error {
	k, ok := namedKeys[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	if err := p.page.Context(ctx).Keyboard.Type(k); err != nil {
		return fmt.Errorf("press %s: %w", key, err)
	}
	return nil
}

func (p *rodPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	if _, err := p.page.Context(ctx).Element(selector); err != nil {
		return &NavigationError{URL: selector, Stage: "wait", Err: err}
	}
	return nil
}

func (p *rodPage) Evaluate(ctx context.Context, script string, out any) error {
	res, err := p.page.Context(ctx).Eval(script)
	if err != nil {
		return &ExtractionError{Err: err}
	}
	if out == nil {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return &ExtractionError{Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ExtractionError{Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", &ExtractionError{Err: err}
	}
	return html, nil
}

func (p *rodPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.page.Close(); err != nil {
		return fmt.Errorf("close page: %w", err)
	}
	return nil
}
