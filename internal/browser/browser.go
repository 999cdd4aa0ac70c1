package browser

import (
	"context"
	"time"
)

// WaitCondition selects the page lifecycle event that marks a navigation as
// complete.
type WaitCondition string

const (
	WaitLoad             WaitCondition = "load"
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	// WaitNetworkIdle waits until there are no network connections for 500ms.
	WaitNetworkIdle WaitCondition = "networkidle"
	// WaitNetworkAlmostIdle tolerates up to two in-flight connections.
	WaitNetworkAlmostIdle WaitCondition = "networkidle2"
)

// DefaultWaitCondition is used by Goto when no condition is given.
const DefaultWaitCondition = WaitNetworkAlmostIdle

// GotoOptions configures a single navigation.
type GotoOptions struct {
	WaitUntil WaitCondition
	// Timeout bounds navigation plus the wait condition. Zero means no bound
	// beyond the supplied context.
	Timeout time.Duration
}

// Launcher spawns a local browser process listening for CDP connections.
// Launch may return before the process accepts connections.
type Launcher interface {
	Launch(ctx context.Context, host string, port int) (Process, error)
}

// Process is a running browser process owned by a session.
type Process interface {
	PID() int
	// Exited is closed once the process has terminated.
	Exited() <-chan struct{}
	// Stop closes the output streams and terminates the process. Calling Stop
	// on a stopped process is a no-op.
	Stop(ctx context.Context) error
}

// Dialer connects to a CDP WebSocket endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// Conn is a live protocol connection to a browser.
type Conn interface {
	NewContext(ctx context.Context) (Context, error)
	// Disconnect drops the connection without closing the remote browser.
	Disconnect() error
}

// Context is an isolated browsing context (incognito profile).
type Context interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab inside a browsing context.
type Page interface {
	Goto(ctx context.Context, url string, opts GotoOptions) error
	// Type focuses the element matching selector and inserts text.
	Type(ctx context.Context, selector, text string) error
	// Press sends a single named key, e.g. "Enter".
	Press(ctx context.Context, key string) error
	// WaitForSelector blocks until an element matching selector exists.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	// Evaluate runs a JavaScript function definition in the page and decodes
	// its JSON result into out. out may be nil.
	Evaluate(ctx context.Context, script string, out any) error
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	Close() error
}
