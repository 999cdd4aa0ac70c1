package browser

import (
	"context"
	"errors"
	"fmt"
)

// ConnectionError reports that a CDP endpoint could not be reached.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NavigationError reports a failed or timed out page navigation or wait.
type NavigationError struct {
	URL string
	// Stage is "goto" or "wait".
	Stage string
	Err   error
}

func (e *NavigationError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("%s %s: timed out: %v", e.Stage, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// Timeout reports whether the navigation exceeded its deadline.
func (e *NavigationError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ExtractionError reports a failure evaluating or decoding page data.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a navigation or wait timeout.
func IsTimeout(err error) bool {
	var nav *NavigationError
	if errors.As(err, &nav) {
		return nav.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
