package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingToken is returned by cloud sessions configured without a token.
var ErrMissingToken = errors.New("LPD_TOKEN environment variable is required for cloud mode")

// ConfigurationError reports an invalid or missing setting. It is raised
// before any network activity and is never retried.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CleanupError collects the release steps that failed during Cleanup.
type CleanupError struct {
	Errs []error
}

func (e *CleanupError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return "cleanup: " + strings.Join(msgs, "; ")
}

func (e *CleanupError) Unwrap() []error { return e.Errs }
