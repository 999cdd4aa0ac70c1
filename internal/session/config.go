package session

import (
	"errors"
	"fmt"
	"time"
)

// Mode selects where the browser runs.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 9222
	DefaultTimeout       = 10 * time.Second
	DefaultCloudEndpoint = "wss://euwest.cloud.lightpanda.io/ws"

	// DefaultSettleDelay is waited after spawning a local browser before the
	// first connection attempt.
	DefaultSettleDelay = time.Second
	// DefaultMaxConnectAttempts counts the first attempt, so four retries.
	DefaultMaxConnectAttempts = 5
	DefaultInitialBackoff     = 500 * time.Millisecond
)

// Config describes the browser a Session attaches to.
type Config struct {
	Mode Mode
	// Host and Port locate the local browser's CDP listener.
	Host string
	Port int
	// Binary is the local browser executable.
	Binary string
	// CloudEndpoint is the WebSocket base URL used in cloud mode.
	CloudEndpoint string
	CloudToken    string
	// Timeout bounds each connection attempt and page operation.
	Timeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeLocal
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.CloudEndpoint == "" {
		c.CloudEndpoint = DefaultCloudEndpoint
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeLocal, ModeCloud:
	default:
		return &ConfigurationError{Field: "mode", Err: fmt.Errorf("unknown mode %q", c.Mode)}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ConfigurationError{Field: "port", Err: fmt.Errorf("%d out of range", c.Port)}
	}
	if c.Timeout < 0 {
		return &ConfigurationError{Field: "timeout", Err: errors.New("must not be negative")}
	}
	return nil
}
