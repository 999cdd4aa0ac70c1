package browser

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// LocalEndpoint returns the CDP WebSocket address of a local Lightpanda
// instance.
func LocalEndpoint(host string, port int) string {
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// CloudEndpoint appends the access token to the cloud WebSocket base URL.
func CloudEndpoint(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse cloud endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("cloud endpoint %q: scheme must be ws or wss", base)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Redact hides the token query parameter so endpoints are safe to log.
func Redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
