// Package logging builds the process logger. It is created once in main and
// handed to every component that logs.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Output formats.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
)

// ParseLevel accepts debug, info, warn (or warning) and error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		level = slog.LevelInfo
	case "warning":
		level = slog.LevelWarn
	default:
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return 0, fmt.Errorf("unknown log level %q", s)
		}
	}
	return level, nil
}

// ValidFormat reports whether format is a supported output format.
func ValidFormat(format string) bool {
	switch format {
	case "", FormatPretty, "text", FormatJSON:
		return true
	}
	return false
}

// New returns a logger writing to w. The json format emits one object per
// record; anything else uses slog's key=value text handler.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts).WithAttrs([]slog.Attr{slog.String("service", "hnscrape")}))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
