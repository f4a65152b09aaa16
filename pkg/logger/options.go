package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Option tweaks the logger built by New.
type Option func(*config)

// WithDebug switches between Debug and Info.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithLevel sets the minimum level directly.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// ParseLevel accepts debug, info, warn or error (any case).
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: use debug, info, warn or error", s)
	}
	return level, nil
}

// WithPretty renders records with charmbracelet/log for terminals.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON writes one JSON object per record. Ignored when pretty is set.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter replaces os.Stdout as the destination.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters tees records to every w.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
