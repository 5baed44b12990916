// Package logger builds slog loggers from environment-driven configuration.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Format is the logger output format.
type Format string

const (
	// FormatJSON emits structured logs for production aggregation.
	FormatJSON Format = "json"
	// FormatText emits human-readable logs for development.
	FormatText Format = "text"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	Format Format     `env:"LOG_FORMAT" envDefault:"json"`
}

// Option configures logger creation.
type Option func(*settings)

type settings struct {
	output io.Writer
	attrs  []slog.Attr
}

// WithOutput sets a custom output destination; nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.output = w
		}
	}
}

// WithAttr adds static attributes to every log record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(s *settings) {
		s.attrs = append(s.attrs, attrs...)
	}
}

// New creates an slog.Logger from config. Panics on an unknown format to
// surface misconfiguration at startup instead of at the first log call.
func New(cfg Config, opts ...Option) *slog.Logger {
	s := &settings{output: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON, "":
		handler = slog.NewJSONHandler(s.output, handlerOpts)
	case FormatText:
		handler = slog.NewTextHandler(s.output, handlerOpts)
	default:
		panic(fmt.Errorf("invalid log format %q: must be %q or %q", cfg.Format, FormatJSON, FormatText))
	}

	if len(s.attrs) > 0 {
		handler = handler.WithAttrs(s.attrs)
	}

	return slog.New(handler)
}
