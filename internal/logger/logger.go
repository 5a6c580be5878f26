package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/rs/zerolog"
)

// New builds the process logger. An unknown level falls back to info.
func New(cfg config.Log, service string) zerolog.Logger {
	return newWithWriter(cfg, service, os.Stderr)
}

func newWithWriter(cfg config.Log, service string, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
