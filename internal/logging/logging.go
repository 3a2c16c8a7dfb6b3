// Package logging builds the service's zerolog logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"museum-stream-backend/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing to cfg.File, or to stderr when no file is set.
// fileOverride takes precedence over cfg.File. The returned closer releases
// the file sink.
func New(cfg config.LogConfig, fileOverride string) (zerolog.Logger, io.Closer, error) {
	path := cfg.File
	if fileOverride != "" {
		path = fileOverride
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		out, closer = f, f
	}

	return build(cfg, out), closer, nil
}

func build(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "kioskd").Logger()
}
