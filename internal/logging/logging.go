// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/config"
)

// New creates a zerolog logger for the given settings.
func New(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log output %q", cfg.Output)
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	return newWithWriter(out, cfg.Format, timeFormat).Level(level), nil
}

func newWithWriter(out io.Writer, format, timeFormat string) zerolog.Logger {
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	} else {
		zerolog.TimeFieldFormat = timeFormat
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
