package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog-panel/hedgehog/internal/config"
)

func TestNew(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	require.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	_, err = New(config.LoggingConfig{Level: "loud"})
	require.Error(t, err)

	_, err = New(config.LoggingConfig{Level: "info", Output: "/var/log/x"})
	require.Error(t, err)
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "json", time.RFC3339)
	logger.Info().Str("service", "test").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["message"])
	require.Equal(t, "test", entry["service"])
	require.Contains(t, entry, "time")
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "console", time.Kitchen)
	logger.Info().Msg("hello")

	require.Contains(t, buf.String(), "hello")
	require.False(t, json.Valid(buf.Bytes()))
}
