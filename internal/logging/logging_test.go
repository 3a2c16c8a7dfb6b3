package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museum-stream-backend/config"
)

func TestBuild_Level(t *testing.T) {
	testCases := []struct {
		name        string
		level       string
		expectDebug bool
		expectInfo  bool
	}{
		{name: "Debug shows everything", level: "debug", expectDebug: true, expectInfo: true},
		{name: "Warn hides info", level: "warn"},
		{name: "Unknown falls back to info", level: "loud", expectInfo: true},
		{name: "Empty falls back to info", level: "", expectInfo: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := build(config.LogConfig{Level: tc.level, Format: "json"}, &buf)

			log.Debug().Msg("debug line")
			log.Info().Msg("info line")

			assert.Equal(t, tc.expectDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			assert.Equal(t, tc.expectInfo, bytes.Contains(buf.Bytes(), []byte("info line")))
		})
	}
}

func TestBuild_Format(t *testing.T) {
	var jsonBuf, consoleBuf bytes.Buffer

	jsonLog := build(config.LogConfig{Level: "info", Format: "json"}, &jsonBuf)
	jsonLog.Info().Str("reason", "missing_field").Msg("message dropped")
	consoleLog := build(config.LogConfig{Level: "info", Format: "console"}, &consoleBuf)
	consoleLog.Info().Str("reason", "missing_field").Msg("message dropped")

	assert.Contains(t, jsonBuf.String(), `"reason":"missing_field"`)
	assert.Contains(t, jsonBuf.String(), `"service":"kioskd"`)
	assert.Contains(t, consoleBuf.String(), "reason=missing_field")
	assert.NotContains(t, consoleBuf.String(), "{")
}

func TestNew_FileOverride(t *testing.T) {
	dir := t.TempDir()
	configured := filepath.Join(dir, "configured.log")
	override := filepath.Join(dir, "override.log")

	log, closer, err := New(config.LogConfig{Level: "info", Format: "json", File: configured}, override)
	require.NoError(t, err)
	log.Info().Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(override)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")

	_, err = os.Stat(configured)
	assert.True(t, os.IsNotExist(err))
}

func TestNew_BadPath(t *testing.T) {
	_, _, err := New(config.LogConfig{}, filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}
