package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger_FormatSelection(t *testing.T) {
	cfg := &Config{LogLevel: "info", LogFormat: "json"}
	var buf bytes.Buffer
	newLogger(cfg, &buf).Info("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "json format should emit JSON records, got %q", buf.String())

	cfg.LogFormat = "text"
	buf.Reset()
	newLogger(cfg, &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	cfg := &Config{LogLevel: "error", LogFormat: "text"}
	var buf bytes.Buffer
	logger := newLogger(cfg, &buf)

	logger.Debug("quiet")
	logger.Info("quiet")
	logger.Warn("quiet")
	assert.Empty(t, buf.String())
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))

	logger.Error("loud")
	assert.Contains(t, buf.String(), "msg=loud")
}
