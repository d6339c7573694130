package hblog_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/bascanada/hblog/pkg/hblog"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger_DefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := hblog.NewLogger(hblog.LoggerOptions{Writer: &buf})

	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestNewLogger_VerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := hblog.NewLogger(hblog.LoggerOptions{Level: "WARN", Verbose: true, Writer: &buf})

	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := hblog.NewLogger(hblog.LoggerOptions{Level: "ERROR", Writer: &buf})

	logger.Warn("suppressed")
	logger.Error("kept")

	out := buf.String()
	assert.NotContains(t, out, "suppressed")
	assert.Contains(t, out, "kept")
	assert.True(t, logger.Enabled(nil, slog.LevelError))
}
