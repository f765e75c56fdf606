package utils

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestNewLogger_WritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "exam.log")

	logger := NewLogger(LoggerOptions{Level: "info", File: file, MaxSizeMB: 1})
	logger.Info("attempt finalized", "attempt_id", "a-1")

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"attempt_id":"a-1"`)
}

func TestGetLoggerFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fallback := NewSlogLogger(NewDiscardLogger())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Same(t, fallback, GetLoggerFromContext(c, fallback))

	scoped := fallback.With("request_id", "r-1")
	c.Set("logger", scoped)
	assert.Same(t, scoped, GetLoggerFromContext(c, fallback))
}
