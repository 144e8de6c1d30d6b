// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskops/internal/config"
)

// -- Test Helper Functions --

// captureOutput redirects stdout into a buffer for the duration of a test.
// The returned cleanup must be called (it is idempotent, so deferring it too
// is safe) before reading the buffer: it closes the write end, waits for the
// reader to drain the pipe, and restores the original stdout.
func captureOutput(t *testing.T) (*bytes.Buffer, func()) {
	t.Helper()
	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = buf.ReadFrom(r)
	}()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			w.Close()
			<-done
			os.Stdout = originalStdout
		})
	}
	return &buf, cleanup
}

// resetGlobalLogger restores the singleton between tests.
func resetGlobalLogger() {
	once = sync.Once{}
	globalLogger.Store(nil)
}

// -- Test Cases --

func TestInitializeLogger(t *testing.T) {

	t.Run("console format colorizes the level", func(t *testing.T) {
		resetGlobalLogger()
		buf, cleanup := captureOutput(t)
		defer cleanup()

		InitializeLogger(config.LoggingConfig{Level: "debug", Format: "console"})
		GetLogger().Info("This is a test message.")
		Sync()
		cleanup()

		output := buf.String()
		assert.Contains(t, output, "INFO", "output should contain the log level")
		assert.Contains(t, output, "This is a test message.")
		assert.Contains(t, output, colorGreen, "info level should be colorized green")
		assert.Contains(t, output, colorReset)
	})

	t.Run("json format emits structured entries", func(t *testing.T) {
		resetGlobalLogger()
		buf, cleanup := captureOutput(t)
		defer cleanup()

		InitializeLogger(config.LoggingConfig{Level: "info", Format: "json"})
		GetLogger().Warn("structured message", zap.String("key", "value"))
		Sync()
		cleanup()

		var logEntry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry), "log output should be valid JSON")

		assert.Equal(t, "warn", logEntry["level"])
		assert.Equal(t, "deskops", logEntry["logger"])
		assert.Equal(t, "structured message", logEntry["msg"])
		assert.Equal(t, "value", logEntry["key"])
	})

	t.Run("file sink receives entries when enabled", func(t *testing.T) {
		resetGlobalLogger()
		tmpFile, err := os.CreateTemp(t.TempDir(), "logger-test-*.log")
		require.NoError(t, err)
		require.NoError(t, tmpFile.Close())

		InitializeLogger(config.LoggingConfig{
			Level:  "debug",
			Format: "json",
			File: config.LogFileConfig{
				Enabled:   true,
				Path:      tmpFile.Name(),
				MaxSizeMB: 1,
			},
		})
		GetLogger().Error("This should go to the file.")
		Sync()

		content, err := os.ReadFile(tmpFile.Name())
		require.NoError(t, err)
		assert.Contains(t, string(content), "This should go to the file.")
	})

	t.Run("initialization happens exactly once", func(t *testing.T) {
		resetGlobalLogger()
		buf, cleanup := captureOutput(t)
		defer cleanup()

		InitializeLogger(config.LoggingConfig{Level: "info", Format: "console"})
		first := GetLogger()

		// A second call with a more verbose level must be ignored.
		InitializeLogger(config.LoggingConfig{Level: "debug", Format: "console"})
		second := GetLogger()

		assert.Equal(t, first, second)
		second.Debug("suppressed debug line")
		second.Info("visible info line")
		Sync()
		cleanup()

		assert.False(t, strings.Contains(buf.String(), "suppressed debug line"))
		assert.True(t, strings.Contains(buf.String(), "visible info line"))
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("returns a fallback logger before initialization", func(t *testing.T) {
		resetGlobalLogger()
		logger := GetLogger()
		require.NotNil(t, logger)
	})

	t.Run("returns the stored instance after initialization", func(t *testing.T) {
		resetGlobalLogger()
		InitializeLogger(config.LoggingConfig{Level: "info", Format: "json"})

		logger := GetLogger()
		assert.Equal(t, globalLogger.Load(), logger)
	})
}
