package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/teatak/freqseg/config"
)

func TestNew_WritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg.log")
	l, err := New(config.LoggingConfig{Level: "warn", Format: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNew_BadOutput(t *testing.T) {
	_, err := New(config.LoggingConfig{OutputPaths: []string{"/nonexistent-dir/x/seg.log"}})
	assert.Error(t, err)
	assert.NotNil(t, Must(config.LoggingConfig{OutputPaths: []string{"/nonexistent-dir/x/seg.log"}}))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
