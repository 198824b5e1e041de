package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestFileOutput(t *testing.T) {
	old := Log
	defer func() {
		Log = old
		Sugar = old.Sugar()
	}()

	path := filepath.Join(t.TempDir(), "fbxdoc.log")
	require.NoError(t, InitWithFileConfig("debug", DefaultFileConfig(path), false))

	Debug("skipped link", zap.Uint32("parent_id", 42))
	Named("convert").Info("done")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `"parent_id":42`), out)
	assert.True(t, strings.Contains(out, `"logger":"convert"`), out)
}
