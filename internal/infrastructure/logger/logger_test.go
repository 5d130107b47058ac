package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		l, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("writes json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "larder.log")
		l, err := New(&Config{Level: "debug", Format: "json", Output: path})
		require.NoError(t, err)

		l.Info("stock received", zap.String("sku", "FLOUR-25"))
		require.NoError(t, l.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"stock received"`)
		assert.Contains(t, string(data), `"sku":"FLOUR-25"`)
	})

	t.Run("unwritable file is an error", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
		assert.Error(t, err)
	})

	t.Run("extra cores receive entries", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		l, err := New(&Config{Level: "error", Format: "json", Output: "stderr"}, core)
		require.NoError(t, err)

		l.Info("clamped decrease")
		assert.Equal(t, 1, recorded.FilterMessage("clamped decrease").Len())
	})
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		t.Run(env, func(t *testing.T) {
			l, err := NewForEnvironment(env)
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}
