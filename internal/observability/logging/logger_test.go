package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Defaults(t *testing.T) {
	logger := NewLogger()
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(nil, slog.LevelInfo))
	assert.False(t, logger.Enabled(nil, slog.LevelDebug))
}

func TestNewLogger_LevelFromEnv(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		debugEnabled  bool
		warnOnlyAbove bool
	}{
		{"debug enables debug", "debug", true, false},
		{"warn disables info", "warn", false, true},
		{"unknown falls back to info", "verbose", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.level)
			logger := NewLogger()
			assert.Equal(t, tt.debugEnabled, logger.Enabled(nil, slog.LevelDebug))
			if tt.warnOnlyAbove {
				assert.False(t, logger.Enabled(nil, slog.LevelInfo))
				assert.True(t, logger.Enabled(nil, slog.LevelWarn))
			}
		})
	}
}

func TestCritical(t *testing.T) {
	attr := Critical()
	assert.Equal(t, "critical", attr.Key)
	assert.Equal(t, true, attr.Value.Bool())
}
