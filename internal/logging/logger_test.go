package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{level: "debug", format: "json", enabled: zapcore.DebugLevel, muted: zapcore.DebugLevel - 1},
		{level: "", format: "", enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
		{level: "WARNING", format: "console", enabled: zapcore.WarnLevel, muted: zapcore.InfoLevel},
		{level: "bogus", format: "json", enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
	}
	for _, tt := range tests {
		logger, err := NewLogger(tt.level, tt.format)
		if err != nil {
			t.Fatalf("NewLogger(%q, %q) failed: %v", tt.level, tt.format, err)
		}
		if !logger.Core().Enabled(tt.enabled) {
			t.Fatalf("NewLogger(%q): expected %s to be enabled", tt.level, tt.enabled)
		}
		if logger.Core().Enabled(tt.muted) {
			t.Fatalf("NewLogger(%q): expected %s to be muted", tt.level, tt.muted)
		}
	}
}

func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	if _, err := NewLogger("info", "xml"); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
}
