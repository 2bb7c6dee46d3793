package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"development default", "development", "", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"production default", "production", "", zapcore.InfoLevel, zapcore.DebugLevel},
		{"level override", "production", "warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"unknown level keeps default", "production", "loud", zapcore.InfoLevel, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core := build(tt.env, tt.level).Core()
			if !core.Enabled(tt.enabled) {
				t.Errorf("expected %s to be enabled", tt.enabled)
			}
			if core.Enabled(tt.muted) {
				t.Errorf("expected %s to be muted", tt.muted)
			}
		})
	}
}

func TestBuildTestEnvDiscards(t *testing.T) {
	if build("test", "debug").Core().Enabled(zapcore.FatalLevel) {
		t.Error("expected the test logger to discard every level")
	}
}

func TestGetInitializes(t *testing.T) {
	if Get() == nil {
		t.Fatal("expected a logger")
	}
}
