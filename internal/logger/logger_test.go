package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"esports-predictor/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LogConfig
		want zapcore.Level
	}{
		{"debug console", config.LogConfig{Level: "DEBUG", Encoding: "console"}, zapcore.DebugLevel},
		{"warn json", config.LogConfig{Level: "warn", Encoding: "json", Sampling: true}, zapcore.WarnLevel},
		{"unknown level", config.LogConfig{Level: "loud"}, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if !l.Core().Enabled(tt.want) {
				t.Errorf("level %s not enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
				t.Errorf("level %s enabled below %s", tt.want-1, tt.want)
			}
		})
	}
}
