package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name string
		c    Config
		want zapcore.Level
	}{
		{name: "production", c: Config{}, want: zapcore.InfoLevel},
		{name: "debug", c: Config{Debug: true}, want: zapcore.DebugLevel},
		{name: "override", c: Config{Debug: true, Level: "warn"}, want: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.c)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if got := l.Level(); got != tt.want {
				t.Errorf("Level() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := NewLogger(Config{Level: "loud"}); err == nil {
		t.Errorf("expected an error for a bad level")
	}
}
