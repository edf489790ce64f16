package logging

import (
	"fmt"

	"go.uber.org/zap"
)

type Config struct {
	// Human readable output, debug level and stack traces on warnings
	Debug bool
	// Overrides the level picked by Debug, e.g. "warn"
	Level string
}

// NewLogger provides a new logger based on the environment type
func NewLogger(c Config) (*zap.SugaredLogger, error) {
	zc := zap.NewProductionConfig()
	if c.Debug {
		zc = zap.NewDevelopmentConfig()
	}

	if c.Level != "" {
		lvl, err := zap.ParseAtomicLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("error parsing log level: %w", err)
		}
		zc.Level = lvl
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("error building logger: %w", err)
	}

	return l.Sugar(), nil
}
