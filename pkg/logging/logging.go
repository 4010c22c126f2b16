// Package logging builds the zap loggers used by the designer binaries.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger flavour.
type Config struct {
	// Environment "production" yields JSON output; anything else the console
	// development encoder.
	Environment string
	Level       string
}

// New builds a logger with caller and function names enabled.
func New(cfg Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if strings.EqualFold(cfg.Environment, "production") {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.EncoderConfig.FunctionKey = "func"

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapConfig.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}

// Named returns a child logger for a component, or a no-op logger when base
// is nil.
func Named(base *zap.Logger, component string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(component)
}
