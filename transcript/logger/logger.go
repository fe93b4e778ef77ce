// Package logger builds the zap loggers used by the commands. Logs go to stderr so result
// lines on stdout stay machine readable.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger for mode: "dev" (console, the default), "prod" (JSON) or "off".
// level is a zap level name; empty means info.
func New(mode, level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
			return nil, fmt.Errorf("logger.New: level %q: %w", level, err)
		}
	}

	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "off", "none", "quiet":
		return zap.NewNop(), nil
	case "prod", "production", "json":
		cfg = zap.NewProductionConfig()
	case "", "dev", "development", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("logger.New: unknown mode %q", mode)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
