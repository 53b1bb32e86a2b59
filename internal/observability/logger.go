// Package observability bundles the process-wide logging, metrics, and
// tracing plumbing shared by every component.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/CodePnut/script-flow-sub001/internal/config"
)

// NewLogger builds the process logger: JSON output in production, console
// output elsewhere, both honoring the configured level.
func NewLogger(env config.Environment, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == config.Production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(parsed)

	return cfg.Build()
}
