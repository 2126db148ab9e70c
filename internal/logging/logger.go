// Package logging builds the zap loggers used by hostmetrics.
// Logs go to stderr so stdout stays free for the optional summary table.
package logging

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a component logger.
type Category string

const (
	CategoryPipeline Category = "pipeline" // Stage transitions
	CategoryExtract  Category = "extract"  // File resolution, field merge
	CategoryReport   Category = "report"   // TSV output
)

// Options configures New.
type Options struct {
	Level   string // debug, info, warn, error
	Format  string // console, json
	Verbose bool   // forces debug
	// OutputPaths defaults to stderr.
	OutputPaths []string
}

// ParseLevel parses a level name. "warning" is accepted as "warn" and an
// empty name means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(name) {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	return zapcore.ParseLevel(strings.ToLower(name))
}

// New builds a logger tagged with a fresh run_id.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	// Every collision warning matters; sampling would drop repeats.
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(opts.Format) {
	case "", "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableCaller = true
	case "json":
		cfg.Encoding = "json"
	default:
		return nil, fmt.Errorf("invalid log format: %s", opts.Format)
	}

	cfg.OutputPaths = []string{"stderr"}
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.InitialFields = map[string]interface{}{
		"run_id": uuid.NewString(),
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Get returns the named child logger for a category. A nil parent yields a
// no-op logger.
func Get(parent *zap.Logger, category Category) *zap.Logger {
	if parent == nil {
		return zap.NewNop()
	}
	return parent.Named(string(category))
}
