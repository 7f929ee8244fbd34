// Package observability owns the process-wide CLI logger.
package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// CLILogger is used for CLI commands. It writes to stderr so stdout only
	// carries scan results.
	CLILogger = zap.NewNop()

	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// InitCLILogger initializes the CLI logger on stderr. verbose lowers the level to debug.
func InitCLILogger(serviceName string, verbose bool) {
	logger := NewLogger(os.Stderr, serviceName)
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}
	CLILogger = logger
}

// NewLogger builds a console logger writing to w that shares the global level.
func NewLogger(w io.Writer, serviceName string) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	)

	logger := zap.New(core, zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	if serviceName != "" {
		logger = logger.Named(serviceName)
	}
	return logger
}

// SetLevel applies a configured level name (debug, info, warn, error).
// It never raises the level above debug once verbose logging was requested.
func SetLevel(name string) error {
	parsed, err := zapcore.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	if level.Level() == zapcore.DebugLevel && parsed > zapcore.DebugLevel {
		return nil
	}
	level.SetLevel(parsed)
	return nil
}

// Level returns the current minimum level.
func Level() zapcore.Level {
	return level.Level()
}
