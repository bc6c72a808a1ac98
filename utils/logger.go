package utils

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides leveled, printf-style logging throughout the application.
// Messages carry a "[component]" prefix by convention.
type Logger struct {
	base  *zap.Logger
	sugar *zap.SugaredLogger
}

// NewLogger creates a Logger writing colored, human-readable lines to stdout
// and errors to stderr.
func NewLogger() *Logger {
	l, err := NewLoggerWithLevel(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: falling back to no-op logger: %v\n", err)
		return NewNopLogger()
	}
	return l
}

// NewLoggerWithLevel creates a Logger; debug enables Debug output.
func NewLoggerWithLevel(debug bool) (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	base, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}
	return &Logger{base: base, sugar: base.Sugar()}, nil
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() *Logger {
	base := zap.NewNop()
	return &Logger{base: base, sugar: base.Sugar()}
}

// FromZap wraps an existing zap logger.
func FromZap(base *zap.Logger) *Logger {
	return &Logger{base: base, sugar: base.Sugar()}
}

func (l *Logger) Info(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

// Zap exposes the underlying structured logger.
func (l *Logger) Zap() *zap.Logger { return l.base }

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.base.Sync() }
