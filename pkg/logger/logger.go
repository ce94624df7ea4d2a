// Package logger wraps a zap SugaredLogger behind the printf-style
// Info/Warn/Error calls used across the services.
package logger

import (
	"errors"
	"os"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	base *zap.SugaredLogger
}

// New returns an info level logger.
func New() *Logger {
	l, err := NewWithLevel("info")
	if err != nil {
		// "info" always parses
		panic(err)
	}
	return l
}

func NewWithLevel(level string) (*Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig = encoderConfig()

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return wrap(zl.Sugar()), nil
}

// NewNop discards everything. Used by tests.
func NewNop() *Logger {
	return wrap(zap.NewNop().Sugar())
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return enc
}

func wrap(s *zap.SugaredLogger) *Logger {
	return &Logger{base: s}
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.base.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.base.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.base.Errorf(format, args...)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return wrap(l.base.With(keysAndValues...))
}

// Sync flushes buffered entries. Syncing a terminal stdout/stderr fails on
// some platforms and is ignored.
func (l *Logger) Sync() error {
	err := l.base.Sync()
	if err != nil && !errors.Is(err, os.ErrInvalid) && !errors.Is(err, syscall.ENOTTY) && !errors.Is(err, syscall.EINVAL) {
		return err
	}
	return nil
}
