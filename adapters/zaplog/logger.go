// Package zaplog adapts a zap logger to relay.Logger.
package zaplog

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger implements relay.Logger on top of a zap.SugaredLogger.
type Logger struct {
	s *zap.SugaredLogger
}

// New wraps l. A nil l yields a no-op logger.
func New(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{s: l.Sugar()}
}

// NewProduction builds a JSON production logger at the given level
// ("debug", "info", "warn", "error").
func NewProduction(level string) (*Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return New(l), nil
}

// Debugf implements relay.Logger.
func (l *Logger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }

// Infof implements relay.Logger.
func (l *Logger) Infof(format string, args ...interface{}) { l.s.Infof(format, args...) }

// Warnf implements relay.Logger.
func (l *Logger) Warnf(format string, args ...interface{}) { l.s.Warnf(format, args...) }

// Errorf implements relay.Logger.
func (l *Logger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }

// Info implements relay.Logger.
func (l *Logger) Info(message string) { l.s.Info(message) }

// With returns a logger that adds key-value pairs to every entry.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{s: l.s.With(args...)}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.s.Sync()
}
