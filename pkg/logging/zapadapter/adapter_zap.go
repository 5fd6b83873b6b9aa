package zapadapter

import (
	"context"

	"github.com/lbryio/thumbnailer/pkg/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"logur.dev/logur"
)

// kvLogger adapts a zap logger to logging.KVLogger and the Logur interfaces.
type kvLogger struct {
	logger *zap.SugaredLogger
	core   zapcore.Core
}

// NewKV returns a KV logger writing into the supplied zap logger.
// A nil logger means the global one.
func NewKV(logger *zap.Logger) logging.KVLogger {
	if logger == nil {
		logger = zap.L()
	}
	return newKV(logger.WithOptions(zap.AddCallerSkip(1)))
}

func newKV(logger *zap.Logger) *kvLogger {
	return &kvLogger{
		logger: logger.Sugar(),
		core:   logger.Core(),
	}
}

// Trace falls back to Debug, zap has no trace level.
func (l *kvLogger) Trace(msg string, keyvals ...interface{}) {
	l.Debug(msg, keyvals...)
}

func (l *kvLogger) Debug(msg string, keyvals ...interface{}) {
	if !l.core.Enabled(zap.DebugLevel) {
		return
	}
	l.logger.Debugw(msg, keyvals...)
}

func (l *kvLogger) Info(msg string, keyvals ...interface{}) {
	if !l.core.Enabled(zap.InfoLevel) {
		return
	}
	l.logger.Infow(msg, keyvals...)
}

func (l *kvLogger) Warn(msg string, keyvals ...interface{}) {
	if !l.core.Enabled(zap.WarnLevel) {
		return
	}
	l.logger.Warnw(msg, keyvals...)
}

func (l *kvLogger) Error(msg string, keyvals ...interface{}) {
	if !l.core.Enabled(zap.ErrorLevel) {
		return
	}
	l.logger.Errorw(msg, keyvals...)
}

func (l *kvLogger) DebugContext(_ context.Context, msg string, keyvals ...interface{}) {
	l.Debug(msg, keyvals...)
}

func (l *kvLogger) InfoContext(_ context.Context, msg string, keyvals ...interface{}) {
	l.Info(msg, keyvals...)
}

func (l *kvLogger) WarnContext(_ context.Context, msg string, keyvals ...interface{}) {
	l.Warn(msg, keyvals...)
}

func (l *kvLogger) ErrorContext(_ context.Context, msg string, keyvals ...interface{}) {
	l.Error(msg, keyvals...)
}

// With keeps the caller skip of the parent, so it must not go through NewKV again.
func (l *kvLogger) With(keyvals ...interface{}) logging.KVLogger {
	return newKV(l.logger.With(keyvals...).Desugar())
}

// LevelEnabled implements the Logur LevelEnabler interface.
func (l *kvLogger) LevelEnabled(level logur.Level) bool {
	switch level {
	case logur.Trace, logur.Debug:
		return l.core.Enabled(zap.DebugLevel)
	case logur.Info:
		return l.core.Enabled(zap.InfoLevel)
	case logur.Warn:
		return l.core.Enabled(zap.WarnLevel)
	case logur.Error:
		return l.core.Enabled(zap.ErrorLevel)
	}
	return true
}
