package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"logur.dev/logur"
)

var (
	Prod = zap.NewProductionConfig()
	Dev  = zap.NewDevelopmentConfig()
)

func init() {
	Prod.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zap.ReplaceGlobals(Create("", Dev).Desugar())
}

// Create builds a named sugared logger from one of the preset configs.
func Create(name string, cfg zap.Config) *zap.SugaredLogger {
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	return l.Named(name).Sugar()
}

// Config returns Dev when debug is set and Prod otherwise.
func Config(debug bool) zap.Config {
	if debug {
		return Dev
	}
	return Prod
}

type KVLogger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	With(keyvals ...interface{}) KVLogger
}

type NoopKVLogger struct {
	logur.NoopKVLogger
}

func (l NoopKVLogger) With(keyvals ...interface{}) KVLogger {
	return l
}

// WithFile tags a logger with the media file a request is about.
func WithFile(l KVLogger, path string) KVLogger {
	return l.With("file", path)
}
