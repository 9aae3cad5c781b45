// Package logging wraps zap behind a small interface so the rest of the
// module never imports zap directly.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a single structured logging key/value pair.
type Field struct {
	Key string
	Val any
}

// F is a short constructor for Field, used at call sites.
func F(key string, val any) Field {
	return Field{Key: key, Val: val}
}

// Logger is the structured logger used across Store, Worker, Supervisor and
// cmd. Keeping it as an interface (rather than importing *zap.Logger
// everywhere) means tests can swap in a no-op implementation.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type zapLogger struct {
	z *zap.Logger
}

// New builds a production-style console logger writing to stderr, so stdout
// stays free for `--json` output.
func New(verbose bool) Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), level)
	return &zapLogger{z: zap.New(core)}
}

// Nop returns a logger that discards everything, for tests.
func Nop() Logger {
	return &zapLogger{z: zap.NewNop()}
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Val))
	}
	return out
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, toZapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, toZapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, toZapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, toZapFields(fields)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(toZapFields(fields)...)}
}
