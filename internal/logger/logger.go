// Package logger provides the structured logger threaded through request
// contexts. It is backed by zap's SugaredLogger.
package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type key int

const loggerKey key = iota

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok && l != nil {
		return l
	}
	return NewNoOpLogger()
}

// Config selects the level and encoding.
type Config struct {
	Level        zapcore.Level
	IsProduction bool
}

// Logger takes a message followed by alternating key/value fields.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	DPanic(msg string, fields ...interface{})
	Panic(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
	Close()
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger writing JSON in production and coloured console
// output otherwise.
func New(cfg Config) (Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(cfg.Level)

	z, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return Wrap(z), nil
}

// Wrap adapts an existing zap logger, e.g. one from zaptest.
func Wrap(z *zap.Logger) Logger {
	return &zapLogger{sugar: z.Sugar()}
}

func (l *zapLogger) Debug(msg string, fields ...interface{})  { l.sugar.Debugw(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...interface{})   { l.sugar.Infow(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...interface{})   { l.sugar.Warnw(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...interface{})  { l.sugar.Errorw(msg, fields...) }
func (l *zapLogger) DPanic(msg string, fields ...interface{}) { l.sugar.DPanicw(msg, fields...) }
func (l *zapLogger) Panic(msg string, fields ...interface{})  { l.sugar.Panicw(msg, fields...) }
func (l *zapLogger) Fatal(msg string, fields ...interface{})  { l.sugar.Fatalw(msg, fields...) }

func (l *zapLogger) With(fields ...interface{}) Logger {
	return &zapLogger{sugar: l.sugar.With(fields...)}
}

// Close flushes buffered entries. Sync errors on stdout/stderr are ignored.
func (l *zapLogger) Close() {
	_ = l.sugar.Sync()
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return zapcore.WarnLevel
	case "":
		return zapcore.InfoLevel
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

type noOpLogger struct{}

func (n *noOpLogger) Debug(msg string, fields ...interface{})  {}
func (n *noOpLogger) Info(msg string, fields ...interface{})   {}
func (n *noOpLogger) Warn(msg string, fields ...interface{})   {}
func (n *noOpLogger) Error(msg string, fields ...interface{})  {}
func (n *noOpLogger) DPanic(msg string, fields ...interface{}) {}
func (n *noOpLogger) Panic(msg string, fields ...interface{})  {}
func (n *noOpLogger) Fatal(msg string, fields ...interface{})  {}

func (n *noOpLogger) With(fields ...interface{}) Logger {
	return n
}
func (n *noOpLogger) Close() {}

// NewNoOpLogger returns a Logger that discards everything.
func NewNoOpLogger() Logger {
	return &noOpLogger{}
}
