// Package logging provides the structured logger shared by every package.
package logging

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides a structured logging interface for the application.
type Logger interface {
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Debug(msg string, fields ...any)
	With(fields ...any) Logger
	Sync() error
}

// zapLogger wraps a zap SugaredLogger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLoggerTo creates a logger writing to w.
// format is "json" (default) or "console".
func NewLoggerTo(w io.Writer, level, format string) Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(format, "console") {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), parseLevel(level))
	return &zapLogger{sugar: zap.New(core).Sugar()}
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) Info(msg string, fields ...any) {
	l.sugar.Infow(msg, fields...)
}

func (l *zapLogger) Warn(msg string, fields ...any) {
	l.sugar.Warnw(msg, fields...)
}

func (l *zapLogger) Error(msg string, fields ...any) {
	l.sugar.Errorw(msg, fields...)
}

func (l *zapLogger) Debug(msg string, fields ...any) {
	l.sugar.Debugw(msg, fields...)
}

func (l *zapLogger) With(fields ...any) Logger {
	return &zapLogger{sugar: l.sugar.With(fields...)}
}

func (l *zapLogger) Sync() error {
	return l.sugar.Sync()
}
