package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin wrapper around zap that takes loosely typed field maps,
// which keeps call sites short in the collector and provider code.
type Logger struct {
	appName string
	l       *zap.Logger
}

// New builds a JSON logger writing to the given writers (stdout if none).
func New(appName string, writers ...io.Writer) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.TimeKey = "timestamp"

	var syncers []zapcore.WriteSyncer
	if len(writers) == 0 {
		syncers = append(syncers, os.Stdout)
	} else {
		for _, w := range writers {
			syncers = append(syncers, zapcore.AddSync(w))
		}
	}

	level := zapcore.InfoLevel
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg),
		zapcore.NewMultiWriteSyncer(syncers...),
		level,
	)

	return &Logger{
		appName: appName,
		l:       zap.New(core),
	}
}

// Stop flushes buffered log entries.
func (l *Logger) Stop() error {
	return l.l.Sync()
}

func (l *Logger) Debug(msg string, fields ...map[string]any) {
	l.l.Debug(msg, l.zapFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...map[string]any) {
	l.l.Info(msg, l.zapFields(fields)...)
}

func (l *Logger) Warning(msg string, fields ...map[string]any) {
	l.l.Warn(msg, l.zapFields(fields)...)
}

func (l *Logger) Error(err error, fields ...map[string]any) {
	l.l.Error(err.Error(), l.zapFields(fields)...)
}

func (l *Logger) Fatal(msg string, fields ...map[string]any) {
	l.l.Fatal(msg, l.zapFields(fields)...)
}

func (l *Logger) zapFields(fields []map[string]any) []zap.Field {
	zf := make([]zap.Field, 0, 8)
	zf = append(zf, zap.String("app_name", l.appName))
	for _, m := range fields {
		for k, v := range m {
			zf = append(zf, zap.Any(k, v))
		}
	}
	return zf
}
