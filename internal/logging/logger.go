// Package logging builds the structured logger shared by the CLI and
// pipeline.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger adapts *zap.SugaredLogger to the small surface pipeline.Logger
// expects, so internal packages never import zap directly.
type Logger struct {
	sugar *zap.SugaredLogger
}

func (l *Logger) Info(msg string, fields ...any)  { l.sugar.Infow(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...any)  { l.sugar.Warnw(msg, fields...) }
func (l *Logger) Error(msg string, fields ...any) { l.sugar.Errorw(msg, fields...) }

// Sync flushes buffered log entries; call before process exit.
func (l *Logger) Sync() error { return l.sugar.Sync() }

// New builds a Logger writing human-readable console output at Info (or
// Debug under verbose) level, plus, when logFile is non-empty, a rotating
// JSON file sink.
func New(verbose bool, logFile string) *Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	consoleEncoder := zap.NewDevelopmentEncoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoder), zapcore.Lock(zapcore.AddSync(zapDefaultSink())), level),
	}

	if logFile != "" {
		rotate := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		jsonEncoder := zap.NewProductionEncoderConfig()
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoder), zapcore.AddSync(rotate), level))
	}

	core := zapcore.NewTee(cores...)
	logger := zap.New(core)
	return &Logger{sugar: logger.Sugar()}
}
