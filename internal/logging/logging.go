package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a sugared zap logger
type Logger struct {
	*zap.SugaredLogger
}

// creates a console logger; verbose enables debug level
func NewLogger(verbose bool) *Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	cfg.DisableCaller = !verbose

	logger, err := cfg.Build()
	if err != nil {
		// fall back to a no-op logger rather than failing startup
		return &Logger{zap.NewNop().Sugar()}
	}

	return &Logger{logger.Sugar()}
}

// flushes buffered log entries
func (l *Logger) Close() error {
	return l.Sync()
}
