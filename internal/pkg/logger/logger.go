package logger

import (
	"log"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging messages.
type Logger interface {
	Error(msg string, err error)
	Warn(msg string)
	Info(msg string)
	Debug(msg string)
	// With returns a child logger that adds key/value pairs to every entry.
	With(keysAndValues ...any) Logger
	// StdLog exposes the logger as a *log.Logger for libraries that need one.
	StdLog() *log.Logger
}

type zapLogger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

var (
	loggerInstance *zapLogger
	once           sync.Once
)

// New creates the process-wide logger. env "dev" selects a console encoder,
// anything else JSON. level is one of debug, info, warn, error.
func New(env, level string) Logger {
	once.Do(func() {
		loggerInstance = build(env, level)
	})
	return loggerInstance
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return wrap(zap.NewNop())
}

func build(env, level string) *zapLogger {
	cfg := zap.NewProductionConfig()
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		log.Printf("failed to build zap logger, falling back to example logger: %v", err)
		zl = zap.NewExample()
	}
	return wrap(zl)
}

func wrap(zl *zap.Logger) *zapLogger {
	return &zapLogger{logger: zl, sugar: zl.Sugar()}
}

// Error logs an error message with the error attached.
func (l *zapLogger) Error(msg string, err error) {
	if err == nil {
		l.logger.Error(msg)
		return
	}
	l.logger.Error(msg, zap.Error(err))
}

func (l *zapLogger) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *zapLogger) Info(msg string) {
	l.logger.Info(msg)
}

func (l *zapLogger) Debug(msg string) {
	l.logger.Debug(msg)
}

func (l *zapLogger) With(keysAndValues ...any) Logger {
	return wrap(l.sugar.With(keysAndValues...).Desugar())
}

func (l *zapLogger) StdLog() *log.Logger {
	return zap.NewStdLog(l.logger.WithOptions(zap.AddCallerSkip(-1)))
}

// Sync flushes buffered entries.
func Sync(l Logger) {
	if zl, ok := l.(*zapLogger); ok {
		_ = zl.logger.Sync()
	}
}
