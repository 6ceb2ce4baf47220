// Package atlaslog is a thin structured-logging wrapper. The teacher's own
// Logger type is a bespoke UART+console sink tied to its TinyGo board, which
// doesn't carry over to a Linux service, so this wraps zap instead (used
// throughout the rest of the retrieval pack for structured logging).
package atlaslog

import "go.uber.org/zap"

type Logger struct {
	z *zap.SugaredLogger
}

// New builds a production-configured logger.
func New() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z.Sugar()}, nil
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop().Sugar()}
}

// With returns a child logger carrying the given key/value pairs on every
// subsequent call.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{z: l.z.With(args...)}
}

func (l *Logger) Debugw(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l *Logger) Infow(msg string, kv ...interface{})  { l.z.Infow(msg, kv...) }
func (l *Logger) Warnw(msg string, kv ...interface{})  { l.z.Warnw(msg, kv...) }
func (l *Logger) Errorw(msg string, kv ...interface{}) { l.z.Errorw(msg, kv...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.z.Sync() }
