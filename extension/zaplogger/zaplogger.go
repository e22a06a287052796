// Package zaplogger adapts a zap.Logger to the logger.Logger interface.
package zaplogger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/get-eventually/go-eventstore-http/logger"
)

var _ logger.Logger = &Logger{}

// Logger is a zap wrapper that implements the logger.Logger interface.
type Logger zap.Logger

func adaptFields(fields []logger.Field) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields))

	for _, field := range fields {
		if err, ok := field.Value.(error); ok {
			zapFields = append(zapFields, zap.NamedError(field.Key, err))
			continue
		}

		zapFields = append(zapFields, zap.Any(field.Key, field.Value))
	}

	return zapFields
}

// Debug prints a debug log message.
func (l *Logger) Debug(msg string, fields ...logger.Field) {
	(*zap.Logger)(l).Debug(msg, adaptFields(fields)...)
}

// Info prints an info log message.
func (l *Logger) Info(msg string, fields ...logger.Field) {
	(*zap.Logger)(l).Info(msg, adaptFields(fields)...)
}

// Warn prints a warning log message.
func (l *Logger) Warn(msg string, fields ...logger.Field) {
	(*zap.Logger)(l).Warn(msg, adaptFields(fields)...)
}

// Error prints an error log message.
func (l *Logger) Error(msg string, fields ...logger.Field) {
	(*zap.Logger)(l).Error(msg, adaptFields(fields)...)
}

// Wrap wraps a zap.Logger into a zaplogger.Logger instance.
func Wrap(l *zap.Logger) *Logger {
	return (*Logger)(l)
}

// New builds a new zap.Logger, using the development configuration
// (human-readable, debug level) or the production one (JSON, info level),
// and wraps it into a zaplogger.Logger instance.
func New(development bool) (*Logger, error) {
	build := zap.NewProduction
	if development {
		build = zap.NewDevelopment
	}

	l, err := build()
	if err != nil {
		return nil, fmt.Errorf("zaplogger.New: failed to build logger, %w", err)
	}

	return Wrap(l), nil
}

// Zap returns the wrapped zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return (*zap.Logger)(l)
}

// Sync flushes any buffered log entry.
func (l *Logger) Sync() error {
	return (*zap.Logger)(l).Sync()
}
