// Package logger contains the structured logging abstraction used by every
// component of the subscriber host.
//
// Components accept a Logger value that might be nil: in that case, the
// component does not log anything.
package logger

// Field represents a structured field to be added to a Log entry.
type Field struct {
	Key   string
	Value interface{}
}

// With is an helper function to add a field in a functional way.
func With(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is a structured logger capable of printing information about
// the execution of a component at various levels.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Debug delegates the debug log call to the provided logger, if not nil.
func Debug(l Logger, msg string, fields ...Field) {
	if l != nil {
		l.Debug(msg, fields...)
	}
}

// Info delegates the info log call to the provided logger, if not nil.
func Info(l Logger, msg string, fields ...Field) {
	if l != nil {
		l.Info(msg, fields...)
	}
}

// Warn delegates the warning log call to the provided logger, if not nil.
func Warn(l Logger, msg string, fields ...Field) {
	if l != nil {
		l.Warn(msg, fields...)
	}
}

// Error delegates the error log call to the provided logger, if not nil.
func Error(l Logger, msg string, fields ...Field) {
	if l != nil {
		l.Error(msg, fields...)
	}
}

type scoped struct {
	logger Logger
	fields []Field
}

func (s scoped) with(fields []Field) []Field {
	return append(append(make([]Field, 0, len(s.fields)+len(fields)), s.fields...), fields...)
}

func (s scoped) Debug(msg string, fields ...Field) { s.logger.Debug(msg, s.with(fields)...) }
func (s scoped) Info(msg string, fields ...Field) { s.logger.Info(msg, s.with(fields)...) }
func (s scoped) Warn(msg string, fields ...Field) { s.logger.Warn(msg, s.with(fields)...) }
func (s scoped) Error(msg string, fields ...Field) { s.logger.Error(msg, s.with(fields)...) }

// Scoped returns a Logger that adds the specified fields to every entry
// logged through it, before the entry's own fields.
//
// Scoping a nil Logger returns nil.
func Scoped(l Logger, fields ...Field) Logger {
	if l == nil {
		return nil
	}

	if s, ok := l.(scoped); ok {
		return scoped{logger: s.logger, fields: s.with(fields)}
	}

	return scoped{logger: l, fields: fields}
}
