package logging

import (
	"context"
	"errors"
)

// MultiLogger fans every message out to several loggers.
type MultiLogger struct {
	loggers []Logger
}

func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Debug(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Debug(msg, fields...)
	}
}

func (m *MultiLogger) Info(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Info(msg, fields...)
	}
}

func (m *MultiLogger) Warn(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Warn(msg, fields...)
	}
}

func (m *MultiLogger) Error(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Error(msg, fields...)
	}
}

func (m *MultiLogger) WithTraceID(traceID string) Logger {
	traced := make([]Logger, len(m.loggers))
	for i, l := range m.loggers {
		traced[i] = l.WithTraceID(traceID)
	}
	return &MultiLogger{loggers: traced}
}

func (m *MultiLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return m
	}
	return m.WithTraceID(traceID)
}

func (m *MultiLogger) SetLevel(level LogLevel) {
	for _, l := range m.loggers {
		l.SetLevel(level)
	}
}

// Close closes every logger and joins their errors.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (*NoOpLogger) Debug(string, ...Field)               {}
func (*NoOpLogger) Info(string, ...Field)                {}
func (*NoOpLogger) Warn(string, ...Field)                {}
func (*NoOpLogger) Error(string, ...Field)               {}
func (n *NoOpLogger) WithTraceID(string) Logger          { return n }
func (n *NoOpLogger) WithContext(context.Context) Logger { return n }
func (*NoOpLogger) SetLevel(LogLevel)                    {}
func (*NoOpLogger) Close() error                         { return nil }

// OrNoOp returns l, or a no-op logger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NewNoOpLogger()
	}
	return l
}
