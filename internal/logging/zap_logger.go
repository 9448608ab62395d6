package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger writes structured JSON lines to stderr through zap.
type ZapLogger struct {
	base   *zap.Logger
	level  zap.AtomicLevel
	redact bool
}

type ZapLoggerConfig struct {
	Level           LogLevel
	RedactSensitive bool
	// Sink overrides stderr, mainly for tests.
	Sink zapcore.WriteSyncer
}

func NewZapLogger(config ZapLoggerConfig) (*ZapLogger, error) {
	level := zap.NewAtomicLevelAt(toZapLevel(config.Level))
	sink := config.Sink
	if sink == nil {
		sink = zapcore.Lock(os.Stderr)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), sink, level)
	return &ZapLogger{
		base:   zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)),
		level:  level,
		redact: config.RedactSensitive,
	}, nil
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) fields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if str, ok := f.Value.(string); ok && l.redact {
			out = append(out, zap.String(f.Key, RedactSensitiveData(str)))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func (l *ZapLogger) message(msg string) string {
	if l.redact {
		return RedactSensitiveData(msg)
	}
	return msg
}

func (l *ZapLogger) Debug(msg string, fields ...Field) { l.base.Debug(l.message(msg), l.fields(fields)...) }
func (l *ZapLogger) Info(msg string, fields ...Field)  { l.base.Info(l.message(msg), l.fields(fields)...) }
func (l *ZapLogger) Warn(msg string, fields ...Field)  { l.base.Warn(l.message(msg), l.fields(fields)...) }
func (l *ZapLogger) Error(msg string, fields ...Field) { l.base.Error(l.message(msg), l.fields(fields)...) }

func (l *ZapLogger) WithTraceID(traceID string) Logger {
	return &ZapLogger{
		base:   l.base.With(zap.String("trace_id", traceID)),
		level:  l.level,
		redact: l.redact,
	}
}

func (l *ZapLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.WithTraceID(traceID)
}

// SetLevel changes the level of this logger and every logger derived from it.
func (l *ZapLogger) SetLevel(level LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

func (l *ZapLogger) Close() error {
	// stderr returns EINVAL on sync for terminals
	_ = l.base.Sync()
	return nil
}
