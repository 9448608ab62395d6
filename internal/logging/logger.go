// Package logging provides the leveled, field-based loggers used by medialib.
package logging

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LogLevel orders log messages by severity.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel maps config and flag values onto a LogLevel. Unknown values map to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "verbose":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error", "quiet":
		return ERROR
	default:
		return INFO
	}
}

// Field is a key/value pair attached to a log message.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func String(key, val string) Field {
	return Field{Key: key, Value: val}
}

func Int(key string, val int) Field {
	return Field{Key: key, Value: val}
}

func Int64(key string, val int64) Field {
	return Field{Key: key, Value: val}
}

func Uint64(key string, val uint64) Field {
	return Field{Key: key, Value: val}
}

func Duration(key string, val time.Duration) Field {
	return Field{Key: key, Value: val.String()}
}

// Err attaches an error under the "error" key.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger is implemented by every backend in this package.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithTraceID(traceID string) Logger
	WithContext(ctx context.Context) Logger
	SetLevel(level LogLevel)
	Close() error
}

// LogEntry is one line of the JSON log file.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	TraceID   string                 `json:"traceId,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogConfig selects and configures the logger built by NewLogger.
type LogConfig struct {
	Level           LogLevel
	OutputFile      string
	MaxFileSize     int64
	EnableConsole   bool
	EnableDebug     bool
	RedactSensitive bool
	EnableColor     bool
	EnableTimestamp bool
	// Format selects the console backend: "text" (default) or "json".
	Format string
}

// DefaultLogConfig returns the configuration used when nothing is set.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:           INFO,
		MaxFileSize:     100 * 1024 * 1024,
		EnableConsole:   true,
		RedactSensitive: true,
		EnableColor:     true,
		EnableTimestamp: true,
		Format:          "text",
	}
}

// NewLogger builds a console logger, a file logger, both, or a no-op logger.
func NewLogger(config LogConfig) (Logger, error) {
	if config.EnableDebug {
		config.Level = DEBUG
	}

	var loggers []Logger
	if config.EnableConsole {
		if strings.EqualFold(config.Format, "json") {
			zl, err := NewZapLogger(ZapLoggerConfig{Level: config.Level, RedactSensitive: config.RedactSensitive})
			if err != nil {
				return nil, err
			}
			loggers = append(loggers, zl)
		} else {
			loggers = append(loggers, NewConsoleLogger(ConsoleLoggerConfig{
				Level:            config.Level,
				ColorEnabled:     config.EnableColor,
				TimestampEnabled: config.EnableTimestamp,
				RedactSensitive:  config.RedactSensitive,
			}))
		}
	}
	if config.OutputFile != "" {
		fl, err := NewFileLogger(FileLoggerConfig{
			FilePath:      config.OutputFile,
			Level:         config.Level,
			MaxFileSize:   config.MaxFileSize,
			RotateEnabled: config.MaxFileSize > 0,
		})
		if err != nil {
			for _, l := range loggers {
				_ = l.Close()
			}
			return nil, err
		}
		loggers = append(loggers, fl)
	}

	switch len(loggers) {
	case 0:
		return NewNoOpLogger(), nil
	case 1:
		return loggers[0], nil
	default:
		return NewMultiLogger(loggers...), nil
	}
}

type traceIDKey struct{}

// ContextWithTraceID stores a trace ID for WithContext.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext returns the trace ID stored by ContextWithTraceID.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

func shortTraceID(traceID string) string {
	if len(traceID) > 8 {
		return traceID[:8]
	}
	return traceID
}
