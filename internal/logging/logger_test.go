package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{"info", INFO},
		{"warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
		{"", INFO},
		{"nonsense", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()
	if config.Level != INFO {
		t.Errorf("Level = %v, want INFO", config.Level)
	}
	if !config.EnableConsole {
		t.Error("EnableConsole should default to true")
	}
	if !config.RedactSensitive {
		t.Error("RedactSensitive should default to true")
	}
	if config.MaxFileSize != 100*1024*1024 {
		t.Errorf("MaxFileSize = %d", config.MaxFileSize)
	}
}

func TestNewLogger(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name   string
		config LogConfig
		check  func(t *testing.T, l Logger)
	}{
		{
			name:   "console only",
			config: LogConfig{Level: INFO, EnableConsole: true},
			check: func(t *testing.T, l Logger) {
				if _, ok := l.(*ConsoleLogger); !ok {
					t.Errorf("got %T, want *ConsoleLogger", l)
				}
			},
		},
		{
			name:   "json console",
			config: LogConfig{Level: INFO, EnableConsole: true, Format: "json"},
			check: func(t *testing.T, l Logger) {
				if _, ok := l.(*ZapLogger); !ok {
					t.Errorf("got %T, want *ZapLogger", l)
				}
			},
		},
		{
			name:   "file only",
			config: LogConfig{Level: INFO, OutputFile: filepath.Join(tempDir, "a.log")},
			check: func(t *testing.T, l Logger) {
				if _, ok := l.(*FileLogger); !ok {
					t.Errorf("got %T, want *FileLogger", l)
				}
			},
		},
		{
			name:   "console and file",
			config: LogConfig{Level: INFO, EnableConsole: true, OutputFile: filepath.Join(tempDir, "b.log")},
			check: func(t *testing.T, l Logger) {
				if _, ok := l.(*MultiLogger); !ok {
					t.Errorf("got %T, want *MultiLogger", l)
				}
			},
		},
		{
			name:   "nothing",
			config: LogConfig{},
			check: func(t *testing.T, l Logger) {
				if _, ok := l.(*NoOpLogger); !ok {
					t.Errorf("got %T, want *NoOpLogger", l)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.config)
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			t.Cleanup(func() { _ = l.Close() })
			tt.check(t, l)
		})
	}
}

func TestTraceIDFromContext(t *testing.T) {
	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context returned %q", got)
	}
	ctx := ContextWithTraceID(context.Background(), "sweep-42")
	if got := TraceIDFromContext(ctx); got != "sweep-42" {
		t.Errorf("TraceIDFromContext() = %q", got)
	}
}

func TestZapLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(ZapLoggerConfig{Level: INFO, Sink: zapcore.AddSync(&buf)})
	if err != nil {
		t.Fatalf("NewZapLogger() error = %v", err)
	}

	logger.Debug("hidden")
	logger.WithTraceID("trace-9").Info("sweep finished", Uint64("added", 3))

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("output is not a single JSON line: %v (%q)", err, buf.String())
	}
	if line["msg"] != "sweep finished" {
		t.Errorf("msg = %v", line["msg"])
	}
	if line["trace_id"] != "trace-9" {
		t.Errorf("trace_id = %v", line["trace_id"])
	}
	if line["added"] != float64(3) {
		t.Errorf("added = %v", line["added"])
	}
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = OrNoOp(nil)
	l.Info("dropped")
	if l.WithTraceID("x") == nil {
		t.Error("WithTraceID returned nil")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
