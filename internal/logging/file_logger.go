package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileSink owns the log file. Traced loggers share it so rotation and
// size accounting stay consistent.
type fileSink struct {
	mu            sync.Mutex
	file          *os.File
	filePath      string
	level         LogLevel
	maxFileSize   int64
	currentSize   int64
	rotateEnabled bool
	closed        bool
}

// FileLogger appends JSON lines to a file and rotates it by size.
type FileLogger struct {
	sink    *fileSink
	traceID string
}

type FileLoggerConfig struct {
	FilePath      string
	Level         LogLevel
	MaxFileSize   int64 // bytes, 0 disables rotation
	RotateEnabled bool
}

func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &FileLogger{sink: &fileSink{
		file:          file,
		filePath:      config.FilePath,
		level:         config.Level,
		maxFileSize:   config.MaxFileSize,
		currentSize:   info.Size(),
		rotateEnabled: config.RotateEnabled && config.MaxFileSize > 0,
	}}, nil
}

func (l *FileLogger) log(level LogLevel, msg string, fields ...Field) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || level < s.level {
		return
	}

	if s.rotateEnabled && s.currentSize >= s.maxFileSize {
		if err := s.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to rotate log file: %v\n", err)
			if s.file == nil {
				return
			}
		}
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   RedactSensitiveData(msg),
		TraceID:   l.traceID,
	}
	if len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(fields))
		for _, field := range fields {
			if str, ok := field.Value.(string); ok {
				entry.Fields[field.Key] = RedactSensitiveData(str)
				continue
			}
			entry.Fields[field.Key] = field.Value
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
		return
	}

	n, err := s.file.Write(append(data, '\n'))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log entry: %v\n", err)
		return
	}
	s.currentSize += int64(n)
}

func (s *fileSink) rotate() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}

	rotatedPath := fmt.Sprintf("%s.%s", s.filePath, time.Now().UTC().Format("20060102-150405.000000000"))
	renameErr := os.Rename(s.filePath, rotatedPath)

	file, err := os.OpenFile(s.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		s.file = nil
		return fmt.Errorf("failed to reopen log file: %w", err)
	}
	s.file = file
	if renameErr != nil {
		return fmt.Errorf("failed to rename log file: %w", renameErr)
	}
	s.currentSize = 0
	return nil
}

func (l *FileLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields...) }
func (l *FileLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields...) }
func (l *FileLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields...) }
func (l *FileLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields...) }

func (l *FileLogger) WithTraceID(traceID string) Logger {
	return &FileLogger{sink: l.sink, traceID: traceID}
}

func (l *FileLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.WithTraceID(traceID)
}

func (l *FileLogger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// Close closes the shared file. Closing twice is a no-op.
func (l *FileLogger) Close() error {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.file == nil {
		s.closed = true
		return nil
	}
	s.closed = true
	return s.file.Close()
}
