package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Format selects the log line encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// FileLoggerConfig configures the file logger
type FileLoggerConfig struct {
	// Path is the log file location; missing parent directories are created
	Path string

	// Format is json or text
	Format Format

	// Level is the minimum severity written
	Level Level

	// MaxSize is the rotation threshold in bytes. Zero disables rotation.
	MaxSize int64

	// MaxBackups bounds how many rotated files are kept
	MaxBackups int
}

// FileLogger writes structured entries to a size-rotated file. Loggers
// derived with WithFields share the parent's file handle, write lock and
// rotation state, so a sweep and its workers can log concurrently through
// any number of derivations.
type FileLogger struct {
	sink   *logSink
	fields Fields
}

// logSink is the shared file behind a FileLogger and all its derivations
type logSink struct {
	cfg  FileLoggerConfig
	mu   sync.Mutex
	file *os.File
	size int64
}

// NewFileLogger opens the log file at cfg.Path for appending
func NewFileLogger(cfg FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}
	return &FileLogger{sink: &logSink{cfg: cfg, file: f, size: info.Size()}}, nil
}

func (l *FileLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.emit(DebugLevel, msg, nil, fields)
}

func (l *FileLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.emit(InfoLevel, msg, nil, fields)
}

func (l *FileLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.emit(WarnLevel, msg, nil, fields)
}

func (l *FileLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.emit(ErrorLevel, msg, err, fields)
}

// WithFields returns a derived logger whose entries always carry fields.
// Later values win on key collision, so a derivation can override its
// parent's component tag.
func (l *FileLogger) WithFields(fields Fields) Logger {
	return &FileLogger{sink: l.sink, fields: mergeFields(l.fields, fields)}
}

// Close closes the shared file. Entries written through any derivation
// after Close are dropped.
func (l *FileLogger) Close() error {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (l *FileLogger) emit(level Level, msg string, err error, fields Fields) {
	if level < l.sink.cfg.Level {
		return
	}

	var line []byte
	merged := mergeFields(l.fields, fields)
	if l.sink.cfg.Format == FormatJSON {
		line = renderJSON(level, msg, err, merged)
	} else {
		line = renderText(level, msg, err, merged)
	}
	if line == nil {
		return
	}

	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}
	if s.cfg.MaxSize > 0 && s.size >= s.cfg.MaxSize {
		s.rotateLocked()
		if s.file == nil {
			return
		}
	}
	n, _ := s.file.Write(line)
	s.size += int64(n)
}

func renderJSON(level Level, msg string, err error, fields Fields) []byte {
	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"level":     LevelString(level),
		"message":   msg,
	}
	if err != nil {
		entry["error"] = err.Error()
	}
	for k, v := range fields {
		entry[k] = v
	}

	line, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		return nil
	}
	return append(line, '\n')
}

// renderText emits fields sorted by key so lines are stable regardless of
// map iteration order
func renderText(level Level, msg string, err error, fields Fields) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s [%s] %s",
		time.Now().UTC().Format(time.RFC3339), LevelString(level), msg)
	if err != nil {
		fmt.Fprintf(&buf, " error=%q", err.Error())
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, fields[k])
	}

	buf.WriteByte('\n')
	return buf.Bytes()
}

func mergeFields(base, extra Fields) Fields {
	if len(extra) == 0 {
		return base
	}
	merged := make(Fields, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// rotateLocked shifts the current file to .1 and each kept backup one slot
// further, dropping anything beyond MaxBackups, then reopens a fresh file.
// Caller holds mu.
func (s *logSink) rotateLocked() {
	s.file.Close()
	s.file = nil

	for i := s.cfg.MaxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", s.cfg.Path, i), fmt.Sprintf("%s.%d", s.cfg.Path, i+1))
	}
	os.Rename(s.cfg.Path, s.cfg.Path+".1")
	if s.cfg.MaxBackups > 0 {
		os.Remove(fmt.Sprintf("%s.%d", s.cfg.Path, s.cfg.MaxBackups+1))
	}

	f, err := os.OpenFile(s.cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	s.file = f
	s.size = 0
}

// LevelString renders a level the way it appears in log output
func LevelString(level Level) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}
