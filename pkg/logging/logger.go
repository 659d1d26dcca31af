// Package logging provides the structured file log shared by scans, copies
// and sweeps. One logger is created per command invocation; components
// derive from it with WithFields so every entry they write carries their
// component tag and operation id.
package logging

import (
	"context"
)

// Level is log entry severity. A logger writes entries at or above its
// configured level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Fields is the structured key/value payload attached to an entry
type Fields map[string]interface{}

// Logger is the structured logging contract. Implementations must be safe
// for concurrent use; sweep and copy workers log from many goroutines.
type Logger interface {
	Debug(ctx context.Context, msg string, fields Fields)
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)

	// Error records err alongside the message
	Error(ctx context.Context, msg string, err error, fields Fields)

	// WithFields returns a derived logger whose entries always carry the
	// given fields in addition to anything passed per call
	WithFields(fields Fields) Logger

	// Close releases the underlying sink
	Close() error
}
