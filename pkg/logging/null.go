package logging

import "context"

// NullLogger discards everything. It stands in wherever logging is disabled
// so callers never have to branch on a nil logger.
type NullLogger struct{}

// NewNullLogger returns the discarding logger
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (*NullLogger) Debug(context.Context, string, Fields)        {}
func (*NullLogger) Info(context.Context, string, Fields)         {}
func (*NullLogger) Warn(context.Context, string, Fields)         {}
func (*NullLogger) Error(context.Context, string, error, Fields) {}

// WithFields returns the logger itself; there is nothing to attach fields to
func (l *NullLogger) WithFields(Fields) Logger { return l }

func (*NullLogger) Close() error { return nil }
