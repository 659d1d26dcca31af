package output

import (
	"io"

	"github.com/avandam/datasweep/pkg/models"
)

// EventType names the per-file notifications emitted during a sweep
type EventType string

const (
	// EventDeleted means the file was validated against a backup and removed
	EventDeleted EventType = "deleted"
	// EventSkipped means the file was examined and retained
	EventSkipped EventType = "skipped"
	// EventError means the file's task failed; the sweep continues
	EventError EventType = "error"
	// EventHashed means a checksum was generated for the file
	EventHashed EventType = "hashed"
)

// Event is one per-file progress notification
type Event struct {
	Type   EventType
	Path   string
	Bytes  int64
	Reason string
	Err    error
}

// Formatter renders sweep progress and results. Implementations include
// human-readable, JSON, and progress-bar formatters.
type Formatter interface {
	// Start initializes the formatter for a new operation over totalFiles
	Start(writer io.Writer, operation string, totalFiles int) error

	// Progress reports one per-file event
	Progress(e Event) error

	// Complete finalizes output and displays the sweep summary
	Complete(report *models.SweepReport) error

	// Error reports an operation-level error
	Error(err error) error

	// Name returns the formatter name
	Name() string
}
