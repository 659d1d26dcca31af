package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/avandam/datasweep/pkg/models"
)

// JSONFormatter emits one JSON event per line for automation and scripting
type JSONFormatter struct {
	mu     sync.Mutex
	writer io.Writer
	enc    *json.Encoder
}

// JSONEvent is a single line in the JSON output stream
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// JSONStartData describes the start event
type JSONStartData struct {
	Operation  string `json:"operation"`
	TotalFiles int    `json:"total_files"`
}

// JSONFileData describes per-file events
type JSONFileData struct {
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes,omitempty"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// JSONSummaryData describes the final summary event
type JSONSummaryData struct {
	OperationID  string             `json:"operation_id"`
	Folder       string             `json:"folder"`
	DurationMs   int64              `json:"duration_ms"`
	FilesScanned int                `json:"files_scanned"`
	FilesDeleted int                `json:"files_deleted"`
	FilesSkipped int                `json:"files_skipped"`
	BytesFreed   int64              `json:"bytes_freed"`
	Errors       []models.SweepError `json:"errors,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) emit(eventType string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enc == nil {
		return nil
	}
	return f.enc.Encode(JSONEvent{Timestamp: time.Now(), Type: eventType, Data: data})
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, operation string, totalFiles int) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.mu.Lock()
	f.writer = writer
	f.enc = json.NewEncoder(writer)
	f.mu.Unlock()
	return f.emit("start", JSONStartData{Operation: operation, TotalFiles: totalFiles})
}

// Progress reports one per-file event
func (f *JSONFormatter) Progress(e Event) error {
	data := JSONFileData{Path: e.Path, Bytes: e.Bytes, Reason: e.Reason}
	if e.Err != nil {
		data.Error = e.Err.Error()
	}
	return f.emit(string(e.Type), data)
}

// Complete emits the summary event
func (f *JSONFormatter) Complete(report *models.SweepReport) error {
	return f.emit("summary", JSONSummaryData{
		OperationID:  report.OperationID,
		Folder:       report.Folder,
		DurationMs:   report.Duration.Milliseconds(),
		FilesScanned: report.FilesScanned,
		FilesDeleted: report.FilesDeleted,
		FilesSkipped: report.FilesSkipped,
		BytesFreed:   report.BytesFreed,
		Errors:       report.Errors,
	})
}

// Error reports an operation-level error
func (f *JSONFormatter) Error(err error) error {
	return f.emit("error", JSONFileData{Error: err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
