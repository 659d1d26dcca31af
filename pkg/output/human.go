package output

import (
	"fmt"
	"io"
	"time"

	"github.com/avandam/datasweep/pkg/models"
)

// HumanFormatter writes plain human-readable lines
type HumanFormatter struct {
	writer     io.Writer
	operation  string
	totalFiles int
	startTime  time.Time
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, operation string, totalFiles int) error {
	f.writer = writer
	f.operation = operation
	f.totalFiles = totalFiles
	f.startTime = time.Now()

	if writer != nil {
		fmt.Fprintf(writer, "Starting %s: %d files\n", operation, totalFiles)
	}
	return nil
}

// Progress reports one per-file event
func (f *HumanFormatter) Progress(e Event) error {
	if f.writer == nil {
		return nil
	}

	switch e.Type {
	case EventDeleted:
		fmt.Fprintf(f.writer, "  deleted %s (%s)\n", e.Path, formatBytes(e.Bytes))
	case EventHashed:
		fmt.Fprintf(f.writer, "  hashed  %s\n", e.Path)
	case EventError:
		fmt.Fprintf(f.writer, "  error   %s: %v\n", e.Path, e.Err)
	}
	return nil
}

// Complete finalizes output and displays the sweep summary
func (f *HumanFormatter) Complete(report *models.SweepReport) error {
	if f.writer == nil {
		f.writer = io.Discard
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Sweep of %s completed in %s\n", report.Folder, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Summary:\n")
	fmt.Fprintf(f.writer, "  Files scanned:  %d\n", report.FilesScanned)
	fmt.Fprintf(f.writer, "  Files deleted:  %d\n", report.FilesDeleted)
	fmt.Fprintf(f.writer, "  Files skipped:  %d\n", report.FilesSkipped)
	fmt.Fprintf(f.writer, "  Space freed:    %s\n", formatBytes(report.BytesFreed))

	if len(report.Errors) > 0 {
		fmt.Fprintf(f.writer, "\nErrors:\n")
		for _, e := range report.Errors {
			fmt.Fprintf(f.writer, "  %s: %s\n", e.Path, e.Error)
		}
	}
	return nil
}

// Error reports an operation-level error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		fmt.Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
