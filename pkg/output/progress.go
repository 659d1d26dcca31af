package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/avandam/datasweep/pkg/models"
)

// ProgressFormatter renders a terminal progress bar over the files of a
// sweep, with the running tally of space freed in the bar suffix.
type ProgressFormatter struct {
	mu         sync.Mutex
	writer     io.Writer
	bar        *pb.ProgressBar
	bytesFreed int64
	errCount   int
}

// NewProgressFormatter creates a new progress-bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{}
}

// Start initializes the bar
func (f *ProgressFormatter) Start(writer io.Writer, operation string, totalFiles int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writer = writer
	if writer != nil {
		fmt.Fprintf(writer, "%s: %d files\n", operation, totalFiles)
	}

	tmpl := `{{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{string . "suffix"}}`
	f.bar = pb.New(totalFiles).SetTemplateString(tmpl)
	if writer != nil {
		f.bar.SetWriter(writer)
	}
	f.bar.SetRefreshRate(100 * time.Millisecond)
	f.bar.Start()
	return nil
}

// Progress advances the bar by one file
func (f *ProgressFormatter) Progress(e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bar == nil {
		return nil
	}

	switch e.Type {
	case EventDeleted:
		f.bytesFreed += e.Bytes
	case EventError:
		f.errCount++
	}
	f.bar.Set("suffix", fmt.Sprintf("freed %s", formatBytes(f.bytesFreed)))
	f.bar.Increment()
	return nil
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(report *models.SweepReport) error {
	f.mu.Lock()
	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	f.mu.Unlock()

	human := &HumanFormatter{writer: f.writer}
	return human.Complete(report)
}

// Error reports an operation-level error under the bar
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writer != nil {
		fmt.Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
