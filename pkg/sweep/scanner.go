package sweep

import (
	"context"
	"errors"
	"os"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/avandam/datasweep/pkg/checksum"
	"github.com/avandam/datasweep/pkg/logging"
	"github.com/avandam/datasweep/pkg/models"
	"github.com/avandam/datasweep/pkg/output"
	"github.com/avandam/datasweep/pkg/storage"
	"github.com/avandam/datasweep/pkg/store"
)

// DefaultRegenerateThreshold is the size at or below which a scan hashes a
// file even when the store already holds a checksummed entry for it. Small
// files are cheap to re-read and the fresh digest catches silent changes.
const DefaultRegenerateThreshold int64 = 1024 * 1024

// ScanConfig holds the knobs for one scanner
type ScanConfig struct {
	// Recursive descends into subfolders
	Recursive bool

	// Include keeps only matching file names when non-empty
	Include []string

	// Exclude drops matching file names
	Exclude []string

	// Workers bounds the per-file concurrency
	Workers int

	// RegenerateThreshold is the size at or below which files are re-hashed
	// unconditionally. Zero means DefaultRegenerateThreshold.
	RegenerateThreshold int64
}

// ScanReport summarizes one scan of a folder
type ScanReport struct {
	OperationID string
	Folder      string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	FilesScanned int
	FilesHashed  int
	FilesSkipped int

	Errors []models.SweepError
}

// Scanner walks a folder and records every file's checksum in the store, so
// later status and clear runs can compare against it. Files the store
// already knows with a digest are not re-read unless they are small.
type Scanner struct {
	fs      storage.Backend
	store   store.RecordStore
	builder *checksum.Builder
	log     logging.Logger
	fmtr    output.Formatter
	cfg     ScanConfig
}

// NewScanner wires a scanner. Logger and formatter may be nil.
func NewScanner(fs storage.Backend, st store.RecordStore, b *checksum.Builder, log logging.Logger, fmtr output.Formatter, cfg ScanConfig) *Scanner {
	if log == nil {
		log = logging.NewNullLogger()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.RegenerateThreshold == 0 {
		cfg.RegenerateThreshold = DefaultRegenerateThreshold
	}
	return &Scanner{
		fs:      fs,
		store:   st,
		builder: b,
		log:     log,
		fmtr:    fmtr,
		cfg:     cfg,
	}
}

type scanResult struct {
	hashed bool
	err    error
}

// Scan hashes and stores the files under folder
func (s *Scanner) Scan(ctx context.Context, folder string) (ScanReport, error) {
	folder = models.NormalizeLocation(folder)
	report := ScanReport{
		OperationID: uuid.New().String(),
		Folder:      folder,
		StartTime:   time.Now(),
	}

	files, err := s.fs.List(ctx, folder, s.cfg.Recursive)
	if err != nil {
		return report, err
	}
	kept := files[:0]
	for _, f := range files {
		if keepFile(path.Base(models.NormalizeLocation(f.Path)), s.cfg.Include, s.cfg.Exclude) {
			kept = append(kept, f)
		}
	}
	files = kept
	report.FilesScanned = len(files)

	if s.fmtr != nil {
		s.fmtr.Start(os.Stdout, "scan "+folder, len(files))
	}

	results := make([]scanResult, len(files))
	forEach(ctx, s.cfg.Workers, len(files), func(ctx context.Context, i int) {
		results[i] = s.scanOne(ctx, files[i])
		if s.fmtr != nil {
			switch {
			case results[i].err != nil:
				s.fmtr.Progress(output.Event{Type: output.EventError, Path: files[i].Path, Err: results[i].err})
			case results[i].hashed:
				s.fmtr.Progress(output.Event{Type: output.EventHashed, Path: files[i].Path, Bytes: files[i].Size})
			default:
				s.fmtr.Progress(output.Event{Type: output.EventSkipped, Path: files[i].Path, Reason: "checksum already known"})
			}
		}
	})

	for i, r := range results {
		switch {
		case r.err != nil:
			report.Errors = append(report.Errors, models.SweepError{
				Path:      files[i].Path,
				Error:     r.err.Error(),
				Timestamp: time.Now(),
			})
		case r.hashed:
			report.FilesHashed++
		default:
			report.FilesSkipped++
		}
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	s.log.Info(ctx, "scan complete", logging.Fields{
		"operation_id": report.OperationID,
		"folder":       folder,
		"files_hashed": report.FilesHashed,
	})
	return report, nil
}

// scanOne hashes one file and stores its record. Files the store already
// holds a digest for are skipped above the regenerate threshold; at or below
// it they are re-hashed every time.
func (s *Scanner) scanOne(ctx context.Context, fi storage.FileInfo) scanResult {
	rec, err := models.NewFileRecord(fi.Path, fi.Size, models.Checksum{})
	if err != nil {
		return scanResult{err: err}
	}

	if fi.Size > s.cfg.RegenerateThreshold {
		selves, err := s.store.Matches(ctx, rec, models.SelfSet)
		if err != nil {
			return scanResult{err: err}
		}
		for _, self := range selves {
			if self.HasChecksum() {
				return scanResult{}
			}
		}
	}

	rec, err = s.builder.Generate(ctx, rec, s.builder.Algorithm())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// vanished mid-scan
			return scanResult{}
		}
		return scanResult{err: err}
	}
	if err := s.store.Add(ctx, rec); err != nil {
		return scanResult{err: err}
	}
	return scanResult{hashed: true}
}
