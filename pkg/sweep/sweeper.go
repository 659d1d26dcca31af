// Package sweep clears recording-session folders of files whose backups
// have been proven. Every deletion rests on a checksum-valid backup that is
// confirmed on disk twice: once when the file is evaluated, and again
// immediately before the unlink. Anything uncertain stays.
package sweep

import (
	"context"
	"errors"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avandam/datasweep/pkg/backup"
	"github.com/avandam/datasweep/pkg/checksum"
	"github.com/avandam/datasweep/pkg/logging"
	"github.com/avandam/datasweep/pkg/models"
	"github.com/avandam/datasweep/pkg/output"
	"github.com/avandam/datasweep/pkg/storage"
)

// ErrNoDerivedData means the folder holds original raw capture data with no
// derived (sorted) results at the archive tier yet. Clearing it would make
// the raw data the only copy of anything, so the sweep refuses to run.
var ErrNoDerivedData = errors.New("original raw data with no derived results at archive tier")

// Config holds the knobs for one sweeper
type Config struct {
	// Recursive descends into subfolders
	Recursive bool

	// Include keeps only matching file names when non-empty
	Include []string

	// Exclude drops matching file names
	Exclude []string

	// MinAgeDays skips files whose session date is more recent
	MinAgeDays int

	// Workers bounds the per-file concurrency, independent of folder size
	Workers int

	// SkipDerivedCheck overrides the raw-capture guard
	SkipDerivedCheck bool

	// DryRun evaluates and reports but never deletes
	DryRun bool
}

// Sweeper applies the backup-status policy to a folder and reclaims the
// space of files proven safe to delete.
type Sweeper struct {
	fs      storage.Backend
	eval    *backup.Evaluator
	locator backup.Locator
	builder *checksum.Builder
	log     logging.Logger
	fmtr    output.Formatter
	cfg     Config
}

// NewSweeper wires a sweeper. Logger and formatter may be nil.
func NewSweeper(fs storage.Backend, eval *backup.Evaluator, loc backup.Locator, b *checksum.Builder, log logging.Logger, fmtr output.Formatter, cfg Config) *Sweeper {
	if log == nil {
		log = logging.NewNullLogger()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Sweeper{
		fs:      fs,
		eval:    eval,
		locator: loc,
		builder: b,
		log:     log,
		fmtr:    fmtr,
		cfg:     cfg,
	}
}

// fileResult is one task's slot. Tasks write only their own index.
type fileResult struct {
	deleted bool
	freed   int64
	err     error
}

// Clear sweeps folder and deletes every file with a checksum-valid backup
// confirmed on disk. A single file's failure never aborts the sweep.
func (s *Sweeper) Clear(ctx context.Context, folder string) (models.SweepReport, error) {
	folder = models.NormalizeLocation(folder)
	report := models.SweepReport{
		OperationID: uuid.New().String(),
		Folder:      folder,
		StartTime:   time.Now(),
	}

	if !s.cfg.SkipDerivedCheck {
		guarded, err := s.rawCaptureGuard(ctx, folder)
		if err != nil {
			return report, err
		}
		if guarded {
			s.log.Warn(ctx, "refusing to clear original raw data, no derived results at archive tier", logging.Fields{
				"folder": folder,
			})
			s.finish(&report)
			return report, ErrNoDerivedData
		}
	}

	files, err := s.enumerate(ctx, folder)
	if err != nil {
		return report, err
	}
	report.FilesScanned = len(files)

	if s.fmtr != nil {
		s.fmtr.Start(os.Stdout, "clear "+folder, len(files))
	}

	results := make([]fileResult, len(files))
	cutoff := time.Now().AddDate(0, 0, -s.cfg.MinAgeDays).Format("20060102")

	forEach(ctx, s.cfg.Workers, len(files), func(ctx context.Context, i int) {
		results[i] = s.clearOne(ctx, files[i].Path, cutoff)
		if s.fmtr != nil {
			switch {
			case results[i].err != nil:
				s.fmtr.Progress(output.Event{Type: output.EventError, Path: files[i].Path, Err: results[i].err})
			case results[i].deleted:
				s.fmtr.Progress(output.Event{Type: output.EventDeleted, Path: files[i].Path, Bytes: results[i].freed})
			default:
				s.fmtr.Progress(output.Event{Type: output.EventSkipped, Path: files[i].Path})
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
			report.FilesSkipped++
		case r.deleted:
			report.FilesDeleted++
			report.BytesFreed += r.freed
		default:
			report.FilesSkipped++
		}
	}

	if !s.cfg.DryRun {
		if removed, err := s.fs.RemoveEmptyDirs(ctx, folder); err == nil && removed > 0 {
			s.log.Debug(ctx, "removed empty subfolders", logging.Fields{
				"folder": folder,
				"count":  removed,
			})
		}
	}

	s.finish(&report)
	s.log.Info(ctx, "sweep complete", logging.Fields{
		"operation_id":  report.OperationID,
		"folder":        folder,
		"files_deleted": report.FilesDeleted,
		"bytes_freed":   report.BytesFreed,
	})
	if s.fmtr != nil {
		s.fmtr.Complete(&report)
	}
	return report, nil
}

func (s *Sweeper) finish(report *models.SweepReport) {
	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
}

// clearOne evaluates and, when proven safe, deletes a single file.
func (s *Sweeper) clearOne(ctx context.Context, filePath, cutoff string) fileResult {
	rec, err := s.builder.FromPath(ctx, filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// vanished mid-sweep, benign
			return fileResult{}
		}
		return fileResult{err: err}
	}

	// Orphans have no session to resolve backup paths with; they are never
	// cleared automatically.
	if rec.IsOrphan() {
		s.log.Debug(ctx, "skipping file without session identifier", logging.Fields{"path": filePath})
		return fileResult{}
	}

	if rec.SessionDate > cutoff {
		s.log.Debug(ctx, "skipping file newer than minimum age", logging.Fields{
			"path":         filePath,
			"session_date": rec.SessionDate,
		})
		return fileResult{}
	}

	ev, err := s.eval.Evaluate(ctx, rec)
	if err != nil {
		return fileResult{err: err}
	}
	if ev.Status.Unconfirmed() {
		// complete the missing checksum side; this can settle the verdict
		rec, ev, err = s.eval.EnsureBackupChecksum(ctx, rec)
		if err != nil {
			return fileResult{err: err}
		}
	}
	if !ev.Deletable() {
		return fileResult{}
	}

	// Re-verify right before deleting: the store and the filesystem may
	// have moved under us since the first evaluation.
	ev, err = s.eval.Evaluate(ctx, rec)
	if err != nil {
		return fileResult{err: err}
	}
	best, ok := ev.Best()
	if !ev.Deletable() || !ok || !models.ValidSet.Contains(best.Kind) || !best.OnDisk {
		return fileResult{}
	}

	if s.cfg.DryRun {
		s.log.Info(ctx, "would delete (dry run)", logging.Fields{
			"path":   filePath,
			"backup": best.Record.Location,
			"tier":   string(best.Tier),
		})
		return fileResult{deleted: true, freed: rec.Size}
	}

	if err := s.fs.Remove(ctx, filePath); err != nil {
		// permission or transient failure: the file stays, the sweep goes on
		s.log.Error(ctx, "could not delete file", err, logging.Fields{"path": filePath})
		return fileResult{err: err}
	}
	s.log.Info(ctx, "deleted file with validated backup", logging.Fields{
		"path":   filePath,
		"backup": best.Record.Location,
		"tier":   string(best.Tier),
		"bytes":  rec.Size,
	})
	return fileResult{deleted: true, freed: rec.Size}
}

func (s *Sweeper) enumerate(ctx context.Context, folder string) ([]storage.FileInfo, error) {
	files, err := s.fs.List(ctx, folder, s.cfg.Recursive)
	if err != nil {
		return nil, err
	}
	kept := files[:0]
	for _, f := range files {
		if keepFile(path.Base(models.NormalizeLocation(f.Path)), s.cfg.Include, s.cfg.Exclude) {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

var sortedProbePattern = regexp.MustCompile(`_probe([A-F])_sorted`)

// rawCaptureGuard reports whether folder is original raw capture data whose
// derived results have not reached the archive tier yet. Raw probe data on
// an acquisition root must not be cleared until at least one of its probes
// has a sorted folder at the archive session directory.
func (s *Sweeper) rawCaptureGuard(ctx context.Context, folder string) (bool, error) {
	probes := models.SubgroupTag(path.Base(folder))
	if len(probes) < 3 {
		return false, nil
	}
	sess, err := models.ParseSession(folder)
	if err != nil {
		return false, nil
	}
	if s.locator.TierFor(folder) != models.TierLocal {
		return false, nil
	}

	archiveDir, ok := s.locator.SessionRoot(sess, models.TierArchive)
	if !ok {
		// no archive root configured: nothing derived can exist, fail closed
		return true, nil
	}
	dirs, err := s.fs.ListDirs(ctx, archiveDir)
	if err != nil {
		// archive session dir missing entirely
		return true, nil
	}

	sorted := ""
	for _, d := range dirs {
		if m := sortedProbePattern.FindStringSubmatch(path.Base(models.NormalizeLocation(d.Path))); m != nil {
			sorted += m[1]
		}
	}
	for _, probe := range probes {
		if strings.ContainsRune(sorted, probe) {
			return false, nil
		}
	}
	return true, nil
}
