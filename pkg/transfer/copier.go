// Package transfer implements the copy-validate-delete protocol that
// populates backup tiers. A source file is copied to a destination resolved
// from its session identity, the copy is proven by checksum comparison, and
// only then may the source be removed. Validation failures retry the raw
// copy a bounded number of times; running out of retries leaves both files
// as they were.
package transfer

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/avandam/datasweep/pkg/checksum"
	"github.com/avandam/datasweep/pkg/compare"
	"github.com/avandam/datasweep/pkg/logging"
	"github.com/avandam/datasweep/pkg/models"
	"github.com/avandam/datasweep/pkg/storage"
	"github.com/avandam/datasweep/pkg/store"
)

// DefaultMaxAttempts bounds the copy-validate loop per file
const DefaultMaxAttempts = 3

// Options steer one copy operation
type Options struct {
	// AddSessionSubdir inserts the source's session folder under the
	// destination root when the root does not already encode one
	AddSessionSubdir bool

	// Validate proves the copy by checksum comparison before reporting success
	Validate bool

	// AllowRecopy overwrites an existing destination file unconditionally
	AllowRecopy bool

	// RemoveSource deletes the source after a checksum-valid copy is
	// confirmed. Implies Validate.
	RemoveSource bool
}

// ChecksumExchanger adopts an already-stored digest for a file instead of
// re-reading its contents. Implemented by backup.Evaluator.
type ChecksumExchanger interface {
	ExchangeIfKnown(ctx context.Context, rec models.FileRecord) (models.FileRecord, bool, error)
}

// Copier orchestrates copy-then-validate transfers onto backup tiers
type Copier struct {
	fs      storage.Backend
	store   store.RecordStore
	builder *checksum.Builder
	exch    ChecksumExchanger
	log     logging.Logger

	maxAttempts   int
	retryInterval time.Duration
	rawRetries    uint64
}

// CopierOption configures a Copier
type CopierOption func(*Copier)

// WithExchanger lets the copier adopt checksums the store already holds
func WithExchanger(e ChecksumExchanger) CopierOption {
	return func(c *Copier) { c.exch = e }
}

// WithMaxAttempts overrides the copy-validate attempt cap
func WithMaxAttempts(n int) CopierOption {
	return func(c *Copier) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryInterval sets the pause between raw copy retries
func WithRetryInterval(d time.Duration) CopierOption {
	return func(c *Copier) { c.retryInterval = d }
}

// NewCopier wires a copier. A nil logger disables logging.
func NewCopier(fs storage.Backend, st store.RecordStore, b *checksum.Builder, log logging.Logger, opts ...CopierOption) *Copier {
	if log == nil {
		log = logging.NewNullLogger()
	}
	c := &Copier{
		fs:            fs,
		store:         st,
		builder:       b,
		log:           log,
		maxAttempts:   DefaultMaxAttempts,
		retryInterval: 500 * time.Millisecond,
		rawRetries:    2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Copy copies the file at sourcePath under destRoot per opts.
//
// The destination path is resolved from the source's session identity; a
// root that already encodes a different session is refused, as is a
// destination whose inferred subgroup tag differs from the source's. When
// the store proves a prior valid copy at the destination was made and since
// cleared, no bytes move.
func (c *Copier) Copy(ctx context.Context, sourcePath, destRoot string, opts Options) (models.CopyOutcome, error) {
	start := time.Now()
	outcome := models.CopyOutcome{Result: models.CopyResultFailed, Source: models.NormalizeLocation(sourcePath)}

	if opts.RemoveSource {
		opts.Validate = true
	}

	src, err := c.builder.FromPath(ctx, sourcePath)
	if err != nil {
		return outcome, err
	}
	outcome.Source = src.Location

	destPath, err := c.resolveDestination(ctx, src, destRoot, opts.AddSessionSubdir)
	if err != nil {
		return outcome, err
	}
	outcome.Destination = destPath

	destProposed, err := models.NewFileRecord(destPath, src.Size, models.Checksum{})
	if err != nil {
		return outcome, err
	}
	if src.Subgroup != destProposed.Subgroup {
		return outcome, &models.SubgroupMismatchError{Source: src.Subgroup, Dest: destProposed.Subgroup}
	}

	doCopy, skip, err := c.decide(ctx, src, destProposed, opts)
	if err != nil {
		return outcome, err
	}
	if skip {
		outcome.Result = models.CopyResultSkipped
		c.log.Debug(ctx, "copy skipped, destination already accounted for", logging.Fields{
			"source": src.Location,
			"dest":   destPath,
		})
		outcome.Duration = time.Since(start)
		return outcome, nil
	}

	dest := destProposed
	validated := false
	for outcome.Attempts = 1; outcome.Attempts <= c.maxAttempts; outcome.Attempts++ {
		if doCopy {
			n, err := c.rawCopy(ctx, src.Location, destPath)
			if err != nil {
				outcome.Duration = time.Since(start)
				return outcome, err
			}
			outcome.BytesCopied += n
			outcome.Result = models.CopyResultCopied
			c.log.Info(ctx, "copied", logging.Fields{
				"source": src.Location,
				"dest":   destPath,
				"bytes":  n,
			})
		}

		if !opts.Validate {
			if !doCopy {
				outcome.Result = models.CopyResultSkipped
			}
			outcome.Duration = time.Since(start)
			return outcome, nil
		}

		src, dest, err = c.checksumPair(ctx, src, destPath, doCopy)
		if err != nil {
			outcome.Duration = time.Since(start)
			return outcome, err
		}

		kind := compare.Classify(src, dest)
		switch {
		case models.ValidSet.Contains(kind):
			validated = true
		case models.InvalidSet.Contains(kind):
			// The source may have changed since its stored checksum was
			// taken; regenerate before concluding the copy itself is bad.
			src, err = c.builder.Generate(ctx, src, dest.Checksum.Algorithm)
			if err != nil {
				outcome.Duration = time.Since(start)
				return outcome, err
			}
			if err := c.store.Add(ctx, src); err != nil {
				outcome.Duration = time.Since(start)
				return outcome, err
			}
			if models.ValidSet.Contains(compare.Classify(src, dest)) {
				validated = true
			} else {
				c.log.Warn(ctx, "copy validation failed, retrying", logging.Fields{
					"source": src.Location,
					"dest":   destPath,
					"kind":   string(kind),
				})
				doCopy = true
			}
		default:
			c.log.Warn(ctx, "copy validation inconclusive, retrying", logging.Fields{
				"source": src.Location,
				"dest":   destPath,
				"kind":   string(kind),
			})
			doCopy = true
		}
		if validated {
			break
		}
	}

	outcome.Duration = time.Since(start)
	if !validated {
		outcome.Attempts = c.maxAttempts
		outcome.Result = models.CopyResultFailed
		return outcome, &models.RetryExhaustedError{
			Source:   src.Location,
			Dest:     destPath,
			Attempts: c.maxAttempts,
		}
	}

	outcome.Result = models.CopyResultValidated
	if opts.RemoveSource {
		if err := c.fs.Remove(ctx, src.Location); err != nil {
			// Source stays; a retained original is never an error here.
			c.log.Error(ctx, "could not remove source after validated copy", err, logging.Fields{
				"source": src.Location,
			})
		} else {
			outcome.Result = models.CopyResultSourceRemoved
			c.log.Info(ctx, "removed source after validated copy", logging.Fields{
				"source": src.Location,
				"dest":   destPath,
			})
		}
	}
	return outcome, nil
}

// rawCopy runs the physical copy with bounded retries for transient I/O
// failures on network filesystems.
func (c *Copier) rawCopy(ctx context.Context, src, dst string) (int64, error) {
	var written int64
	op := func() error {
		n, err := c.fs.Copy(ctx, src, dst)
		if err == nil {
			written = n
		}
		return err
	}
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryInterval), c.rawRetries),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		return 0, err
	}
	return written, nil
}

// decide settles whether bytes need to move at all. Skip only when the
// store records a prior valid copy at this destination and nothing on disk
// or in the store now contradicts it.
func (c *Copier) decide(ctx context.Context, src, dest models.FileRecord, opts Options) (doCopy, skip bool, err error) {
	if opts.AllowRecopy {
		return true, false, nil
	}

	stored, err := c.store.Matches(ctx, dest, models.SelfSet)
	if err != nil {
		return false, false, err
	}
	var valid, invalid bool
	for _, cand := range append(stored, dest) {
		kind := compare.Classify(src, cand)
		valid = valid || models.ValidSet.Contains(kind)
		invalid = invalid || models.InvalidSet.Contains(kind)
	}

	exists, err := c.fs.Exists(ctx, dest.Location)
	if err != nil {
		return false, false, err
	}

	switch {
	case !exists && valid && !invalid:
		// copied here before, validated, and since cleared from disk
		return false, true, nil
	case !exists:
		return true, false, nil
	case invalid:
		return true, false, nil
	}

	same, err := quickCompare(ctx, c.fs, src.Location, dest.Location)
	if err != nil {
		return false, false, err
	}
	if same && !opts.Validate {
		return false, true, nil
	}
	// existing file with matching quick stats: validate in place first
	return !same, false, nil
}

// checksumPair completes comparable checksums for the source and the file
// now at destPath. A freshly copied destination is always re-hashed; an
// existing one may adopt a digest the store already holds.
func (c *Copier) checksumPair(ctx context.Context, src models.FileRecord, destPath string, freshCopy bool) (models.FileRecord, models.FileRecord, error) {
	info, err := c.fs.Stat(ctx, destPath)
	if err != nil {
		return src, models.FileRecord{}, err
	}
	dest, err := models.NewFileRecord(destPath, info.Size, models.Checksum{})
	if err != nil {
		return src, models.FileRecord{}, err
	}

	if !freshCopy && c.exch != nil {
		if dest, _, err = c.exch.ExchangeIfKnown(ctx, dest); err != nil {
			return src, dest, err
		}
	}

	if !src.HasChecksum() && c.exch != nil {
		if src, _, err = c.exch.ExchangeIfKnown(ctx, src); err != nil {
			return src, dest, err
		}
	}
	if !src.HasChecksum() {
		if src, err = c.builder.EnsureChecksum(ctx, src); err != nil {
			return src, dest, err
		}
	}

	if dest, err = c.builder.MatchAlgorithm(ctx, dest, src); err != nil {
		return src, dest, err
	}
	if !dest.HasChecksum() {
		if dest, err = c.builder.Generate(ctx, dest, src.Checksum.Algorithm); err != nil {
			return src, dest, err
		}
	}

	for _, rec := range []models.FileRecord{src, dest} {
		if err := c.store.Add(ctx, rec); err != nil {
			return src, dest, err
		}
	}
	return src, dest, nil
}

// resolveDestination turns a destination root (or explicit file path) into
// the final destination path for src.
func (c *Copier) resolveDestination(ctx context.Context, src models.FileRecord, destRoot string, addSessionSubdir bool) (string, error) {
	dest := models.NormalizeLocation(destRoot)

	isDir := true
	if exists, err := c.fs.Exists(ctx, dest); err != nil {
		return "", err
	} else if exists {
		info, err := c.fs.Stat(ctx, dest)
		if err != nil {
			return "", err
		}
		isDir = info.IsDir
	} else if path.Ext(path.Base(dest)) != "" {
		isDir = false
	}

	sessFolder := ""
	if destSess, err := models.ParseSession(dest); err == nil {
		if src.SessionID != "" && destSess.Folder() != src.SessionID {
			return "", &models.SessionConflictError{
				Destination: dest,
				Want:        src.SessionID,
				Got:         destSess.Folder(),
			}
		}
		sessFolder = destSess.Folder()
	} else if src.SessionID != "" {
		sessFolder = src.SessionID
	}

	root, relative := dest, ""
	if !isDir {
		root, relative = path.Dir(dest), path.Base(dest)
	}

	if addSessionSubdir && sessFolder != "" &&
		!strings.Contains(strings.ToLower(root), strings.ToLower(sessFolder)) {
		root = root + "/" + sessFolder
	}

	if relative == "" {
		relative = c.sourceRelative(src, sessFolder)
	}
	return models.NormalizeLocation(root + "/" + relative), nil
}

// sourceRelative picks the destination-relative path for src: probe-group
// files keep their probe directory, session files keep their
// session-relative layout, orphans contribute just their name.
func (c *Copier) sourceRelative(src models.FileRecord, sessFolder string) string {
	if src.IsOrphan() {
		return src.Name
	}

	if src.Subgroup != "" {
		// keep everything from the probe directory down
		parts := strings.Split(src.Location, "/")
		for i := len(parts) - 2; i >= 0; i-- {
			if models.SubgroupTag(parts[i]) == src.Subgroup {
				return strings.Join(parts[i:], "/")
			}
		}
	}

	sess, err := models.ParseSession(src.Location)
	if err != nil {
		return src.Name
	}
	rel := models.SessionRelative(src.Location, sess)
	return strings.TrimPrefix(rel, sessFolder+"/")
}

// TreeOutcome is the per-file result of a tree copy
type TreeOutcome struct {
	Path    string
	Outcome models.CopyOutcome
	Err     error
}

// CopyTree copies every file under folder to destRoot with the given
// options, fanning out over a bounded worker pool. Per-file failures are
// isolated; the returned slice is indexed by enumeration order.
func (c *Copier) CopyTree(ctx context.Context, folder, destRoot string, opts Options, workers int) ([]TreeOutcome, error) {
	if workers < 1 {
		workers = 1
	}
	files, err := c.fs.List(ctx, models.NormalizeLocation(folder), true)
	if err != nil {
		return nil, err
	}

	results := make([]TreeOutcome, len(files))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range files {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			out, err := c.Copy(ctx, files[i].Path, destRoot, opts)
			results[i] = TreeOutcome{Path: files[i].Path, Outcome: out, Err: err}
			if err != nil && !errors.Is(err, context.Canceled) {
				c.log.Error(ctx, "copy failed", err, logging.Fields{"source": files[i].Path})
			}
		}(i)
	}
	wg.Wait()
	return results, nil
}
