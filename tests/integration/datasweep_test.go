package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avandam/datasweep/pkg/backup"
	"github.com/avandam/datasweep/pkg/checksum"
	"github.com/avandam/datasweep/pkg/models"
	"github.com/avandam/datasweep/pkg/storage"
	"github.com/avandam/datasweep/pkg/store"
	"github.com/avandam/datasweep/pkg/sweep"
	"github.com/avandam/datasweep/pkg/transfer"
)

const sessionFolder = "20230117_412233_20230117"

// harness wires the full toolchain over a temp directory tree: a local
// acquisition root, a staging root and an archive root sharing one store.
type harness struct {
	t       *testing.T
	ctx     context.Context
	fs      storage.Backend
	store   *store.SQLite
	builder *checksum.Builder
	locator backup.Locator
	eval    *backup.Evaluator

	localRoot   string
	stagingRoot string
	archiveRoot string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	base := t.TempDir()

	s, err := store.Open(filepath.Join(base, "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h := &harness{
		t:           t,
		ctx:         context.Background(),
		fs:          storage.NewLocal(),
		store:       s,
		builder:     checksum.NewBuilder(checksum.DefaultRegistry()),
		localRoot:   filepath.ToSlash(filepath.Join(base, "local")),
		stagingRoot: filepath.ToSlash(filepath.Join(base, "staging")),
		archiveRoot: filepath.ToSlash(filepath.Join(base, "archive")),
	}
	h.locator = backup.NewTreeLocator([]backup.TierRoot{
		{Tier: models.TierArchive, Root: h.archiveRoot},
		{Tier: models.TierStaging, Root: h.stagingRoot},
		{Tier: models.TierLocal, Root: h.localRoot},
	})
	h.eval = backup.NewEvaluator(s, h.locator, h.builder, nil)
	return h
}

func (h *harness) writeFile(root, rel, content string) string {
	h.t.Helper()
	p := filepath.Join(filepath.FromSlash(root), filepath.FromSlash(rel))
	require.NoError(h.t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(h.t, os.WriteFile(p, []byte(content), 0644))
	return filepath.ToSlash(p)
}

func (h *harness) exists(p string) bool {
	_, err := os.Stat(filepath.FromSlash(p))
	return err == nil
}

// The full lifecycle: scan the acquisition folder, copy it to the archive
// with validation, confirm status, then clear the acquisition disk.
func TestScanCopyClearLifecycle(t *testing.T) {
	h := newHarness(t)
	folder := h.localRoot + "/" + sessionFolder

	a := h.writeFile(h.localRoot, sessionFolder+"/continuous.dat", "spike train payload")
	b := h.writeFile(h.localRoot, sessionFolder+"/events/timestamps.npy", "event payload")

	// scan: every file gets a stored checksum
	scanner := sweep.NewScanner(h.fs, h.store, h.builder, nil, nil, sweep.ScanConfig{
		Recursive: true,
		Workers:   2,
	})
	scanReport, err := scanner.Scan(h.ctx, folder)
	require.NoError(t, err)
	require.Equal(t, 2, scanReport.FilesHashed)

	// copy: validated transfer of the whole session onto the archive tier
	copier := transfer.NewCopier(h.fs, h.store, h.builder, nil,
		transfer.WithExchanger(h.eval), transfer.WithRetryInterval(0))
	results, err := copier.CopyTree(h.ctx, folder, h.archiveRoot,
		transfer.Options{AddSessionSubdir: true, Validate: true}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, models.CopyResultValidated, r.Outcome.Result)
	}

	// status: both files now report a valid archive backup
	for _, p := range []string{a, b} {
		rec, err := h.builder.FromPath(h.ctx, p)
		require.NoError(t, err)
		ev, err := h.eval.Evaluate(h.ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, models.ValidOn(models.TierArchive), ev.Status)
		assert.True(t, ev.Deletable())
	}

	// clear: the acquisition copies go, the archive stays
	sweeper := sweep.NewSweeper(h.fs, h.eval, h.locator, h.builder, nil, nil, sweep.Config{
		Recursive:        true,
		Workers:          2,
		SkipDerivedCheck: true,
	})
	report, err := sweeper.Clear(h.ctx, folder)
	require.NoError(t, err)
	assert.Equal(t, 2, report.FilesDeleted)
	assert.Equal(t, int64(len("spike train payload")+len("event payload")), report.BytesFreed)
	assert.Empty(t, report.Errors)

	assert.False(t, h.exists(a))
	assert.False(t, h.exists(b))
	assert.True(t, h.exists(h.archiveRoot+"/"+sessionFolder+"/continuous.dat"))
	assert.True(t, h.exists(h.archiveRoot+"/"+sessionFolder+"/events/timestamps.npy"))
}

// A corrupted archive copy must block clearing even though the store holds
// matching checksums from the original transfer.
func TestCorruptedBackupBlocksClear(t *testing.T) {
	h := newHarness(t)
	folder := h.localRoot + "/" + sessionFolder

	src := h.writeFile(h.localRoot, sessionFolder+"/continuous.dat", "payload")

	scanner := sweep.NewScanner(h.fs, h.store, h.builder, nil, nil, sweep.ScanConfig{
		Recursive: true, Workers: 1,
	})
	_, err := scanner.Scan(h.ctx, folder)
	require.NoError(t, err)

	copier := transfer.NewCopier(h.fs, h.store, h.builder, nil,
		transfer.WithExchanger(h.eval), transfer.WithRetryInterval(0))
	out, err := copier.Copy(h.ctx, src, h.archiveRoot,
		transfer.Options{AddSessionSubdir: true, Validate: true})
	require.NoError(t, err)

	// corrupt the archive copy after validation; re-scan the archive so the
	// store reflects the corrupted state
	require.NoError(t, os.WriteFile(filepath.FromSlash(out.Destination), []byte("payl0ad"), 0644))
	_, err = scanner.Scan(h.ctx, h.archiveRoot+"/"+sessionFolder)
	require.NoError(t, err)

	sweeper := sweep.NewSweeper(h.fs, h.eval, h.locator, h.builder, nil, nil, sweep.Config{
		Recursive:        true,
		Workers:          1,
		SkipDerivedCheck: true,
	})
	report, err := sweeper.Clear(h.ctx, folder)
	require.NoError(t, err)

	assert.Zero(t, report.FilesDeleted)
	assert.True(t, h.exists(src))
}

// Copy to staging, then a second hop to the archive; the status must rank
// the archive copy above the staging one.
func TestTierPromotion(t *testing.T) {
	h := newHarness(t)
	folder := h.localRoot + "/" + sessionFolder

	src := h.writeFile(h.localRoot, sessionFolder+"/continuous.dat", "payload")

	copier := transfer.NewCopier(h.fs, h.store, h.builder, nil,
		transfer.WithExchanger(h.eval), transfer.WithRetryInterval(0))

	stagingOut, err := copier.Copy(h.ctx, src, h.stagingRoot,
		transfer.Options{AddSessionSubdir: true, Validate: true})
	require.NoError(t, err)

	rec, err := h.builder.FromPath(h.ctx, src)
	require.NoError(t, err)
	ev, err := h.eval.Evaluate(h.ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, models.ValidOn(models.TierStaging), ev.Status)

	_, err = copier.Copy(h.ctx, stagingOut.Destination, h.archiveRoot,
		transfer.Options{AddSessionSubdir: true, Validate: true})
	require.NoError(t, err)

	ev, err = h.eval.Evaluate(h.ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, models.ValidOn(models.TierArchive), ev.Status)
	best, ok := ev.Best()
	require.True(t, ok)
	assert.Equal(t, models.TierArchive, best.Tier)

	// after clearing, the staging hop can also be reclaimed against the
	// archive copy
	sweeper := sweep.NewSweeper(h.fs, h.eval, h.locator, h.builder, nil, nil, sweep.Config{
		Recursive:        true,
		Workers:          1,
		SkipDerivedCheck: true,
	})
	report, err := sweeper.Clear(h.ctx, folder)
	require.NoError(t, err)
	require.Equal(t, 1, report.FilesDeleted)

	report, err = sweeper.Clear(h.ctx, h.stagingRoot+"/"+sessionFolder)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesDeleted)
	assert.True(t, h.exists(h.archiveRoot+"/"+sessionFolder+"/continuous.dat"))
}
