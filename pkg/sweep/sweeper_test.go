package sweep

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avandam/datasweep/pkg/backup"
	"github.com/avandam/datasweep/pkg/checksum"
	"github.com/avandam/datasweep/pkg/models"
	"github.com/avandam/datasweep/pkg/storage"
	"github.com/avandam/datasweep/pkg/store"
)

const sessionFolder = "12345678_366122_20220425"

type sweepHarness struct {
	t       *testing.T
	ctx     context.Context
	fs      storage.Backend
	store   *store.SQLite
	builder *checksum.Builder
	locator backup.Locator
	eval    *backup.Evaluator

	localRoot   string
	archiveRoot string
}

func newSweepHarness(t *testing.T) *sweepHarness {
	t.Helper()
	base := t.TempDir()

	s, err := store.Open(filepath.Join(base, "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h := &sweepHarness{
		t:           t,
		ctx:         context.Background(),
		fs:          storage.NewLocal(),
		store:       s,
		builder:     checksum.NewBuilder(checksum.DefaultRegistry()),
		localRoot:   filepath.ToSlash(filepath.Join(base, "local")),
		archiveRoot: filepath.ToSlash(filepath.Join(base, "archive")),
	}
	h.locator = backup.NewTreeLocator([]backup.TierRoot{
		{Tier: models.TierArchive, Root: h.archiveRoot},
		{Tier: models.TierLocal, Root: h.localRoot},
	})
	h.eval = backup.NewEvaluator(s, h.locator, h.builder, nil)
	return h
}

func (h *sweepHarness) sweeper(cfg Config) *Sweeper {
	return NewSweeper(h.fs, h.eval, h.locator, h.builder, nil, nil, cfg)
}

func (h *sweepHarness) writeFile(root, rel, content string) string {
	h.t.Helper()
	p := filepath.Join(filepath.FromSlash(root), filepath.FromSlash(rel))
	require.NoError(h.t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(h.t, os.WriteFile(p, []byte(content), 0644))
	return filepath.ToSlash(p)
}

// record hashes the file and stores it, the way a prior scan would have
func (h *sweepHarness) record(path string) {
	h.t.Helper()
	rec, err := h.builder.FromPath(h.ctx, path)
	require.NoError(h.t, err)
	require.NoError(h.t, h.store.Add(h.ctx, rec))
}

func TestClearDeletesOnlyValidatedBackups(t *testing.T) {
	h := newSweepHarness(t)

	// a: archive copy with matching checksum, deletable
	a := h.writeFile(h.localRoot, sessionFolder+"/a.dat", "alpha")
	h.record(a)
	h.record(h.writeFile(h.archiveRoot, sessionFolder+"/a.dat", "alpha"))

	// b: archive copy same size, different bytes; only manual review can
	// settle it
	b := h.writeFile(h.localRoot, sessionFolder+"/b.dat", "betaa")
	h.record(b)
	h.record(h.writeFile(h.archiveRoot, sessionFolder+"/b.dat", "betab"))

	// c: no backup anywhere
	c := h.writeFile(h.localRoot, sessionFolder+"/c.dat", "gamma")
	h.record(c)

	report, err := h.sweeper(Config{Recursive: true, Workers: 2, SkipDerivedCheck: true}).
		Clear(h.ctx, h.localRoot+"/"+sessionFolder)
	require.NoError(t, err)

	assert.Equal(t, 3, report.FilesScanned)
	assert.Equal(t, 1, report.FilesDeleted)
	assert.Equal(t, 2, report.FilesSkipped)
	assert.Equal(t, int64(len("alpha")), report.BytesFreed)
	assert.Empty(t, report.Errors)
	assert.NotEmpty(t, report.OperationID)

	_, statErr := os.Stat(filepath.FromSlash(a))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.FromSlash(b))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.FromSlash(c))
	assert.NoError(t, statErr)
}

func TestClearSettlesUnconfirmedBackup(t *testing.T) {
	h := newSweepHarness(t)

	// the archive copy is known to the store but was never hashed
	src := h.writeFile(h.localRoot, sessionFolder+"/d.dat", "delta")
	h.record(src)
	backupPath := h.writeFile(h.archiveRoot, sessionFolder+"/d.dat", "delta")
	rec, err := models.NewFileRecord(backupPath, int64(len("delta")), models.Checksum{})
	require.NoError(t, err)
	require.NoError(t, h.store.Add(h.ctx, rec))

	report, err := h.sweeper(Config{Recursive: true, Workers: 1, SkipDerivedCheck: true}).
		Clear(h.ctx, h.localRoot+"/"+sessionFolder)
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesDeleted)
	_, statErr := os.Stat(filepath.FromSlash(src))
	assert.True(t, os.IsNotExist(statErr))
}

func TestClearRequiresBackupOnDisk(t *testing.T) {
	h := newSweepHarness(t)

	src := h.writeFile(h.localRoot, sessionFolder+"/e.dat", "echo")
	h.record(src)
	backupPath := h.writeFile(h.archiveRoot, sessionFolder+"/e.dat", "echo")
	h.record(backupPath)
	// the store still says valid, but the archive copy is gone
	require.NoError(t, os.Remove(filepath.FromSlash(backupPath)))

	report, err := h.sweeper(Config{Recursive: true, Workers: 1, SkipDerivedCheck: true}).
		Clear(h.ctx, h.localRoot+"/"+sessionFolder)
	require.NoError(t, err)

	assert.Zero(t, report.FilesDeleted)
	_, statErr := os.Stat(filepath.FromSlash(src))
	assert.NoError(t, statErr)
}

func TestClearDryRun(t *testing.T) {
	h := newSweepHarness(t)

	src := h.writeFile(h.localRoot, sessionFolder+"/f.dat", "foxtrot")
	h.record(src)
	h.record(h.writeFile(h.archiveRoot, sessionFolder+"/f.dat", "foxtrot"))

	report, err := h.sweeper(Config{Recursive: true, Workers: 1, SkipDerivedCheck: true, DryRun: true}).
		Clear(h.ctx, h.localRoot+"/"+sessionFolder)
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesDeleted)
	assert.Equal(t, int64(len("foxtrot")), report.BytesFreed)
	_, statErr := os.Stat(filepath.FromSlash(src))
	assert.NoError(t, statErr)
}

func TestClearSkipsRecentSessions(t *testing.T) {
	h := newSweepHarness(t)
	todaySession := "12345678_366122_" + time.Now().Format("20060102")

	src := h.writeFile(h.localRoot, todaySession+"/g.dat", "golf")
	h.record(src)
	h.record(h.writeFile(h.archiveRoot, todaySession+"/g.dat", "golf"))

	report, err := h.sweeper(Config{Recursive: true, Workers: 1, SkipDerivedCheck: true, MinAgeDays: 7}).
		Clear(h.ctx, h.localRoot+"/"+todaySession)
	require.NoError(t, err)

	assert.Zero(t, report.FilesDeleted)
	_, statErr := os.Stat(filepath.FromSlash(src))
	assert.NoError(t, statErr)
}

func TestClearSkipsOrphans(t *testing.T) {
	h := newSweepHarness(t)

	orphan := h.writeFile(h.localRoot, "notes/readme.txt", "keep me")
	h.record(orphan)

	report, err := h.sweeper(Config{Recursive: true, Workers: 1, SkipDerivedCheck: true}).
		Clear(h.ctx, h.localRoot+"/notes")
	require.NoError(t, err)

	assert.Zero(t, report.FilesDeleted)
	assert.Equal(t, 1, report.FilesSkipped)
	_, statErr := os.Stat(filepath.FromSlash(orphan))
	assert.NoError(t, statErr)
}

func TestClearRemovesEmptySubfolders(t *testing.T) {
	h := newSweepHarness(t)

	src := h.writeFile(h.localRoot, sessionFolder+"/sub/h.dat", "hotel")
	h.record(src)
	h.record(h.writeFile(h.archiveRoot, sessionFolder+"/sub/h.dat", "hotel"))

	folder := h.localRoot + "/" + sessionFolder
	report, err := h.sweeper(Config{Recursive: true, Workers: 1, SkipDerivedCheck: true}).
		Clear(h.ctx, folder)
	require.NoError(t, err)
	require.Equal(t, 1, report.FilesDeleted)

	_, statErr := os.Stat(filepath.Join(filepath.FromSlash(folder), "sub"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestClearHonorsFilters(t *testing.T) {
	h := newSweepHarness(t)

	dat := h.writeFile(h.localRoot, sessionFolder+"/i.dat", "india")
	h.record(dat)
	h.record(h.writeFile(h.archiveRoot, sessionFolder+"/i.dat", "india"))
	log := h.writeFile(h.localRoot, sessionFolder+"/i.log", "india")
	h.record(log)
	h.record(h.writeFile(h.archiveRoot, sessionFolder+"/i.log", "india"))

	report, err := h.sweeper(Config{
		Recursive:        true,
		Workers:          1,
		SkipDerivedCheck: true,
		Exclude:          []string{"*.log"},
	}).Clear(h.ctx, h.localRoot+"/"+sessionFolder)
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesScanned)
	assert.Equal(t, 1, report.FilesDeleted)
	_, statErr := os.Stat(filepath.FromSlash(dat))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.FromSlash(log))
	assert.NoError(t, statErr)
}

func TestClearRefusesRawCaptureWithoutDerivedData(t *testing.T) {
	h := newSweepHarness(t)
	rawFolder := h.localRoot + "/" + sessionFolder + "_probeABC"

	src := h.writeFile(h.localRoot, sessionFolder+"_probeABC/continuous.dat", "raw")
	h.record(src)
	h.record(h.writeFile(h.archiveRoot, sessionFolder+"_probeABC/continuous.dat", "raw"))

	_, err := h.sweeper(Config{Recursive: true, Workers: 1}).Clear(h.ctx, rawFolder)
	require.ErrorIs(t, err, ErrNoDerivedData)
	_, statErr := os.Stat(filepath.FromSlash(src))
	assert.NoError(t, statErr)
}

func TestClearAllowsRawCaptureWithSortedResults(t *testing.T) {
	h := newSweepHarness(t)
	rawFolder := h.localRoot + "/" + sessionFolder + "_probeABC"

	src := h.writeFile(h.localRoot, sessionFolder+"_probeABC/continuous.dat", "raw")
	h.record(src)
	h.record(h.writeFile(h.archiveRoot, sessionFolder+"_probeABC/continuous.dat", "raw"))

	// one sorted probe folder at the archive session directory is enough
	sorted := filepath.Join(filepath.FromSlash(h.archiveRoot), sessionFolder, sessionFolder+"_probeA_sorted")
	require.NoError(t, os.MkdirAll(sorted, 0755))

	report, err := h.sweeper(Config{Recursive: true, Workers: 1}).Clear(h.ctx, rawFolder)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesDeleted)
}

func TestClearGuardBypass(t *testing.T) {
	h := newSweepHarness(t)
	rawFolder := h.localRoot + "/" + sessionFolder + "_probeABC"

	src := h.writeFile(h.localRoot, sessionFolder+"_probeABC/continuous.dat", "raw")
	h.record(src)
	h.record(h.writeFile(h.archiveRoot, sessionFolder+"_probeABC/continuous.dat", "raw"))

	report, err := h.sweeper(Config{Recursive: true, Workers: 1, SkipDerivedCheck: true}).
		Clear(h.ctx, rawFolder)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesDeleted)
}
