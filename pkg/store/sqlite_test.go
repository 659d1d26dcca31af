package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avandam/datasweep/pkg/models"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(t *testing.T, loc string, size int64, algo, digest string) models.FileRecord {
	t.Helper()
	rec, err := models.NewFileRecord(loc, size, models.Checksum{Algorithm: algo, Value: digest})
	require.NoError(t, err)
	return rec
}

const sessionFolder = "12345678_366122_20220425"

func TestAddIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := record(t, "/origin/"+sessionFolder+"/file.bin", 100, "crc32", "8C736521")
	require.NoError(t, s.Add(ctx, rec))
	require.NoError(t, s.Add(ctx, rec))

	got, err := s.BySession(ctx, sessionFolder)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAddReplacesStaleRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	loc := "/origin/" + sessionFolder + "/file.bin"
	require.NoError(t, s.Add(ctx, record(t, loc, 100, "crc32", "8C736521")))
	require.NoError(t, s.Add(ctx, record(t, loc, 200, "crc32", "DEADBEEF")))

	got, err := s.BySession(ctx, sessionFolder)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(200), got[0].Size)
	assert.Equal(t, "DEADBEEF", got[0].Checksum.Value)
}

func TestAddKeepsDigestsPerAlgorithm(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	loc := "/origin/" + sessionFolder + "/file.bin"
	require.NoError(t, s.Add(ctx, record(t, loc, 100, "crc32", "8C736521")))
	require.NoError(t, s.Add(ctx, record(t, loc, 100, "sha3_256",
		"76d3bc41c9f588f7fcd0d5bf4718f8f84b1c41b20882703100b9eb9413807c01")))

	got, err := s.BySession(ctx, sessionFolder)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAddSupersedesPlaceholder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	loc := "/origin/" + sessionFolder + "/file.bin"
	require.NoError(t, s.Add(ctx, record(t, loc, 100, "", "")))
	require.NoError(t, s.Add(ctx, record(t, loc, 100, "crc32", "8C736521")))

	got, err := s.BySession(ctx, sessionFolder)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].HasChecksum())
}

func TestAddRequiresLocation(t *testing.T) {
	s := openTestStore(t)
	err := s.Add(context.Background(), models.FileRecord{Size: 10})
	assert.ErrorIs(t, err, models.ErrEmptyRecord)
}

func TestMatchesClassifiesLocally(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	subject := record(t, "/origin/"+sessionFolder+"/file.bin", 100, "crc32", "8C736521")
	validCopy := record(t, "/archive/"+sessionFolder+"/file.bin", 100, "crc32", "8C736521")
	corrupt := record(t, "/staging/"+sessionFolder+"/file.bin", 100, "crc32", "DEADBEEF")
	unrelated := record(t, "/archive/"+sessionFolder+"/other.bin", 50, "crc32", "0BADF00D")

	for _, rec := range []models.FileRecord{subject, validCopy, corrupt, unrelated} {
		require.NoError(t, s.Add(ctx, rec))
	}

	valid, err := s.Matches(ctx, subject, models.ValidSet)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, validCopy.Location, valid[0].Location)

	invalid, err := s.Matches(ctx, subject, models.InvalidSet)
	require.NoError(t, err)
	require.Len(t, invalid, 1)
	assert.Equal(t, corrupt.Location, invalid[0].Location)

	selves, err := s.Matches(ctx, subject, models.SelfSet)
	require.NoError(t, err)
	require.Len(t, selves, 1)
	assert.Equal(t, subject.Location, selves[0].Location)
}

func TestMatchesDefaultExcludesIgnored(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	subject := record(t, "/origin/"+sessionFolder+"/file.bin", 100, "crc32", "8C736521")
	unrelated := record(t, "/archive/"+sessionFolder+"/other.bin", 50, "crc32", "0BADF00D")
	copyRec := record(t, "/archive/"+sessionFolder+"/file.bin", 100, "crc32", "8C736521")

	for _, rec := range []models.FileRecord{subject, unrelated, copyRec} {
		require.NoError(t, s.Add(ctx, rec))
	}

	got, err := s.Matches(ctx, subject)
	require.NoError(t, err)
	locs := make([]string, 0, len(got))
	for _, rec := range got {
		locs = append(locs, rec.Location)
	}
	assert.Contains(t, locs, copyRec.Location)
	assert.NotContains(t, locs, unrelated.Location)
}

func TestMatchesOrphanSubject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	subject := record(t, "/scratch/loose.bin", 77, "crc32", "CAFEBABE")
	copyRec := record(t, "/backup/loose.bin", 77, "crc32", "CAFEBABE")
	require.NoError(t, s.Add(ctx, copyRec))

	got, err := s.Matches(ctx, subject, models.ValidSet)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, copyRec.Location, got[0].Location)
}

func TestBySessionEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.BySession(context.Background(), "00000000_000000_00000000")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAddRejectsMalformedDigest(t *testing.T) {
	s := openTestStore(t)

	rec := record(t, "/origin/"+sessionFolder+"/file.bin", 100, "crc32", "not-a-digest")
	err := s.Add(context.Background(), rec)

	var fmtErr *models.ChecksumFormatError
	assert.ErrorAs(t, err, &fmtErr)
}

func TestReadsRejectMalformedStoredDigest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// a row corrupted outside this process: bypass Add and write it raw
	loc := "/archive/" + sessionFolder + "/file.bin"
	require.NoError(t, s.db.Create(&fileRow{
		Location:  loc,
		Name:      "file.bin",
		Size:      100,
		Algorithm: "crc32",
		Digest:    "zz",
		SessionID: sessionFolder,
	}).Error)

	var fmtErr *models.ChecksumFormatError

	_, err := s.BySession(ctx, sessionFolder)
	assert.ErrorAs(t, err, &fmtErr)

	subject := record(t, "/origin/"+sessionFolder+"/file.bin", 100, "crc32", "8C736521")
	_, err = s.Matches(ctx, subject, models.ValidSet)
	assert.ErrorAs(t, err, &fmtErr)
}
