package checksum

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/avandam/datasweep/pkg/models"
)

func TestFromPathSmallFileGetsChecksum(t *testing.T) {
	b := NewBuilder(DefaultRegistry())
	path := writeTempFile(t, []byte("foo"))

	rec, err := b.FromPath(context.Background(), path)
	if err != nil {
		t.Fatalf("FromPath failed: %v", err)
	}
	if !rec.HasChecksum() {
		t.Fatal("expected checksum on small file")
	}
	if rec.Checksum.Algorithm != AlgorithmCRC32 {
		t.Errorf("algorithm = %s", rec.Checksum.Algorithm)
	}
	if rec.Checksum.Value != "8C736521" {
		t.Errorf("value = %s", rec.Checksum.Value)
	}
	if rec.Size != 3 {
		t.Errorf("size = %d", rec.Size)
	}
}

func TestFromPathAboveThresholdSkipsChecksum(t *testing.T) {
	b := NewBuilder(DefaultRegistry(), WithAutoThreshold(2))
	path := writeTempFile(t, []byte("foo"))

	rec, err := b.FromPath(context.Background(), path)
	if err != nil {
		t.Fatalf("FromPath failed: %v", err)
	}
	if rec.HasChecksum() {
		t.Fatal("expected no checksum above threshold")
	}
}

func TestFromPathMissingFile(t *testing.T) {
	b := NewBuilder(DefaultRegistry())
	_, err := b.FromPath(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestFromPathDirectory(t *testing.T) {
	b := NewBuilder(DefaultRegistry())
	if _, err := b.FromPath(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestEnsureChecksumKeepsExisting(t *testing.T) {
	b := NewBuilder(DefaultRegistry())
	rec, err := models.NewFileRecord("/gone/file.bin", 3,
		models.Checksum{Algorithm: AlgorithmCRC32, Value: "DEADBEEF"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	// The path does not exist; Ensure must not touch the filesystem when a
	// checksum is already present.
	got, err := b.EnsureChecksum(context.Background(), rec)
	if err != nil {
		t.Fatalf("EnsureChecksum failed: %v", err)
	}
	if got.Checksum.Value != "DEADBEEF" {
		t.Errorf("checksum replaced: %s", got.Checksum.Value)
	}
}

func TestEnsureCheapChecksumUsesCRC32(t *testing.T) {
	b := NewBuilder(DefaultRegistry(), WithAlgorithm(AlgorithmSHA3256))
	path := writeTempFile(t, []byte("foo"))
	rec, err := models.NewFileRecord(path, 3, models.Checksum{})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := b.EnsureCheapChecksum(context.Background(), rec)
	if err != nil {
		t.Fatalf("EnsureCheapChecksum failed: %v", err)
	}
	if got.Checksum.Algorithm != AlgorithmCRC32 {
		t.Errorf("algorithm = %s, want crc32", got.Checksum.Algorithm)
	}
}

func TestMatchAlgorithmRegenerates(t *testing.T) {
	b := NewBuilder(DefaultRegistry())
	path := writeTempFile(t, []byte("foo"))

	rec, err := models.NewFileRecord(path, 3,
		models.Checksum{Algorithm: AlgorithmCRC32, Value: "8C736521"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	other, err := models.NewFileRecord("/elsewhere/file.bin", 3,
		models.Checksum{Algorithm: AlgorithmSHA256, Value: "2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := b.MatchAlgorithm(context.Background(), rec, other)
	if err != nil {
		t.Fatalf("MatchAlgorithm failed: %v", err)
	}
	if got.Checksum.Algorithm != AlgorithmSHA256 {
		t.Errorf("algorithm = %s, want sha256", got.Checksum.Algorithm)
	}
	if got.Checksum.Value != other.Checksum.Value {
		t.Errorf("digest mismatch after regeneration")
	}

	// Already comparable: no work
	same, err := b.MatchAlgorithm(context.Background(), got, other)
	if err != nil {
		t.Fatalf("MatchAlgorithm failed: %v", err)
	}
	if same != got {
		t.Error("comparable records should pass through unchanged")
	}
}
