package checksum

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/avandam/datasweep/pkg/models"
)

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func TestProviderSelfTests(t *testing.T) {
	for _, p := range []Provider{NewCRC32(), NewSHA256(), NewSHA3256()} {
		if err := p.SelfTest(); err != nil {
			t.Errorf("%s: self-test failed: %v", p.Name(), err)
		}
	}
}

func TestComputeKnownDigests(t *testing.T) {
	tests := []struct {
		provider Provider
		want     string
	}{
		{NewCRC32(), "8C736521"},
		{NewSHA256(), "2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae"},
		{NewSHA3256(), "76d3bc41c9f588f7fcd0d5bf4718f8f84b1c41b20882703100b9eb9413807c01"},
	}

	path := writeTempFile(t, []byte("foo"))
	for _, tt := range tests {
		got, err := tt.provider.Compute(context.Background(), path)
		if err != nil {
			t.Fatalf("%s: compute failed: %v", tt.provider.Name(), err)
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.provider.Name(), got, tt.want)
		}
	}
}

func TestComputeLargerThanChunk(t *testing.T) {
	// Content spanning multiple read chunks must digest identically to a
	// single-shot hash; exercise the chunk loop with an uneven tail.
	content := make([]byte, ChunkSize*2+137)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := writeTempFile(t, content)

	p := NewSHA256()
	first, err := p.Compute(context.Background(), path)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	second, err := p.Compute(context.Background(), path)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if first != second {
		t.Errorf("digest not stable: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("unexpected digest length: %d", len(first))
	}
}

func TestComputeMissingFile(t *testing.T) {
	_, err := NewCRC32().Compute(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestComputeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeTempFile(t, []byte("foo"))
	_, err := NewCRC32().Compute(ctx, path)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestValidFormat(t *testing.T) {
	tests := []struct {
		provider Provider
		value    string
		want     bool
	}{
		{NewCRC32(), "8C736521", true},
		{NewCRC32(), "8c736521", true},
		{NewCRC32(), "8C73652", false},
		{NewCRC32(), "8C7365212", false},
		{NewCRC32(), "8C73652G", false},
		{NewSHA256(), strings.Repeat("a", 64), true},
		{NewSHA256(), strings.Repeat("A", 64), true},
		{NewSHA256(), strings.Repeat("a", 63), false},
		{NewSHA256(), strings.Repeat("z", 64), false},
		{NewSHA3256(), strings.Repeat("0", 64), true},
		{NewSHA3256(), "", false},
	}

	for _, tt := range tests {
		if got := tt.provider.ValidFormat(tt.value); got != tt.want {
			t.Errorf("%s.ValidFormat(%q) = %v, want %v", tt.provider.Name(), tt.value, got, tt.want)
		}
	}
}

func TestRegistryGet(t *testing.T) {
	r := DefaultRegistry()

	p, err := r.Get(AlgorithmSHA3256)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if p.Name() != AlgorithmSHA3256 {
		t.Errorf("got provider %s", p.Name())
	}

	if _, err := r.Get("md5"); err == nil {
		t.Fatal("expected error for unregistered algorithm")
	}
}

func TestRegistryCheckFormat(t *testing.T) {
	r := DefaultRegistry()

	if err := r.CheckFormat(AlgorithmCRC32, "8C736521"); err != nil {
		t.Errorf("valid digest rejected: %v", err)
	}
	if err := r.CheckFormat("", ""); err != nil {
		t.Errorf("unset digest rejected: %v", err)
	}

	var fmtErr *models.ChecksumFormatError
	if err := r.CheckFormat(AlgorithmCRC32, "not-a-digest"); !errors.As(err, &fmtErr) {
		t.Errorf("expected ChecksumFormatError, got %v", err)
	}
	if err := r.CheckFormat("", "8C736521"); !errors.As(err, &fmtErr) {
		t.Errorf("expected ChecksumFormatError for missing algorithm, got %v", err)
	}
	if err := r.CheckFormat("md5", "8C736521"); err == nil {
		t.Error("expected error for unregistered algorithm")
	}
}

func TestRegistryCheapest(t *testing.T) {
	p, err := DefaultRegistry().Cheapest()
	if err != nil {
		t.Fatalf("cheapest failed: %v", err)
	}
	if p.Name() != AlgorithmCRC32 {
		t.Errorf("cheapest = %s, want %s", p.Name(), AlgorithmCRC32)
	}
}
