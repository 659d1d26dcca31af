package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avandam/datasweep/pkg/models"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Checksum.Algorithm = "md5"
	var verr *models.ValidationError
	require.ErrorAs(t, cfg.Validate(), &verr)
	assert.Equal(t, "checksum.algorithm", verr.Field)

	cfg = Default()
	cfg.Sweep.MaxWorkers = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Output.Format = "xml"
	require.Error(t, cfg.Validate())
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
tiers:
  archive_root: /mnt/archive
  local_roots:
    - /data/acquisition
sweep:
  max_workers: 3
  recursive: false
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/archive", cfg.Tiers.ArchiveRoot)
	assert.Equal(t, []string{"/data/acquisition"}, cfg.Tiers.LocalRoots)
	assert.Equal(t, 3, cfg.Sweep.MaxWorkers)
	assert.False(t, cfg.Sweep.Recursive)

	// untouched sections keep their defaults
	assert.Equal(t, "crc32", cfg.Checksum.Algorithm)
	assert.True(t, cfg.Output.Progress)
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Tiers.ArchiveRoot = "/mnt/archive"
	cfg.Sweep.MinAgeDays = 14

	require.NoError(t, SaveToFile(cfg, path))
	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
