package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ModeSerial, cfg.Indexer.Mode)
	assert.Equal(t, 5*time.Second, cfg.Indexer.Rate)
	assert.Equal(t, ":7700", cfg.Server.Addr)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
index:
  root: /data/index
queue:
  path: /data/queue.db
indexer:
  mode: parallel
  rate: 1s
  workers: 8
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/index", cfg.Index.Root)
	assert.Equal(t, ModeParallel, cfg.Indexer.Mode)
	assert.Equal(t, time.Second, cfg.Indexer.Rate)
	assert.Equal(t, 8, cfg.Indexer.Workers)
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsUnknownMode(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Indexer.Mode = "batch"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsEmptyRoot(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Index.Root = ""
	assert.Error(t, cfg.Validate())
}
