package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert"

	"github.com/kjk/scancache/cache"
)

func writeConfig(t *testing.T, s string) string {
	path := filepath.Join(t.TempDir(), "scancache.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(s), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "sucuri", filepath.Base(cfg.DataDir))
	assert.Equal(t, cache.DefaultFilePrefix, cfg.FilePrefix)
	assert.Equal(t, cache.DefaultFileExt, cfg.FileExt)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
data_dir: /tmp/scandata
file_ext: .dat
verbose: true
lifetime: 1h30m
`)
	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "/tmp/scandata", cfg.DataDir)
	assert.Equal(t, ".dat", cfg.FileExt)
	// not in the file, keeps default
	assert.Equal(t, cache.DefaultFilePrefix, cfg.FilePrefix)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 90*time.Minute, cfg.Lifetime)

	cc := cfg.CacheConfig()
	assert.Equal(t, filepath.Join("/tmp/scandata", "sucuri-integrity.dat"), cc.StorePath("integrity"))
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "data_dir: /tmp/a\n")
	t.Setenv("SCANCACHE_DATA_DIR", "/tmp/b")
	t.Setenv("SCANCACHE_VERBOSE", "1")
	t.Setenv("SCANCACHE_LIFETIME", "10m")
	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "/tmp/b", cfg.DataDir)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 10*time.Minute, cfg.Lifetime)

	t.Setenv("SCANCACHE_VERBOSE", "maybe")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "data_dir: [not, a, string\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "file_ext: php\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "data_dir: \"\"\n"))
	assert.Error(t, err)
}
