// Package config loads scancache settings from a YAML file and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjk/scancache/cache"
)

const (
	// EnvPrefix is the prefix for all environment variables
	EnvPrefix = "SCANCACHE_"
	// DefaultConfigFile is looked up in the current directory
	DefaultConfigFile = "scancache.yaml"
)

// Config is the on-disk configuration
type Config struct {
	// directory with store files
	DataDir    string `yaml:"data_dir"`
	FilePrefix string `yaml:"file_prefix"`
	FileExt    string `yaml:"file_ext"`
	// if empty, logs only go to stdout
	LogDir    string `yaml:"log_dir"`
	Verbose   bool   `yaml:"verbose"`
	SyncWrite bool   `yaml:"sync_write"`
	// lifetime used by reads when not given explicitly, 0 means no expiration
	Lifetime time.Duration `yaml:"lifetime"`
}

// DefaultConfig returns the configuration used when no config file is present
func DefaultConfig() *Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return &Config{
		DataDir:    filepath.Join(dir, "sucuri"),
		FilePrefix: cache.DefaultFilePrefix,
		FileExt:    cache.DefaultFileExt,
	}
}

// Load loads configuration with precedence:
// 1. defaults
// 2. config file (path, or ./scancache.yaml if path is "" and it exists)
// 3. environment variables (SCANCACHE_*)
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" && fileExists(DefaultConfigFile) {
		path = DefaultConfigFile
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

func loadFile(cfg *Config, path string) error {
	d, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	// fields missing in the file keep their defaults
	if err := yaml.Unmarshal(d, cfg); err != nil {
		return fmt.Errorf("parsing config file '%s': %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv(EnvPrefix + "VERBOSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sVERBOSE: %w", EnvPrefix, err)
		}
		cfg.Verbose = b
	}
	if v := os.Getenv(EnvPrefix + "LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sLIFETIME: %w", EnvPrefix, err)
		}
		cfg.Lifetime = d
	}
	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is not set")
	}
	if c.Lifetime < 0 {
		return fmt.Errorf("lifetime must not be negative, got %s", c.Lifetime)
	}
	if c.FileExt != "" && c.FileExt[0] != '.' {
		return fmt.Errorf("file_ext must start with '.', got '%s'", c.FileExt)
	}
	return nil
}

// CacheConfig returns configuration for opening cache stores
func (c *Config) CacheConfig() *cache.Config {
	return &cache.Config{
		DataDir:    c.DataDir,
		FilePrefix: c.FilePrefix,
		FileExt:    c.FileExt,
		SyncWrite:  c.SyncWrite,
	}
}
