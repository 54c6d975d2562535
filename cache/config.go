package cache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/kjk/scancache/u"
)

const (
	DefaultFilePrefix = "sucuri-"
	DefaultFileExt    = ".php"

	// other users can't list or write the data directory
	DefaultDirPerm  os.FileMode = 0750
	DefaultFilePerm os.FileMode = 0640
)

// LineReader reads all lines of a file at path. Missing file must be
// reported with an error satisfying os.IsNotExist.
type LineReader interface {
	ReadLines(path string) ([]string, error)
}

// LineReaderFunc adapts a function to LineReader
type LineReaderFunc func(path string) ([]string, error)

func (f LineReaderFunc) ReadLines(path string) ([]string, error) {
	return f(path)
}

// Config is shared by all stores opened with it
type Config struct {
	// directory with store files. Created on demand
	DataDir string
	// store file is DataDir/<FilePrefix><name><FileExt>
	FilePrefix string
	FileExt    string

	DirPerm  os.FileMode
	FilePerm os.FileMode

	// if true, will call file.Sync() after every append
	SyncWrite bool

	// defaults to time.Now
	Now func() time.Time
	// defaults to u.ReadLines
	Lines LineReader
}

func (c *Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Config) readLines(path string) ([]string, error) {
	if c.Lines != nil {
		return c.Lines.ReadLines(path)
	}
	return u.ReadLines(path)
}

func (c *Config) dirPerm() os.FileMode {
	if c.DirPerm != 0 {
		return c.DirPerm
	}
	return DefaultDirPerm
}

func (c *Config) filePerm() os.FileMode {
	if c.FilePerm != 0 {
		return c.FilePerm
	}
	return DefaultFilePerm
}

// StorePath returns path of the file backing store name
func (c *Config) StorePath(name string) string {
	prefix := c.FilePrefix
	if prefix == "" {
		prefix = DefaultFilePrefix
	}
	ext := c.FileExt
	if ext == "" {
		ext = DefaultFileExt
	}
	return filepath.Join(c.DataDir, prefix+name+ext)
}
