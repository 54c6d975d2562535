package cache

import (
	"os"
	"path/filepath"
)

// appendToFile appends data to an existing file.
// It doesn't create the file so that an append after Flush() doesn't
// produce a store file without a header.
// If the file ends with a partial line (e.g. an interrupted write), data
// starts on a new line.
func appendToFile(path string, data []byte, sync bool) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_RDWR, 0)
	if err != nil {
		return err
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	if size := st.Size(); size > 0 {
		last := []byte{0}
		if _, err = file.ReadAt(last, size-1); err != nil {
			file.Close()
			return err
		}
		if last[0] != '\n' {
			data = append([]byte{'\n'}, data...)
		}
	}
	_, err = file.Write(data)
	if err != nil {
		file.Close()
		return err
	}
	if sync {
		if err = file.Sync(); err != nil {
			file.Close()
			return err
		}
	}
	return file.Close()
}

// writeFileAtomic writes data to a temporary file in the same directory
// and renames it over path. If anything fails, path is left untouched
// and the temporary file is removed.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir, name := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(tmpPath)
		}
	}()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(perm)
	}
	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmp.Sync()
	errClose := tmp.Close()
	if err == nil {
		err = errSync
	}
	if err == nil {
		err = errClose
	}
	if err != nil {
		return err
	}

	// this will over-write path (if it exists)
	if err = os.Rename(tmpPath, path); err != nil {
		return err
	}
	didRename = true

	// sync directory after rename. errors ignored, a nice have
	if fdir, _ := os.Open(filepath.Clean(dir)); fdir != nil {
		_ = fdir.Sync()
		_ = fdir.Close()
	}
	return nil
}
