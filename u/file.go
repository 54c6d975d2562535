package u

import (
	"bufio"
	"io"
	"os"

	"github.com/kjk/scancache/log"
)

// MaxLineSize is the longest line ReadLines accepts. Cache entries are
// single JSON lines and scan results can be large.
const MaxLineSize = 16 * 1024 * 1024

// FileExists returns true if path exists and is a regular file
func FileExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.Mode().IsRegular()
}

// DirExists returns true if path exists and is a directory
func DirExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.IsDir()
}

// FileSize gets file size, -1 if file doesn't exist
func FileSize(path string) int64 {
	st, err := os.Lstat(path)
	if err == nil {
		return st.Size()
	}
	return -1
}

// ReadLinesFrom reads all lines from r
// line endings (\n and \r\n) are stripped
// lines longer than MaxLineSize are skipped
func ReadLinesFrom(r io.Reader) ([]string, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var res []string
	var line []byte
	tooLong := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !tooLong {
			line = append(line, chunk...)
			tooLong = len(line) > MaxLineSize
		}
		if isPrefix {
			continue
		}
		if tooLong {
			log.Verbosef("u.ReadLinesFrom: skipping line %d longer than %d bytes\n", len(res)+1, MaxLineSize)
		} else {
			res = append(res, string(line))
		}
		line = line[:0]
		tooLong = false
	}
	return res, nil
}

// ReadLines reads file as lines
func ReadLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadLinesFrom(file)
}

// CloseNoError is like io.Closer Close() but ignores an error
// use as: defer CloseNoError(f)
func CloseNoError(f io.Closer) {
	_ = f.Close()
}
