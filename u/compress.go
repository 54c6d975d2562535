package u

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// implement io.ReadCloser over os.File wrapped with io.Reader.
// io.Closer goes to os.File, io.Reader goes to wrapping reader
type readerWrappedFile struct {
	f     *os.File
	r     io.Reader
	close func()
}

func (rc *readerWrappedFile) Close() error {
	if rc.close != nil {
		rc.close()
	}
	return rc.f.Close()
}

func (rc *readerWrappedFile) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

// writerWrappedFile is io.WriteCloser where Close() first closes
// the compressor and then the file
type writerWrappedFile struct {
	path string
	f    *os.File
	w    io.WriteCloser
}

func (wc *writerWrappedFile) Write(p []byte) (int, error) {
	return wc.w.Write(p)
}

func (wc *writerWrappedFile) Close() error {
	err := wc.w.Close()
	err2 := wc.f.Close()
	if err = getErr(err, err2); err != nil {
		os.Remove(wc.path)
	}
	return err
}

// CompressionExt returns normalized compression kind of path
// based on its extension: "gz", "zstd", "br" or "" for uncompressed
func CompressionExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gz":
		return "gz"
	case ".zst", ".zstd":
		return "zstd"
	case ".br":
		return "br"
	}
	return ""
}

// OpenFileMaybeCompressed opens a file that might be compressed with gzip
// or zstd or brotli
func OpenFileMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch CompressionExt(path) {
	case "gz":
		r, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readerWrappedFile{f: f, r: r}, nil
	case "zstd":
		r, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readerWrappedFile{f: f, r: r, close: r.Close}, nil
	case "br":
		return &readerWrappedFile{f: f, r: brotli.NewReader(f)}, nil
	}
	return f, nil
}

func zstdNewWriter(dst io.Writer) (*zstd.Encoder, error) {
	// zstd.SpeedBestCompression is much slower and not much better
	return zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

// CreateFileMaybeCompressed creates a file that is compressed according
// to its extension (.gz, .zst, .br). Close() must be called and its error
// checked. On error the partially written file is removed.
func CreateFileMaybeCompressed(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	var w io.WriteCloser
	switch CompressionExt(path) {
	case "gz":
		w, err = gzip.NewWriterLevel(f, gzip.BestCompression)
	case "zstd":
		w, err = zstdNewWriter(f)
	case "br":
		w = brotli.NewWriterLevel(f, brotli.DefaultCompression)
	default:
		return f, nil
	}
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return &writerWrappedFile{path: path, f: f, w: w}, nil
}
