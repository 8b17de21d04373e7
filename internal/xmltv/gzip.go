// Package xmltv reads, scans, and rewrites XMLTV guide documents.
//
// Feeds arrive either as plain XML or as gzip payloads; every entry point
// sniffs the magic bytes instead of trusting file extensions. Documents are
// processed as token streams so multi-hundred-megabyte guides never need a
// full DOM in memory.
package xmltv

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
)

// gzipMagic is the two-byte header that opens every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// IsGzipped reports whether the file at path starts with the gzip magic bytes.
// A file shorter than two bytes is not gzipped.
func IsGzipped(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var header [2]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}
	return header[0] == gzipMagic[0] && header[1] == gzipMagic[1], nil
}

// OpenReader opens the file at path for reading, transparently decompressing
// a gzip payload. It returns the reader, whether the payload was gzipped, and
// an error. The caller must close the returned reader.
func OpenReader(path string) (io.ReadCloser, bool, error) {
	gzipped, err := IsGzipped(path)
	if err != nil {
		return nil, false, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}

	if !gzipped {
		return f, false, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, true, fmt.Errorf("open gzip stream %s: %w", path, err)
	}
	return &gzipReadCloser{gz: gz, file: f}, true, nil
}

// gzipReadCloser closes both the gzip stream and the underlying file.
type gzipReadCloser struct {
	gz   *gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	fileErr := g.file.Close()
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}

// newDeterministicGzipWriter wraps w in a gzip writer with a fixed header:
// zero modification time and the given member name. Identical input always
// produces identical bytes, which keeps unchanged feeds out of git diffs.
func newDeterministicGzipWriter(w io.Writer, memberName string) *gzip.Writer {
	gz := gzip.NewWriter(w)
	gz.Header.Name = memberName
	gz.Header.ModTime = time.Time{}
	return gz
}
