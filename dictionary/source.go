package dictionary

import (
	"bufio"
	"context"
	"io"
	"os"
)

const maxLineSize = 1024 * 1024

// LineReader yields dictionary lines in order. It follows bufio.Scanner:
// Scan advances, Text returns the current line and Err reports the first
// non-EOF error. Close releases the underlying resource.
type LineReader interface {
	Scan() bool
	Text() string
	Err() error
	Close() error
}

// Source opens a fresh LineReader over a dictionary. Name identifies the
// source in errors and logs.
type Source interface {
	Name() string
	Open(ctx context.Context) (LineReader, error)
}

type scannerReader struct {
	*bufio.Scanner
	closer io.Closer
}

func newScannerReader(r io.Reader, c io.Closer) *scannerReader {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineSize)
	return &scannerReader{Scanner: scanner, closer: c}
}

func (s *scannerReader) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// FileSource reads a dictionary file from disk.
type FileSource struct {
	Path string
}

// NewFileSource returns a Source for the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string {
	return s.Path
}

func (s *FileSource) Open(_ context.Context) (LineReader, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	return newScannerReader(file, file), nil
}

// ReaderSource reads a dictionary from an io.Reader. The reader is consumed
// by the first Open; it is closed afterwards if it implements io.Closer.
type ReaderSource struct {
	name string
	r    io.Reader
}

// NewReaderSource returns a Source named name over r.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{name: name, r: r}
}

func (s *ReaderSource) Name() string {
	return s.name
}

func (s *ReaderSource) Open(_ context.Context) (LineReader, error) {
	c, _ := s.r.(io.Closer)
	return newScannerReader(s.r, c), nil
}
