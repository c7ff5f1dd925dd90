package writer

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
)

// openStream opens the output destination for the file formats. An empty
// path selects stdout. A .gz or .xz path suffix wraps the stream in the
// matching compressor; compression is a transparent decorator, the backends
// only ever see a byte stream.
func openStream(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		return &stackedCloser{w: gzip.NewWriter(f), under: f}, nil
	case strings.HasSuffix(path, ".xz"):
		xw, err := xz.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open xz output %s: %w", path, err)
		}
		return &stackedCloser{w: xw, under: f}, nil
	default:
		return f, nil
	}
}

// nopCloser keeps Close from closing stdout.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// stackedCloser closes a compressor before the file underneath it.
type stackedCloser struct {
	w     io.WriteCloser
	under io.Closer
}

func (s *stackedCloser) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *stackedCloser) Close() error {
	err := s.w.Close()
	if cerr := s.under.Close(); err == nil {
		err = cerr
	}
	return err
}
