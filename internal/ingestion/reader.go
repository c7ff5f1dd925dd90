package ingestion

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pterm/pterm"
	"github.com/ulikunitz/xz"
)

// ExpandPatterns expands the input path patterns (doublestar globs) into
// concrete file paths, preserving pattern order. It is an error when nothing
// matches at all.
func ExpandPatterns(patterns []string, logger *pterm.Logger) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expand pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			logger.Warn("Pattern matched no files", logger.Args("pattern", pattern))
			continue
		}
		paths = append(paths, matches...)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files matched %v", patterns)
	}
	return paths, nil
}

// OpenInput opens an input file as a plain byte stream. Gzip and xz
// compression are detected by file extension and unwrapped transparently.
func OpenInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip input %s: %w", path, err)
		}
		return &decoratedReader{r: gr, closers: []io.Closer{gr, f}}, nil
	case strings.HasSuffix(path, ".xz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open xz input %s: %w", path, err)
		}
		return &decoratedReader{r: xr, closers: []io.Closer{f}}, nil
	default:
		return f, nil
	}
}

// decoratedReader closes decompression layers before the file beneath them.
type decoratedReader struct {
	r       io.Reader
	closers []io.Closer
}

func (d *decoratedReader) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

func (d *decoratedReader) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); first == nil {
			first = err
		}
	}
	return first
}
