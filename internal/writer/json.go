package writer

import (
	"encoding/json"
	"io"

	"github.com/pterm/pterm"

	"logsieve/internal/parser/combined"
)

// jsonWriter serializes the full set of entries as one JSON array. The
// array-output policy makes this format incompatible with chunked flushing;
// that combination is rejected during configuration validation, so Flush
// runs exactly once, from Close.
type jsonWriter struct {
	buffer
	path   string
	out    io.WriteCloser
	logger *pterm.Logger
}

func newJSONWriter(cfg Config) *jsonWriter {
	return &jsonWriter{
		path:   cfg.Path,
		logger: cfg.Logger,
	}
}

func (w *jsonWriter) Open() error {
	out, err := openStream(w.path)
	if err != nil {
		return err
	}
	w.out = out
	return nil
}

// ShouldFlush is always false: the array is written once, at close.
func (w *jsonWriter) ShouldFlush() bool {
	return false
}

func (w *jsonWriter) Flush() error {
	entries := w.drain()
	if entries == nil {
		entries = []*combined.Entry{}
	}

	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return err
	}

	w.logger.Trace("Wrote JSON array", w.logger.Args("count", len(entries)))
	return nil
}

func (w *jsonWriter) Close() error {
	if err := w.Flush(); err != nil {
		w.out.Close()
		return err
	}
	return w.out.Close()
}
