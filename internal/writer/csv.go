package writer

import (
	"encoding/csv"
	"io"

	"github.com/pterm/pterm"

	"logsieve/internal/parser/combined"
)

// csvWriter emits one row per entry and the field-name header exactly once,
// on the first flush.
type csvWriter struct {
	buffer
	path        string
	out         io.WriteCloser
	cw          *csv.Writer
	wroteHeader bool
	logger      *pterm.Logger
}

func newCSVWriter(cfg Config) *csvWriter {
	return &csvWriter{
		buffer: buffer{chunkSize: cfg.ChunkSize},
		path:   cfg.Path,
		logger: cfg.Logger,
	}
}

func (w *csvWriter) Open() error {
	out, err := openStream(w.path)
	if err != nil {
		return err
	}
	w.out = out
	w.cw = csv.NewWriter(out)
	return nil
}

func (w *csvWriter) Flush() error {
	if !w.wroteHeader {
		if err := w.cw.Write(combined.FieldNames()); err != nil {
			return err
		}
		w.wroteHeader = true
	}

	entries := w.drain()
	for _, e := range entries {
		if err := w.cw.Write(e.CSVRecord()); err != nil {
			return err
		}
	}

	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		return err
	}

	w.logger.Trace("Flushed CSV rows", w.logger.Args("count", len(entries)))
	return nil
}

func (w *csvWriter) Close() error {
	if err := w.Flush(); err != nil {
		w.out.Close()
		return err
	}
	return w.out.Close()
}
