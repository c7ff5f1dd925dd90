package writer

import (
	"bufio"
	"io"

	"github.com/pterm/pterm"
)

// rawWriter emits the original lines verbatim, in input order.
type rawWriter struct {
	buffer
	path   string
	out    io.WriteCloser
	bw     *bufio.Writer
	logger *pterm.Logger
}

func newRawWriter(cfg Config) *rawWriter {
	return &rawWriter{
		buffer: buffer{chunkSize: cfg.ChunkSize},
		path:   cfg.Path,
		logger: cfg.Logger,
	}
}

func (w *rawWriter) Open() error {
	out, err := openStream(w.path)
	if err != nil {
		return err
	}
	w.out = out
	w.bw = bufio.NewWriter(out)
	return nil
}

func (w *rawWriter) Flush() error {
	entries := w.drain()
	for _, e := range entries {
		if _, err := w.bw.WriteString(e.Raw); err != nil {
			return err
		}
		if err := w.bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	w.logger.Trace("Flushed raw lines", w.logger.Args("count", len(entries)))
	return w.bw.Flush()
}

func (w *rawWriter) Close() error {
	if err := w.Flush(); err != nil {
		w.out.Close()
		return err
	}
	return w.out.Close()
}
