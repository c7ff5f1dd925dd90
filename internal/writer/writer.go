package writer

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"logsieve/internal/parser/combined"
)

// Writer is a stateful sink for parsed entries. Append buffers in memory;
// Flush drains the buffer through the active backend; Close performs a final
// implicit flush and releases the backend resource. Flush is the only
// durability point: entries buffered at interruption are lost.
type Writer interface {
	Open() error
	Append(e *combined.Entry)
	ShouldFlush() bool
	Flush() error
	Close() error
}

// Config selects and parameterizes the backend. Format may carry a .gz or
// .xz suffix for the file formats, which compresses the output stream.
type Config struct {
	Format    string
	Path      string // output file; empty means stdout
	ChunkSize int    // 0 disables chunked flushing
	Database  string // connection string, sql format only
	Logger    *pterm.Logger
}

// BaseFormat strips the compression suffix off a format name.
func BaseFormat(format string) string {
	format = strings.TrimSuffix(format, ".gz")
	return strings.TrimSuffix(format, ".xz")
}

// New constructs the writer for cfg.Format. The backend is not touched
// until Open.
func New(cfg Config) (Writer, error) {
	switch BaseFormat(cfg.Format) {
	case "raw":
		return newRawWriter(cfg), nil
	case "json":
		return newJSONWriter(cfg), nil
	case "csv":
		return newCSVWriter(cfg), nil
	case "sql":
		return newSQLWriter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.Format)
	}
}

// buffer is the pending-entry state shared by all backends.
type buffer struct {
	entries   []*combined.Entry
	chunkSize int
}

func (b *buffer) Append(e *combined.Entry) {
	b.entries = append(b.entries, e)
}

func (b *buffer) ShouldFlush() bool {
	return b.chunkSize > 0 && len(b.entries) >= b.chunkSize
}

func (b *buffer) drain() []*combined.Entry {
	entries := b.entries
	b.entries = nil
	return entries
}
