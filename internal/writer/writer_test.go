package writer

import (
	"compress/gzip"
	"crypto/sha1"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"

	"logsieve/internal/parser/combined"
)

func testLogger() *pterm.Logger {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	return logger.WithWriter(io.Discard)
}

func testEntry(n int) *combined.Entry {
	raw := fmt.Sprintf(`203.0.113.%d - - [10/Oct/2023:13:55:%02d +0000] "GET /page/%d HTTP/1.1" 200 1024 "-" "curl/8.0"`, n, n, n)
	status := 200
	size := int64(1024)
	return &combined.Entry{
		SHA1:           fmt.Sprintf("%x", sha1.Sum([]byte(raw))),
		RemoteHost:     fmt.Sprintf("203.0.113.%d", n),
		Time:           time.Date(2023, 10, 10, 13, 55, n, 0, time.UTC),
		RequestMethod:  "GET",
		RequestPath:    fmt.Sprintf("/page/%d", n),
		RequestVersion: "1.1",
		Status:         &status,
		Size:           &size,
		UserAgent:      "curl/8.0",
		Raw:            raw,
	}
}

// pump feeds entries through the append/flush cycle the way the ingestion
// loop does, returning the number of threshold-triggered flushes.
func pump(t *testing.T, w Writer, entries []*combined.Entry) int {
	t.Helper()

	flushes := 0
	for _, e := range entries {
		w.Append(e)
		if w.ShouldFlush() {
			if err := w.Flush(); err != nil {
				t.Fatalf("Flush() error = %v", err)
			}
			flushes++
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return flushes
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New(Config{Format: "xml", Logger: testLogger()}); err == nil {
		t.Fatal("Expected error for unknown format")
	}
}

func TestBaseFormat(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"raw", "raw"},
		{"csv.gz", "csv"},
		{"json.xz", "json"},
		{"sql", "sql"},
	}
	for _, tt := range tests {
		if got := BaseFormat(tt.format); got != tt.want {
			t.Errorf("BaseFormat(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestRawWriter_VerbatimOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.raw")
	w, err := New(Config{Format: "raw", Path: path, ChunkSize: 2, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	entries := []*combined.Entry{testEntry(1), testEntry(2), testEntry(3)}
	pump(t, w, entries)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != len(entries) {
		t.Fatalf("Expected %d lines, got %d", len(entries), len(lines))
	}
	for i, e := range entries {
		if lines[i] != e.Raw {
			t.Errorf("Line %d = %q, want %q", i, lines[i], e.Raw)
		}
	}
}

func TestCSVWriter_ChunkedFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := New(Config{Format: "csv", Path: path, ChunkSize: 2, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	entries := []*combined.Entry{testEntry(1), testEntry(2), testEntry(3), testEntry(4), testEntry(5)}
	flushes := pump(t, w, entries)
	if flushes != 2 {
		t.Errorf("Expected 2 threshold flushes before close, got %d", flushes)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != len(entries)+1 {
		t.Fatalf("Expected header plus %d rows, got %d", len(entries), len(rows))
	}

	header := combined.FieldNames()
	for i, name := range header {
		if rows[0][i] != name {
			t.Errorf("Header column %d = %q, want %q", i, rows[0][i], name)
		}
	}
	// The header must not repeat at chunk boundaries.
	for i, row := range rows[1:] {
		if row[0] == "sha1" {
			t.Errorf("Row %d repeats the header", i+1)
		}
		if row[0] != entries[i].SHA1 {
			t.Errorf("Row %d sha1 = %q, want %q", i+1, row[0], entries[i].SHA1)
		}
	}
}

func TestJSONWriter_ArrayAtClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w, err := New(Config{Format: "json", Path: path, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	entries := []*combined.Entry{testEntry(1), testEntry(2), testEntry(3)}
	if flushes := pump(t, w, entries); flushes != 0 {
		t.Errorf("Expected no threshold flushes for JSON, got %d", flushes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var decoded []combined.Entry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(decoded))
	}
	for i, e := range entries {
		if decoded[i].SHA1 != e.SHA1 {
			t.Errorf("Entry %d sha1 = %q, want %q", i, decoded[i].SHA1, e.SHA1)
		}
	}
}

func TestJSONWriter_EmptyInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	w, err := New(Config{Format: "json", Path: path, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("Expected empty array, got %q", string(data))
	}
}

func TestRawWriter_GzipStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.raw.gz")
	w, err := New(Config{Format: "raw.gz", Path: path, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	entries := []*combined.Entry{testEntry(1), testEntry(2)}
	pump(t, w, entries)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open output: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	want := entries[0].Raw + "\n" + entries[1].Raw + "\n"
	if string(data) != want {
		t.Errorf("Decompressed output = %q, want %q", string(data), want)
	}
}
