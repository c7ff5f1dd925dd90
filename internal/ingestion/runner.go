package ingestion

import (
	"bufio"
	"errors"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"

	"logsieve/internal/config"
	"logsieve/internal/filter"
	"logsieve/internal/parser/combined"
	"logsieve/internal/writer"
)

// maxLineBytes bounds a single log line; anything longer is noise.
const maxLineBytes = 1024 * 1024

// Stats are per-run counters reported at the end of a run.
type Stats struct {
	Files    int
	Lines    int
	Rejected int
	Ignored  int
	Written  int
}

// Runner drives the pipeline: line, parse, filter, append, chunked flush.
// Processing is strictly single-threaded and inline per input line; the
// parser's enrichment caches and the writer's dedup state are owned by this
// runner's instances and need no locking.
type Runner struct {
	cfg    *config.Config
	parser *combined.Parser
	rules  filter.Rules
	logger *pterm.Logger
}

// NewRunner wires a configured pipeline.
func NewRunner(cfg *config.Config, parser *combined.Parser, rules filter.Rules, logger *pterm.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		parser: parser,
		rules:  rules,
		logger: logger,
	}
}

// Run processes every file matched by the configured input patterns.
func (r *Runner) Run() (*Stats, error) {
	paths, err := ExpandPatterns(r.cfg.InputPatterns, r.logger)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}

	// With an output directory each input gets its own derived output file.
	// Otherwise (stdout, or the sql backend) one writer spans the run, so a
	// single connection carries the dedup state across all inputs.
	perFile := r.cfg.OutputDir != "" && r.cfg.BaseFormat() != "sql"

	var w writer.Writer
	if !perFile {
		if w, err = r.openWriter(""); err != nil {
			return nil, err
		}
	}

	for _, path := range paths {
		fw := w
		if perFile {
			if fw, err = r.openWriter(path); err != nil {
				return nil, err
			}
		}

		if err := r.processFile(path, fw, stats); err != nil {
			if perFile {
				fw.Close()
			} else {
				w.Close()
			}
			return stats, err
		}
		stats.Files++

		if perFile {
			if err := fw.Close(); err != nil {
				return stats, err
			}
		}
	}

	if !perFile {
		if err := w.Close(); err != nil {
			return stats, err
		}
	}

	r.logger.Info("Run complete",
		r.logger.Args(
			"files", stats.Files,
			"lines", stats.Lines,
			"rejected", stats.Rejected,
			"ignored", stats.Ignored,
			"written", stats.Written,
		))
	return stats, nil
}

func (r *Runner) openWriter(inputPath string) (writer.Writer, error) {
	w, err := writer.New(writer.Config{
		Format:    r.cfg.Format,
		Path:      r.outputPath(inputPath),
		ChunkSize: r.cfg.ChunkSize,
		Database:  r.cfg.Database,
		Logger:    r.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := w.Open(); err != nil {
		return nil, err
	}
	return w, nil
}

// outputPath derives the per-input output file: base output directory plus
// the input's name (compression suffix stripped) plus the format suffix.
func (r *Runner) outputPath(inputPath string) string {
	if r.cfg.OutputDir == "" || inputPath == "" {
		return ""
	}

	stem := filepath.Base(inputPath)
	stem = strings.TrimSuffix(stem, ".gz")
	stem = strings.TrimSuffix(stem, ".xz")
	return filepath.Join(r.cfg.OutputDir, stem+"."+r.cfg.Format)
}

func (r *Runner) processFile(path string, w writer.Writer, stats *Stats) error {
	r.logger.Info("Processing", r.logger.Args("path", path))

	in, err := OpenInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		stats.Lines++

		entry, err := r.parser.Parse(line)
		if err != nil {
			if errors.Is(err, combined.ErrNoMatch) {
				stats.Rejected++
				r.logger.Debug("Skipping malformed line",
					r.logger.Args("path", path, "error", err, "line_preview", truncate(line, 100)))
				continue
			}
			// Enrichment failures (salt store I/O) are not line noise.
			return err
		}

		if !r.rules.Keep(entry) {
			stats.Ignored++
			continue
		}

		w.Append(entry)
		stats.Written++

		if w.ShouldFlush() {
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}

	return scanner.Err()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
