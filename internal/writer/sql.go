package writer

import (
	"time"

	"github.com/pterm/pterm"
	"gorm.io/gorm"

	"logsieve/internal/database"
	"logsieve/internal/database/models"
	"logsieve/internal/database/repositories"
)

// sqlWriter inserts entries into the relational destination, skipping rows
// whose content hash is already stored for the entry's UTC calendar day.
// The per-day hash set is loaded once per day transition and updated in
// memory as entries are accepted, so re-processing the same day within one
// run never re-queries the store.
type sqlWriter struct {
	buffer
	dsn    string
	db     *gorm.DB
	ownsDB bool
	repo   repositories.RecordRepository
	logger *pterm.Logger

	currentDay time.Time
	seen       map[string]struct{}
	dayLoaded  bool
}

func newSQLWriter(cfg Config) *sqlWriter {
	return &sqlWriter{
		buffer: buffer{chunkSize: cfg.ChunkSize},
		dsn:    cfg.Database,
		logger: cfg.Logger,
	}
}

// newSQLWriterWithDB attaches the writer to an existing connection.
func newSQLWriterWithDB(db *gorm.DB, chunkSize int, logger *pterm.Logger) *sqlWriter {
	return &sqlWriter{
		buffer: buffer{chunkSize: chunkSize},
		db:     db,
		repo:   repositories.NewRecordRepository(db, logger),
		logger: logger,
	}
}

func (w *sqlWriter) Open() error {
	if w.db != nil {
		return nil
	}

	db, err := database.NewConnection(w.dsn, w.logger)
	if err != nil {
		return err
	}
	w.db = db
	w.ownsDB = true
	w.repo = repositories.NewRecordRepository(db, w.logger)
	return nil
}

func (w *sqlWriter) Flush() error {
	entries := w.drain()

	var staged []*models.Record
	for _, e := range entries {
		day := e.Date()
		if !w.dayLoaded || !day.Equal(w.currentDay) {
			seen, err := w.repo.HashesForDay(day)
			if err != nil {
				return err
			}
			w.currentDay = day
			w.seen = seen
			w.dayLoaded = true
		}

		if _, dup := w.seen[e.SHA1]; dup {
			w.logger.Trace("Skipping duplicate entry", w.logger.Args("sha1", e.SHA1))
			continue
		}
		w.seen[e.SHA1] = struct{}{}
		staged = append(staged, models.FromEntry(e))
	}

	inserted, err := w.repo.CreateTolerant(staged)
	if err != nil {
		// The in-memory set now claims hashes the store never committed.
		// Drop it so the next flush re-queries the stored state.
		w.dayLoaded = false
		w.seen = nil
		return err
	}

	w.logger.Debug("Flushed records",
		w.logger.Args("buffered", len(entries), "staged", len(staged), "inserted", inserted))
	return nil
}

// Close flushes remaining entries and releases the connection, but only a
// connection the writer opened itself. Injected connections stay open for
// their owner.
func (w *sqlWriter) Close() error {
	err := w.Flush()
	if w.ownsDB {
		if cerr := database.Close(w.db); err == nil {
			err = cerr
		}
	}
	return err
}
