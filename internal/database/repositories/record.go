package repositories

import (
	"time"

	"github.com/pterm/pterm"
	"gorm.io/gorm"

	"logsieve/internal/database/models"
)

// RecordRepository handles persistence of accepted log records.
type RecordRepository interface {
	// CreateTolerant inserts the records inside a single transaction.
	// A single row's failure is logged and skipped; the rest of the batch
	// proceeds. The returned count is the number of rows inserted. A
	// transaction-level failure returns an error.
	CreateTolerant(records []*models.Record) (int, error)
	// HashesForDay returns the content hashes of all records stored for the
	// UTC calendar day starting at day (midnight UTC).
	HashesForDay(day time.Time) (map[string]struct{}, error)
	Count() (int64, error)
}

type recordRepo struct {
	db     *gorm.DB
	logger *pterm.Logger
}

// NewRecordRepository creates a record repository.
func NewRecordRepository(db *gorm.DB, logger *pterm.Logger) RecordRepository {
	return &recordRepo{
		db:     db,
		logger: logger,
	}
}

func (r *recordRepo) CreateTolerant(records []*models.Record) (int, error) {
	if len(records) == 0 {
		r.logger.Debug("Empty batch, skipping insert")
		return 0, nil
	}

	tx := r.db.Begin()
	if tx.Error != nil {
		r.logger.WithCaller().Error("Failed to begin transaction", r.logger.Args("error", tx.Error))
		return 0, tx.Error
	}

	inserted := 0
	for _, record := range records {
		if err := tx.Create(record).Error; err != nil {
			r.logger.Warn("Failed to insert record, skipping row",
				r.logger.Args("sha1", record.SHA1, "error", err))
			continue
		}
		inserted++
	}

	if err := tx.Commit().Error; err != nil {
		r.logger.WithCaller().Error("Failed to commit batch", r.logger.Args("error", err))
		return 0, err
	}

	r.logger.Trace("Inserted batch", r.logger.Args("count", inserted, "staged", len(records)))
	return inserted, nil
}

func (r *recordRepo) HashesForDay(day time.Time) (map[string]struct{}, error) {
	start := day.UTC()
	end := start.AddDate(0, 0, 1)

	var hashes []string
	if err := r.db.Model(&models.Record{}).
		Where("time >= ? AND time < ?", start, end).
		Pluck("sha1", &hashes).Error; err != nil {
		r.logger.WithCaller().Error("Failed to load stored hashes",
			r.logger.Args("day", start.Format("2006-01-02"), "error", err))
		return nil, err
	}

	set := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}

	r.logger.Debug("Loaded dedup set",
		r.logger.Args("day", start.Format("2006-01-02"), "hashes", len(set)))
	return set, nil
}

func (r *recordRepo) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&models.Record{}).Count(&count).Error; err != nil {
		r.logger.WithCaller().Error("Failed to count records", r.logger.Args("error", err))
		return 0, err
	}
	return count, nil
}
