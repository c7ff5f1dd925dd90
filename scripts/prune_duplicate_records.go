package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// storedRecord is the minimal row shape needed for duplicate detection.
type storedRecord struct {
	ID   uint `gorm:"primaryKey"`
	SHA1 string
	Time time.Time
}

func (storedRecord) TableName() string {
	return "records"
}

// Removes rows that duplicate an earlier row's content hash within the same
// UTC calendar day. Such rows can exist when older imports ran without the
// per-day duplicate check; the ingestion pipeline itself never creates them.
func main() {
	dbPath := "./records.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}

	fmt.Println("🔧 LogSieve Duplicate Pruning Tool")
	fmt.Println("===================================")
	fmt.Printf("Database: %s\n\n", dbPath)

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var totalCount int64
	db.Model(&storedRecord{}).Count(&totalCount)
	fmt.Printf("📊 Found %d total records\n", totalCount)

	batchSize := 1000
	offset := 0
	seen := make(map[string]struct{})
	var duplicateIDs []uint

	fmt.Println("\n🔄 Scanning for duplicates...")

	// Scan first, delete after: deleting mid-scan would shift the offsets.
	for {
		var records []storedRecord
		result := db.Order("id").Limit(batchSize).Offset(offset).Find(&records)

		if result.Error != nil {
			log.Fatalf("Failed to fetch records: %v", result.Error)
		}

		if len(records) == 0 {
			break
		}

		for i := range records {
			rec := &records[i]

			// Duplicate scope is the content hash plus the UTC event date,
			// matching the ingestion pipeline's check.
			key := rec.SHA1 + "|" + rec.Time.UTC().Format("2006-01-02")
			if _, dup := seen[key]; dup {
				duplicateIDs = append(duplicateIDs, rec.ID)
				continue
			}
			seen[key] = struct{}{}
		}

		offset += batchSize
		fmt.Printf("   Scanned %d / %d records (Duplicates: %d)\r",
			offset, totalCount, len(duplicateIDs))
	}

	totalDeleted := 0
	totalErrors := 0

	if len(duplicateIDs) > 0 {
		fmt.Printf("\n\n🗑️  Deleting %d duplicate rows...\n", len(duplicateIDs))
		for _, id := range duplicateIDs {
			if err := db.Delete(&storedRecord{}, id).Error; err != nil {
				fmt.Printf("❌ Error deleting record ID %d: %v\n", id, err)
				totalErrors++
				continue
			}
			totalDeleted++
		}
	}

	fmt.Printf("\n\n✅ Pruning completed!\n")
	fmt.Printf("   Total records: %d\n", totalCount)
	fmt.Printf("   Deleted: %d\n", totalDeleted)
	fmt.Printf("   Errors: %d\n", totalErrors)
	fmt.Printf("   Kept: %d\n", totalCount-int64(totalDeleted)-int64(totalErrors))
}
