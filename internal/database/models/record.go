package models

import (
	"time"

	"logsieve/internal/parser/combined"
)

// Record is one accepted log entry in the destination table. Nullable
// columns are pointers so that absent stays distinguishable from empty or
// zero. Uniqueness is enforced at the application level by the per-day
// dedup check, not by a database constraint.
type Record struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	SHA1             string    `gorm:"column:sha1;not null;index:idx_records_sha1;size:40"`
	Host             string    `gorm:"index:idx_records_host"`
	RemoteHost       string    `gorm:"size:64"`
	RemoteCountry    *string   `gorm:"size:2"`
	RemoteUser       *string
	Time             time.Time `gorm:"not null;index:idx_records_time"`
	RequestMethod    string    `gorm:"size:16"`
	RequestPath      string
	RequestQuery     string
	RequestVersion   string `gorm:"size:8"`
	Status           *int
	Size             *int64
	ReferrerScheme   *string
	ReferrerHost     *string
	ReferrerPath     *string
	ReferrerQuery    *string
	UserAgent        string
	UserAgentDevice  string
	UserAgentOS      string
	UserAgentBrowser string
}

func (Record) TableName() string {
	return "records"
}

// FromEntry maps a parsed entry onto its table row. The timestamp is
// normalized to UTC so that the per-day hash queries, which bind UTC day
// boundaries, compare in a single zone regardless of the log's offset.
func FromEntry(e *combined.Entry) *Record {
	return &Record{
		SHA1:             e.SHA1,
		Host:             e.Host,
		RemoteHost:       e.RemoteHost,
		RemoteCountry:    e.RemoteCountry,
		RemoteUser:       e.RemoteUser,
		Time:             e.Time.UTC(),
		RequestMethod:    e.RequestMethod,
		RequestPath:      e.RequestPath,
		RequestQuery:     e.RequestQuery,
		RequestVersion:   e.RequestVersion,
		Status:           e.Status,
		Size:             e.Size,
		ReferrerScheme:   e.ReferrerScheme,
		ReferrerHost:     e.ReferrerHost,
		ReferrerPath:     e.ReferrerPath,
		ReferrerQuery:    e.ReferrerQuery,
		UserAgent:        e.UserAgent,
		UserAgentDevice:  e.UserAgentDevice,
		UserAgentOS:      e.UserAgentOS,
		UserAgentBrowser: e.UserAgentBrowser,
	}
}
