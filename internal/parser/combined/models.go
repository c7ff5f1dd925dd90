package combined

import (
	"strconv"
	"time"
)

// Entry is one parsed combined-log-format line. Optional fields are pointers:
// nil means the source field was "-" (or dropped by anonymization), never a
// zero-as-sentinel. The four referrer fields are always set or unset as a group.
type Entry struct {
	SHA1             string    `json:"sha1"`
	Host             string    `json:"host"`
	RemoteHost       string    `json:"remote_host"`
	RemoteCountry    *string   `json:"remote_country"`
	RemoteUser       *string   `json:"remote_user"`
	Time             time.Time `json:"time"`
	RequestMethod    string    `json:"request_method"`
	RequestPath      string    `json:"request_path"`
	RequestQuery     string    `json:"request_query"`
	RequestVersion   string    `json:"request_version"`
	Status           *int      `json:"status"`
	Size             *int64    `json:"size"`
	ReferrerScheme   *string   `json:"referrer_scheme"`
	ReferrerHost     *string   `json:"referrer_host"`
	ReferrerPath     *string   `json:"referrer_path"`
	ReferrerQuery    *string   `json:"referrer_query"`
	UserAgent        string    `json:"user_agent"`
	UserAgentDevice  string    `json:"user_agent_device"`
	UserAgentOS      string    `json:"user_agent_os"`
	UserAgentBrowser string    `json:"user_agent_browser"`

	// Raw is the original input line, kept for the raw passthrough writer.
	// It is not part of the serialized record.
	Raw string `json:"-"`
}

// fieldNames is the fixed serialization order, shared by the CSV header and
// the destination table columns.
var fieldNames = []string{
	"sha1",
	"host",
	"remote_host",
	"remote_country",
	"remote_user",
	"time",
	"request_method",
	"request_path",
	"request_query",
	"request_version",
	"status",
	"size",
	"referrer_scheme",
	"referrer_host",
	"referrer_path",
	"referrer_query",
	"user_agent",
	"user_agent_device",
	"user_agent_os",
	"user_agent_browser",
}

// FieldNames returns the serialization field order. The returned slice is a
// copy and safe to modify.
func FieldNames() []string {
	names := make([]string, len(fieldNames))
	copy(names, fieldNames)
	return names
}

// CSVRecord serializes the entry in FieldNames order. Absent fields become
// empty strings and the timestamp is formatted as ISO-8601; other types
// collapse to strings, which is inherent to the CSV format.
func (e *Entry) CSVRecord() []string {
	return []string{
		e.SHA1,
		e.Host,
		e.RemoteHost,
		strPtr(e.RemoteCountry),
		strPtr(e.RemoteUser),
		e.Time.Format(time.RFC3339),
		e.RequestMethod,
		e.RequestPath,
		e.RequestQuery,
		e.RequestVersion,
		intPtr(e.Status),
		int64Ptr(e.Size),
		strPtr(e.ReferrerScheme),
		strPtr(e.ReferrerHost),
		strPtr(e.ReferrerPath),
		strPtr(e.ReferrerQuery),
		e.UserAgent,
		e.UserAgentDevice,
		e.UserAgentOS,
		e.UserAgentBrowser,
	}
}

// Date returns the entry's event date as midnight UTC. The SQL writer keys
// its per-day dedup set on this value.
func (e *Entry) Date() time.Time {
	t := e.Time.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func strPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intPtr(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func int64Ptr(i *int64) string {
	if i == nil {
		return ""
	}
	return strconv.FormatInt(*i, 10)
}
