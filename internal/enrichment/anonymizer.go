package enrichment

import (
	"crypto/sha1"
	"fmt"
	"time"
)

// Mode selects the anonymization time bucket granularity. Within one bucket
// the same client always maps to the same pseudonym; across buckets the
// salts are independent, making pseudonyms unlinkable.
type Mode int

const (
	ModeNone Mode = iota
	ModeDaily
	ModeWeekly
	ModeMonthly
	ModeEternally
)

// ParseMode maps the configuration value to a Mode. The empty string means
// anonymization is off.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "":
		return ModeNone, nil
	case "daily":
		return ModeDaily, nil
	case "weekly":
		return ModeWeekly, nil
	case "monthly":
		return ModeMonthly, nil
	case "eternally":
		return ModeEternally, nil
	default:
		return ModeNone, fmt.Errorf("unknown anonymization mode %q (expected daily, weekly, monthly, or eternally)", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeDaily:
		return "daily"
	case ModeWeekly:
		return "weekly"
	case ModeMonthly:
		return "monthly"
	case ModeEternally:
		return "eternally"
	default:
		return "none"
	}
}

// BucketKey derives the salt bucket identifier for an event timestamp.
// Buckets are computed on the UTC calendar: daily is the date itself,
// weekly the Monday of that week, monthly the first of the month.
func (m Mode) BucketKey(t time.Time) string {
	t = t.UTC()
	switch m {
	case ModeDaily:
		return t.Format("2006-01-02")
	case ModeWeekly:
		monday := t.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
		return monday.Format("2006-01-02")
	case ModeMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	case ModeEternally:
		return "eternally"
	default:
		return ""
	}
}

// Anonymizer replaces client hosts with salted-hash pseudonyms.
type Anonymizer struct {
	mode          Mode
	skipUserAgent bool
	salts         *SaltStore
}

// NewAnonymizer builds an anonymizer. When skipUserAgent is set the
// user-agent string is left out of the pseudonym input, so all requests from
// one address within a bucket share a pseudonym regardless of client
// software.
func NewAnonymizer(mode Mode, skipUserAgent bool, salts *SaltStore) *Anonymizer {
	return &Anonymizer{
		mode:          mode,
		skipUserAgent: skipUserAgent,
		salts:         salts,
	}
}

// Active reports whether pseudonymization is enabled.
func (a *Anonymizer) Active() bool {
	return a != nil && a.mode != ModeNone
}

// Anonymize returns the pseudonym for remoteHost at event time t. With
// ModeNone the host is returned unchanged.
func (a *Anonymizer) Anonymize(remoteHost string, t time.Time, userAgent string) (string, error) {
	if !a.Active() {
		return remoteHost, nil
	}

	salt, err := a.salts.Salt(a.mode.BucketKey(t))
	if err != nil {
		return "", err
	}

	input := salt + remoteHost
	if !a.skipUserAgent {
		input += userAgent
	}
	return fmt.Sprintf("%x", sha1.Sum([]byte(input))), nil
}
