package combined

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"logsieve/internal/enrichment"
)

// ErrNoMatch marks lines that fail the combined-log-format grammar. Such
// lines are skipped by the pipeline but never abort a run.
var ErrNoMatch = errors.New("line does not match combined log format")

// Grammar for the combined log format:
// host indent user [time] "request" status size "referrer" "agent"
// The indent field is discarded; status and size are validated separately so
// that "-" can mean absent while other non-numeric tokens reject the line.
const combinedPattern = `^(\S+)\s+\S+\s+(\S+)\s+\[([^\]]+)\]\s+"([^"]*)"\s+(\S+)\s+(\S+)\s+"([^"]*)"\s+"([^"]*)"\s*$`

// timeFormat is the Apache %t layout: %d/%b/%Y:%H:%M:%S %z.
const timeFormat = "02/Jan/2006:15:04:05 -0700"

var (
	lineRegex = regexp.MustCompile(combinedPattern)

	// METHOD SP target SP HTTP/version, method uppercase letters or hyphens.
	requestRegex = regexp.MustCompile(`^([A-Z-]+) (.*?) HTTP/(.*)$`)
)

// Parser turns raw combined-format lines into entries, delegating enrichment
// to the optional GeoIP resolver, user-agent decomposer, and anonymizer.
// The host label identifies which served host the logs belong to; it is
// operator-supplied, not parsed.
type Parser struct {
	host       string
	geoIP      *enrichment.GeoIP
	userAgents *enrichment.UserAgentDecomposer
	anonymizer *enrichment.Anonymizer
	logger     *pterm.Logger
}

// NewParser creates a parser. geoIP, userAgents, and anonymizer may each be
// nil, disabling the corresponding enrichment.
func NewParser(host string, geoIP *enrichment.GeoIP, userAgents *enrichment.UserAgentDecomposer, anonymizer *enrichment.Anonymizer, logger *pterm.Logger) *Parser {
	return &Parser{
		host:       host,
		geoIP:      geoIP,
		userAgents: userAgents,
		anonymizer: anonymizer,
		logger:     logger,
	}
}

// Parse applies the full grammar to one raw line. A line either yields a
// complete entry or an error wrapping ErrNoMatch; there are no partial
// records. A failing request sub-grammar rejects the whole line, the same
// policy as an unparseable timestamp.
func (p *Parser) Parse(line string) (*Entry, error) {
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", ErrNoMatch)
	}

	m := lineRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, ErrNoMatch
	}

	t, err := time.Parse(timeFormat, m[3])
	if err != nil {
		return nil, fmt.Errorf("%w: time %q", ErrNoMatch, m[3])
	}

	method, path, query, version, err := parseRequest(m[4])
	if err != nil {
		return nil, err
	}

	status, err := parseOptionalInt(m[5])
	if err != nil {
		return nil, fmt.Errorf("%w: status %q", ErrNoMatch, m[5])
	}

	size, err := parseOptionalInt64(m[6])
	if err != nil {
		return nil, fmt.Errorf("%w: size %q", ErrNoMatch, m[6])
	}

	agent := strings.TrimSpace(m[8])

	entry := &Entry{
		SHA1:           fmt.Sprintf("%x", sha1.Sum([]byte(line))),
		Host:           p.host,
		RemoteHost:     m[1],
		Time:           t,
		RequestMethod:  method,
		RequestPath:    path,
		RequestQuery:   query,
		RequestVersion: version,
		Status:         status,
		Size:           size,
		UserAgent:      agent,
		Raw:            line,
	}

	user := m[2]
	entry.RemoteUser = &user

	setReferrer(entry, strings.TrimSpace(m[7]))

	if p.userAgents != nil {
		info := p.userAgents.Decompose(agent)
		entry.UserAgentDevice = info.Device
		entry.UserAgentOS = info.OS
		entry.UserAgentBrowser = info.Browser
	}

	// Country is resolved from the real address, before pseudonymization.
	if p.geoIP != nil {
		entry.RemoteCountry = p.geoIP.ResolveCountry(entry.RemoteHost)
	}

	if p.anonymizer.Active() {
		pseudonym, err := p.anonymizer.Anonymize(entry.RemoteHost, entry.Time, entry.UserAgent)
		if err != nil {
			return nil, fmt.Errorf("anonymize %s: %w", entry.RemoteHost, err)
		}
		entry.RemoteHost = pseudonym
		entry.RemoteUser = nil
	}

	return entry, nil
}

func parseRequest(request string) (method, path, query, version string, err error) {
	m := requestRegex.FindStringSubmatch(request)
	if m == nil {
		return "", "", "", "", fmt.Errorf("%w: request %q", ErrNoMatch, request)
	}

	u, uerr := url.Parse(m[2])
	if uerr != nil {
		return "", "", "", "", fmt.Errorf("%w: request target %q", ErrNoMatch, m[2])
	}

	return m[1], u.Path, u.RawQuery, m[3], nil
}

func setReferrer(entry *Entry, referrer string) {
	if referrer == "-" {
		return
	}

	var scheme, host, path, query string
	if u, err := url.Parse(referrer); err == nil {
		scheme, host, path, query = u.Scheme, u.Host, u.Path, u.RawQuery
	}

	// Present as a group: empty components stay empty strings, not absent.
	entry.ReferrerScheme = &scheme
	entry.ReferrerHost = &host
	entry.ReferrerPath = &path
	entry.ReferrerQuery = &query
}

func parseOptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "-" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseOptionalInt64(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "-" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
