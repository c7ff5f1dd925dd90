package enrichment

import (
	"net"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/oschwald/geoip2-golang"
	"github.com/pterm/pterm"
)

const defaultGeoIPCacheSize = 10000

// countryLookup resolves an already-validated IP to a two-letter ISO code.
// It exists so tests can substitute the MaxMind reader.
type countryLookup func(ip net.IP) (string, error)

// GeoIP resolves client addresses to lowercase two-letter country codes
// against a MaxMind-compatible database. Results, including misses, are
// cached per raw address string for the lifetime of the resolver so that
// bursty repeated clients hit the database once.
type GeoIP struct {
	reader *geoip2.Reader
	lookup countryLookup
	cache  *lru.Cache
	logger *pterm.Logger
}

// NewGeoIP opens the database at path. cacheSize <= 0 selects a default.
func NewGeoIP(path string, cacheSize int, logger *pterm.Logger) (*GeoIP, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	g, err := newGeoIPWithLookup(func(ip net.IP) (string, error) {
		record, err := reader.Country(ip)
		if err != nil {
			return "", err
		}
		return record.Country.IsoCode, nil
	}, cacheSize, logger)
	if err != nil {
		reader.Close()
		return nil, err
	}

	g.reader = reader
	return g, nil
}

func newGeoIPWithLookup(lookup countryLookup, cacheSize int, logger *pterm.Logger) (*GeoIP, error) {
	if cacheSize <= 0 {
		cacheSize = defaultGeoIPCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &GeoIP{
		lookup: lookup,
		cache:  cache,
		logger: logger,
	}, nil
}

// ResolveCountry returns the country code for host, or nil when the address
// is malformed or not present in the database. Both outcomes are cached and
// never surface as errors.
func (g *GeoIP) ResolveCountry(host string) *string {
	if cached, ok := g.cache.Get(host); ok {
		return cached.(*string)
	}

	var country *string
	if ip := net.ParseIP(host); ip != nil {
		iso, err := g.lookup(ip)
		if err != nil {
			g.logger.Trace("GeoIP lookup miss", g.logger.Args("host", host, "error", err))
		} else if iso != "" {
			code := strings.ToLower(iso)
			country = &code
		}
	} else {
		g.logger.Trace("GeoIP skipped malformed address", g.logger.Args("host", host))
	}

	g.cache.Add(host, country)
	return country
}

// CacheLen reports the number of cached addresses.
func (g *GeoIP) CacheLen() int {
	return g.cache.Len()
}

// Close releases the underlying database reader.
func (g *GeoIP) Close() error {
	if g.reader == nil {
		return nil
	}
	return g.reader.Close()
}
