package enrichment

import (
	"errors"
	"net"
	"testing"
)

func TestGeoIP_ResolveAndCache(t *testing.T) {
	lookups := 0
	geo, err := newGeoIPWithLookup(func(ip net.IP) (string, error) {
		lookups++
		return "DE", nil
	}, 10, testLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	first := geo.ResolveCountry("203.0.113.5")
	if first == nil || *first != "de" {
		t.Fatalf("Expected lowercased country 'de', got %v", first)
	}

	second := geo.ResolveCountry("203.0.113.5")
	if second == nil || *second != "de" {
		t.Fatalf("Expected cached country 'de', got %v", second)
	}

	if lookups != 1 {
		t.Errorf("Expected one database lookup for repeated address, got %d", lookups)
	}
	if geo.CacheLen() != 1 {
		t.Errorf("Expected one cached address, got %d", geo.CacheLen())
	}
}

func TestGeoIP_LookupMissIsCachedAbsent(t *testing.T) {
	lookups := 0
	geo, err := newGeoIPWithLookup(func(ip net.IP) (string, error) {
		lookups++
		return "", errors.New("address not found")
	}, 10, testLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if country := geo.ResolveCountry("203.0.113.5"); country != nil {
		t.Errorf("Expected absent country on lookup miss, got %q", *country)
	}
	if country := geo.ResolveCountry("203.0.113.5"); country != nil {
		t.Errorf("Expected absent country on cached miss, got %q", *country)
	}

	if lookups != 1 {
		t.Errorf("Expected the miss itself to be cached, got %d lookups", lookups)
	}
}

func TestGeoIP_MalformedAddress(t *testing.T) {
	lookups := 0
	geo, err := newGeoIPWithLookup(func(ip net.IP) (string, error) {
		lookups++
		return "DE", nil
	}, 10, testLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if country := geo.ResolveCountry("not-an-address"); country != nil {
		t.Errorf("Expected absent country for malformed address, got %q", *country)
	}
	if lookups != 0 {
		t.Errorf("Expected no database lookup for malformed address, got %d", lookups)
	}
	if geo.CacheLen() != 1 {
		t.Errorf("Expected malformed address to be cached, got %d entries", geo.CacheLen())
	}
}

func TestGeoIP_EmptyIsoCode(t *testing.T) {
	geo, err := newGeoIPWithLookup(func(ip net.IP) (string, error) {
		return "", nil
	}, 10, testLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if country := geo.ResolveCountry("203.0.113.5"); country != nil {
		t.Errorf("Expected absent country for empty ISO code, got %q", *country)
	}
}
