package filter

import (
	"strings"

	"logsieve/internal/parser/combined"
)

// Rules are the caller-supplied ignore-lists. An entry matching ANY rule in
// ANY list is dropped; the lists are never combined conjunctively.
type Rules struct {
	// Hosts are prefixes matched against the remote host.
	Hosts []string
	// Methods are exact request method matches.
	Methods []string
	// Paths are prefixes matched against the request path.
	Paths []string
	// Statuses are exact status code matches.
	Statuses []int
}

// Empty reports whether no rule is configured.
func (r Rules) Empty() bool {
	return len(r.Hosts) == 0 && len(r.Methods) == 0 && len(r.Paths) == 0 && len(r.Statuses) == 0
}

// Keep reports whether the entry passes all ignore-lists.
func (r Rules) Keep(e *combined.Entry) bool {
	for _, host := range r.Hosts {
		if strings.HasPrefix(e.RemoteHost, host) {
			return false
		}
	}
	for _, method := range r.Methods {
		if e.RequestMethod == method {
			return false
		}
	}
	for _, path := range r.Paths {
		if strings.HasPrefix(e.RequestPath, path) {
			return false
		}
	}
	if e.Status != nil {
		for _, status := range r.Statuses {
			if *e.Status == status {
				return false
			}
		}
	}
	return true
}
