package enrichment

import (
	"github.com/ua-parser/uap-go/uaparser"
)

// UserAgentInfo is the decomposition of a raw user-agent string into
// human-readable device, OS, and browser names.
type UserAgentInfo struct {
	Device  string
	OS      string
	Browser string
}

// UserAgentDecomposer wraps the uap-core rule set. Decomposition is a pure
// function of the agent string, so results are memoized per instance.
type UserAgentDecomposer struct {
	parser *uaparser.Parser
	cache  map[string]UserAgentInfo
}

// NewUserAgentDecomposer builds a decomposer from the rule definitions
// compiled into the library.
func NewUserAgentDecomposer() *UserAgentDecomposer {
	return &UserAgentDecomposer{
		parser: uaparser.NewFromSaved(),
		cache:  make(map[string]UserAgentInfo),
	}
}

// Decompose parses the agent string into device/OS/browser display strings.
func (d *UserAgentDecomposer) Decompose(agent string) UserAgentInfo {
	if info, ok := d.cache[agent]; ok {
		return info
	}

	client := d.parser.Parse(agent)
	info := UserAgentInfo{
		Device:  client.Device.ToString(),
		OS:      client.Os.ToString(),
		Browser: client.UserAgent.ToString(),
	}
	d.cache[agent] = info
	return info
}
