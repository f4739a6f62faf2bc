package scrape

import (
	"net/url"
	"strings"
)

// DefaultExcludedHosts are video and pin boards that rarely carry a
// readable recipe.
var DefaultExcludedHosts = []string{"youtube.com", "pinterest.com"}

// HostFilter rejects URLs on excluded hosts and their subdomains.
type HostFilter struct {
	hosts []string
}

// NewHostFilter creates a filter for the given hosts. Entries are
// normalized to lowercase without a leading "www.".
func NewHostFilter(hosts []string) *HostFilter {
	f := &HostFilter{}
	for _, h := range hosts {
		h = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h)), "www.")
		if h != "" {
			f.hosts = append(f.hosts, h)
		}
	}
	return f
}

// Hosts returns the normalized excluded hosts.
func (f *HostFilter) Hosts() []string {
	return f.hosts
}

// Excluded reports whether rawURL is on an excluded host. Unparseable URLs
// and URLs without a host are excluded.
func (f *HostFilter) Excluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range f.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// QueryTerms renders the exclusions as search operators, e.g.
// "-site:youtube.com -site:pinterest.com".
func (f *HostFilter) QueryTerms() string {
	terms := make([]string, len(f.hosts))
	for i, h := range f.hosts {
		terms[i] = "-site:" + h
	}
	return strings.Join(terms, " ")
}
