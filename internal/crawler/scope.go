package crawler

import "net/url"

// InScope reports whether rawURL at depth may be fetched.
//
// URLs deeper than cfg.MaxDepth are always rejected. With
// cfg.SameDomainOnly, URLs whose host differs from startHost are rejected;
// the comparison is exact (host and port, no subdomain folding).
func InScope(rawURL string, depth int, cfg Config, startHost string) bool {
	if depth > cfg.MaxDepth {
		return false
	}
	if !cfg.SameDomainOnly {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Host == startHost
}
