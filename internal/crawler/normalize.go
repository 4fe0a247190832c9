package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// Normalize resolves href against base and returns the canonical absolute URL.
// The fragment is always removed, so two URLs differing only by fragment map
// to the same page. It returns false when href is empty or either value
// cannot be parsed.
//
// Normalize is idempotent: Normalize(b, Normalize(b, h)) yields the same URL.
func Normalize(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	return canonical(b.ResolveReference(ref)), true
}

// NormalizeStart canonicalizes the start URL of a crawl.
// A missing scheme defaults to http. The URL must have a host.
func NormalizeStart(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty start URL", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}

	return canonical(u), nil
}

// canonical drops the fragment and gives hierarchical http(s) URLs a root
// path, so http://a.test and http://a.test/ are the same page.
//
// purell re-escapes the decoded path, which turns %2F into a real slash.
// A path carrying such a non-default encoding (RawPath set) is rendered by
// net/url instead so its encoding survives.
func canonical(u *url.URL) string {
	if u.Path == "" && u.Opaque == "" && u.Host != "" && isHTTPScheme(u.Scheme) {
		u.Path = "/"
		u.RawPath = ""
	}
	if u.RawPath != "" {
		u.Fragment, u.RawFragment = "", ""
		return u.String()
	}
	return purell.NormalizeURL(u, purell.FlagRemoveFragment)
}

func isHTTPScheme(scheme string) bool {
	return strings.EqualFold(scheme, "http") || strings.EqualFold(scheme, "https")
}

// hostOf returns the host[:port] of rawURL, or "" when it cannot be parsed.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
