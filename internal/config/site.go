package config

import (
	"strings"
	"time"
)

// SiteConfig holds host-specific settings from the configuration file.
// Unset fields fall back to the defaults section, then to CLI flags.
type SiteConfig struct {
	// Depth overrides the maximum crawl depth. A pointer so 0 can be set.
	Depth *int `yaml:"depth,omitempty"`

	// SameDomainOnly overrides host restriction.
	SameDomainOnly *bool `yaml:"sameDomainOnly,omitempty"`

	// Concurrency overrides the worker count. Zero means unset.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Timeout overrides the per-request timeout, e.g. "30s". Zero means unset.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Cookie is sent with every request to the site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// RequestHeaders returns Headers plus the Cookie header, or nil when neither is set.
func (s SiteConfig) RequestHeaders() map[string]string {
	if len(s.Headers) == 0 && s.Cookie == "" {
		return nil
	}
	headers := make(map[string]string, len(s.Headers)+1)
	for k, v := range s.Headers {
		headers[k] = v
	}
	if s.Cookie != "" {
		headers["Cookie"] = s.Cookie
	}
	return headers
}

// DatabaseConfig selects the result store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver,omitempty"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn,omitempty"`

	// Dir is the SQLite database directory.
	Dir string `yaml:"dir,omitempty"`
}

// File represents the structure of the .formcrawl configuration file.
type File struct {
	// Defaults applies to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps hosts ("example.com" or "example.com:8080") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Database selects the result store.
	Database DatabaseConfig `yaml:"database,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the defaults.
// Host matching is case-insensitive.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		for name, sc := range cf.Sites {
			if strings.EqualFold(name, host) {
				siteConfig, ok = sc, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if siteConfig.Depth != nil {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.SameDomainOnly != nil {
		result.SameDomainOnly = siteConfig.SameDomainOnly
	}
	if siteConfig.Concurrency != 0 {
		result.Concurrency = siteConfig.Concurrency
	}
	if siteConfig.Timeout != 0 {
		result.Timeout = siteConfig.Timeout
	}
	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}

	return result
}
