package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/formcrawl/internal/crawler"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "formcrawl"

	// DefaultMaxDepth follows links two hops from the start page, enough to
	// reach the login and search forms of most sites.
	DefaultMaxDepth = crawler.DefaultMaxDepth

	// DefaultTimeout bounds each request.
	DefaultTimeout = crawler.DefaultTimeout

	// DefaultConcurrency is the number of workers per crawl.
	DefaultConcurrency = crawler.DefaultConcurrency

	// DefaultBatchSize is the number of targets crawled at the same time.
	// Each target still gets its own pool of workers.
	DefaultBatchSize = 1

	// DefaultUserAgent identifies formcrawl in HTTP requests.
	DefaultUserAgent = crawler.DefaultUserAgent

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = crawler.DefaultMaxBodySize

	// DefaultDBDriver stores results in a local SQLite file.
	DefaultDBDriver = "sqlite"
)

// Config holds all configuration options for a formcrawl run.
// It is populated from CLI flags over defaults and passed down explicitly.
type Config struct {
	// Targets are the start URLs to crawl. A missing scheme means http.
	Targets []string

	// MaxDepth is the maximum link distance from the start URL.
	// Depth 0 means only fetch the start page.
	MaxDepth int

	// SameDomainOnly keeps the crawl on the start URL's host.
	SameDomainOnly bool

	// Timeout bounds each HTTP request, not the whole crawl.
	Timeout time.Duration

	// Concurrency is the number of workers per target.
	Concurrency int

	// BatchSize is the number of targets crawled concurrently.
	BatchSize int

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// ProxyAddress routes requests through a SOCKS5 proxy ("host:port").
	// Empty means direct connections (HTTP_PROXY and friends still apply).
	ProxyAddress string

	// ProjectName labels the stored project. Empty means the target host.
	ProjectName string

	// DBDriver is "sqlite" or "postgres".
	DBDriver string

	// DBDir is the directory of the SQLite database file.
	// Defaults to the XDG data directory (~/.local/share/formcrawl on Linux).
	DBDir string

	// DBDSN is the PostgreSQL connection string.
	DBDSN string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON.
	LogJSON bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds per-host settings loaded from the config file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:       DefaultMaxDepth,
		SameDomainOnly: true,
		Timeout:        DefaultTimeout,
		Concurrency:    DefaultConcurrency,
		BatchSize:      DefaultBatchSize,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		DBDriver:       DefaultDBDriver,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for formcrawl.
// On Linux: ~/.local/share/formcrawl
// On macOS: ~/Library/Application Support/formcrawl
// On Windows: %LOCALAPPDATA%\formcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for formcrawl.
// On Linux: ~/.config/formcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return c.ValidateDatabase()
}

// ValidateDatabase checks only the result store settings. Commands that
// read stored results use it instead of Validate.
func (c *Config) ValidateDatabase() error {
	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if c.DBDSN == "" {
			return ErrMissingDSN
		}
	default:
		return ErrUnsupportedDriver
	}

	return nil
}

// ApplyFile merges a loaded configuration file. The database section only
// fills settings that are still unset on c; per-host settings are kept in
// SiteConfigs and applied by CrawlConfig.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f

	if f.Database.Driver != "" && (c.DBDriver == "" || c.DBDriver == DefaultDBDriver) {
		c.DBDriver = f.Database.Driver
	}
	if f.Database.DSN != "" && c.DBDSN == "" {
		c.DBDSN = f.Database.DSN
	}
	if f.Database.Dir != "" && (c.DBDir == "" || c.DBDir == XDGDataDir()) {
		c.DBDir = f.Database.Dir
	}
}

// Site returns the merged file settings for host, or the zero SiteConfig
// when no file was loaded.
func (c *Config) Site(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}

// CrawlConfig returns the crawl settings for a target on host, with the
// host's file overrides applied.
func (c *Config) CrawlConfig(host string) crawler.Config {
	cfg := crawler.DefaultConfig()
	cfg.MaxDepth = c.MaxDepth
	cfg.SameDomainOnly = c.SameDomainOnly
	cfg.Timeout = c.Timeout
	cfg.Concurrency = c.Concurrency
	cfg.UserAgent = c.UserAgent
	cfg.MaxBodySize = c.MaxBodySize

	site := c.Site(host)
	if site.Depth != nil {
		cfg.MaxDepth = *site.Depth
	}
	if site.SameDomainOnly != nil {
		cfg.SameDomainOnly = *site.SameDomainOnly
	}
	if site.Concurrency > 0 {
		cfg.Concurrency = site.Concurrency
	}
	if site.Timeout > 0 {
		cfg.Timeout = site.Timeout
	}
	if site.UserAgent != "" {
		cfg.UserAgent = site.UserAgent
	}

	return cfg
}

// ClientOptions returns the HTTP client settings for a target on host.
func (c *Config) ClientOptions(host string) crawler.ClientOptions {
	cfg := c.CrawlConfig(host)
	return crawler.ClientOptions{
		Timeout:      cfg.Timeout,
		ProxyAddress: c.ProxyAddress,
		UserAgent:    cfg.UserAgent,
		Headers:      c.Site(host).RequestHeaders(),
	}
}
