// Package config provides the configuration of a formcrawl run: crawl
// limits, HTTP client settings, the result database, and per-host
// overrides loaded from a YAML file.
package config
