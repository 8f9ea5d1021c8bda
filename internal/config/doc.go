// Package config provides configuration structures and utilities for webxtract.
// It defines the crawl budget defaults, fetch options, report preferences and
// the optional .webxtract YAML file with per-site overrides.
package config
