// Package config provides configuration structures and utilities for sitepack.
// It defines the crawl bounds, fetch and politeness settings, cache and
// output locations, and the per-site overrides read from the YAML file.
package config
