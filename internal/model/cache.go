package model

import "time"

// CacheEntry records a completed crawl so that a later run can skip it.
type CacheEntry struct {
	// CacheKey is the normalized URL joined with the options fingerprint.
	CacheKey  string        `json:"cacheKey"`
	URL       string        `json:"url"`
	Timestamp time.Time     `json:"timestamp"`
	Options   CrawlOptions  `json:"options"`
	Metadata  CacheMetadata `json:"metadata"`
}

// CacheMetadata summarizes the result of the recorded crawl.
type CacheMetadata struct {
	PagesCount  int `json:"pagesCount"`
	AssetsCount int `json:"assetsCount"`
	CrawlDepth  int `json:"crawlDepth"`
	MaxPages    int `json:"maxPages"`
}

// Age returns how old the entry is relative to now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}
