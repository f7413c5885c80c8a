package model

// CrawlOptions bounds a single crawl invocation.
// It is immutable for the duration of a crawl and is part of the cache key.
type CrawlOptions struct {
	// MaxDepth is the maximum link distance from the seed URL.
	// 0 means only the seed page is fetched.
	MaxDepth int `json:"maxDepth"`

	// MaxPages is the hard ceiling on the number of pages in the page table.
	MaxPages int `json:"maxPages"`
}

// Valid reports whether the options describe a crawl that can run.
func (o CrawlOptions) Valid() bool {
	return o.MaxDepth >= 0 && o.MaxPages >= 1
}
