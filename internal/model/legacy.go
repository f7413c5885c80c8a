package model

// LegacyDocument is the flat crawl JSON consumed by template rendering.
// Field names are a compatibility surface.
type LegacyDocument struct {
	Metadata   LegacyMetadata   `json:"metadata"`
	Pages      []PageRecord     `json:"pages"`
	Assets     []AssetRecord    `json:"assets"`
	Navigation []LegacyNavEntry `json:"navigation"`
}

// LegacyMetadata is the site-level block of the legacy document.
type LegacyMetadata struct {
	Domain      string `json:"domain"`
	BaseURL     string `json:"baseUrl"`
	TotalPages  int    `json:"totalPages"`
	TotalAssets int    `json:"totalAssets"`

	// CrawledAt is an RFC 3339 timestamp.
	CrawledAt   string `json:"crawledAt"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

// LegacyNavEntry is one navigation link of the legacy document.
type LegacyNavEntry struct {
	Text string `json:"text"`
	Href string `json:"href"`

	// Path is the page path of the target when it was crawled.
	Path string `json:"path,omitempty"`
}
