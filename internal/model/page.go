package model

// PageRecord represents a crawled page.
// One record exists per unique URL in a crawl run. The record is created
// when the URL is fetched and is only mutated afterwards to attach the
// extraction results in Content.
type PageRecord struct {
	// URL is the absolute URL the page was requested with.
	URL string `json:"url"`

	// HTML is the final (rendered, if a renderer was used) document markup.
	HTML string `json:"html"`

	// Metadata holds the head-level information of the page.
	Metadata PageMetadata `json:"metadata"`

	// Depth is the link distance from the seed URL.
	Depth int `json:"depth"`

	// Path is the filesystem-safe slug derived from the URL path.
	// The root page maps to "index.html".
	Path string `json:"path"`

	// Content holds the extracted content primitives.
	// Nil until extraction ran; empty when extraction failed.
	Content *PageContent `json:"content,omitempty"`
}

// PageMetadata is the head-level information of a page.
type PageMetadata struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Keywords      string `json:"keywords"`
	Canonical     string `json:"canonical"`
	OGTitle       string `json:"ogTitle"`
	OGDescription string `json:"ogDescription"`
	OGImage       string `json:"ogImage"`
}

// PageContent contains the typed content primitives extracted from one page.
// Everything in here is "message" content; structural chrome has already
// been filtered out by the extractor.
type PageContent struct {
	Headings      []Heading      `json:"headings"`
	Paragraphs    []string       `json:"paragraphs"`
	Images        []Image        `json:"images"`
	Links         []Link         `json:"links"`
	Lists         []List         `json:"lists"`
	Tables        []Table        `json:"tables"`
	Forms         []Form         `json:"forms"`
	ContentBlocks []ContentBlock `json:"contentBlocks"`

	// NavLinks are anchors found inside structural navigation.
	// They never reach the canonical sections; they seed the legacy
	// navigation list.
	NavLinks []Link `json:"navLinks,omitempty"`

	// LogoCandidates are images rejected as decorative because they
	// carry the "logo" token. The first one on the seed page becomes
	// the site logo.
	LogoCandidates []Image `json:"logoCandidates,omitempty"`
}

// NewPageContent returns a PageContent with all slices initialised,
// so that an empty content set serializes as empty arrays.
func NewPageContent() *PageContent {
	return &PageContent{
		Headings:      make([]Heading, 0),
		Paragraphs:    make([]string, 0),
		Images:        make([]Image, 0),
		Links:         make([]Link, 0),
		Lists:         make([]List, 0),
		Tables:        make([]Table, 0),
		Forms:         make([]Form, 0),
		ContentBlocks: make([]ContentBlock, 0),
	}
}

// Heading is an h1-h6 element.
type Heading struct {
	// Level is the numeric heading level, 1 through 6.
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Image is a content image.
type Image struct {
	// Src is the absolute image URL.
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Caption string `json:"caption,omitempty"`
}

// Link is a content link.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`

	// IsExternal is true when the link target host differs from the
	// crawled domain.
	IsExternal bool `json:"isExternal"`
}

// List is a ul or ol element.
type List struct {
	// Type is "ul" or "ol".
	Type  string   `json:"type"`
	Items []string `json:"items"`
}

// Table is a table element in row-major order.
// Header and data cells are both captured as text.
type Table struct {
	Rows [][]string `json:"rows"`
}

// Form represents an HTML form element.
type Form struct {
	// Action is the resolved form action URL.
	Action string `json:"action"`

	// Method is the upper-cased HTTP method; GET when unspecified.
	Method string      `json:"method"`
	Inputs []FormInput `json:"inputs"`
}

// FormInput represents an input, select or textarea inside a form.
type FormInput struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
}

// ContentBlock is a main/article/section/container element whose rendered
// text is long enough to count as meaningful content.
type ContentBlock struct {
	// Tag is the element name the block was found on.
	Tag  string `json:"tag"`
	Text string `json:"text"`

	// Markdown is a Markdown rendition of the block's markup.
	Markdown string `json:"markdown,omitempty"`
}
