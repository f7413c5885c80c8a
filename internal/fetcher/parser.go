package fetcher

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/sitepack/internal/model"
)

// Parser extracts head metadata and same-host links from a document.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult is what Parser finds in one document.
type ParseResult struct {
	Metadata model.PageMetadata

	// Links are absolute same-host links without fragments, deduplicated,
	// in document order.
	Links []string
}

// NewParser creates a Parser that resolves relative URLs against baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses the document once and reads metadata and links from the tree.
func (p *Parser) Parse(content string) (*ParseResult, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Metadata: p.metadata(goquery.NewDocumentFromNode(root)),
		Links:    make([]string, 0),
	}

	seen := make(map[string]struct{})
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if link := p.sameHostLink(getAttr(n, "href")); link != "" {
				if _, dup := seen[link]; !dup {
					seen[link] = struct{}{}
					result.Links = append(result.Links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return result, nil
}

func (p *Parser) metadata(doc *goquery.Document) model.PageMetadata {
	meta := func(selector string) string {
		return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
	}

	md := model.PageMetadata{
		Title:         strings.TrimSpace(doc.Find("head title").First().Text()),
		Description:   meta(`meta[name="description"]`),
		Keywords:      meta(`meta[name="keywords"]`),
		OGTitle:       meta(`meta[property="og:title"]`),
		OGDescription: meta(`meta[property="og:description"]`),
		OGImage:       p.resolveURL(meta(`meta[property="og:image"]`)),
		Canonical:     p.resolveURL(strings.TrimSpace(doc.Find(`link[rel="canonical"]`).First().AttrOr("href", ""))),
	}
	if md.Title == "" {
		md.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if md.Description == "" {
		md.Description = md.OGDescription
	}
	return md
}

// sameHostLink resolves href and returns it only when it is an http(s)
// URL on the page's own host.
func (p *Parser) sameHostLink(href string) string {
	resolved := p.resolveURL(href)
	if resolved == "" {
		return ""
	}
	u, err := url.Parse(resolved)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if !strings.EqualFold(u.Host, p.baseURL.Host) {
		return ""
	}
	return resolved
}

// resolveURL resolves a relative URL against the base URL and drops the
// fragment. Script, mail, phone, data and fragment-only references
// resolve to "".
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
