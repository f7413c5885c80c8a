package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/sitepack/internal/model"
)

// blockSelector matches elements that may hold the main content.
const blockSelector = `main, article, section, [role="main"], .content, #content, .container, .main`

// chromeTokens mark structural chrome when one of them is a whole class
// token or the id. Substrings do not count, so "unavailable" or
// "hero-banner" stay content.
var chromeTokens = map[string]struct{}{
	"sidebar": {}, "footer": {}, "header": {}, "nav": {}, "navbar": {},
	"navigation": {}, "menu": {}, "breadcrumb": {}, "breadcrumbs": {},
	"cookie": {}, "cookie-banner": {}, "cookie-consent": {}, "banner": {},
	"advert": {}, "ad": {}, "ads": {},
	"site-header": {}, "site-footer": {}, "site-nav": {}, "main-nav": {},
}

// contentBlocks parses the markup again, removes every chrome region and
// returns the remaining content containers whose text is long enough.
// Containers nested in an already selected block are skipped.
func (p *pageContext) contentBlocks(markup string) ([]model.ContentBlock, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	stripChrome(root)

	doc := goquery.NewDocumentFromNode(root)
	taken := make(map[*html.Node]struct{})
	out := make([]model.ContentBlock, 0)

	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		for n := s.Get(0).Parent; n != nil; n = n.Parent {
			if _, ok := taken[n]; ok {
				return
			}
		}

		text := cleanText(s.Text())
		if utf8.RuneCountInString(text) <= p.extractor.minBlockText {
			return
		}
		taken[s.Get(0)] = struct{}{}

		out = append(out, model.ContentBlock{
			Tag:      goquery.NodeName(s),
			Text:     text,
			Markdown: p.markdown(s),
		})
	})
	return out, nil
}

func (p *pageContext) markdown(s *goquery.Selection) string {
	outer, err := goquery.OuterHtml(s)
	if err != nil {
		return ""
	}
	md, err := p.extractor.markdown.ConvertString(outer, converter.WithDomain(p.base.String()))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(md)
}

// stripChrome removes chrome subtrees and non-content elements in place.
func stripChrome(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && (isChrome(c) || isNonContent(c)) {
			n.RemoveChild(c)
		} else {
			stripChrome(c)
		}
		c = next
	}
}

func hasChromeToken(val string) bool {
	for _, tok := range strings.Fields(strings.ToLower(val)) {
		if _, ok := chromeTokens[tok]; ok {
			return true
		}
	}
	return false
}

func isNonContent(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template:
		return true
	}
	return false
}

// isChrome checks if a node is navigation, header, footer or sidebar.
func isChrome(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Nav, atom.Footer, atom.Header, atom.Aside:
		return true
	case atom.Html, atom.Body, atom.Main:
		return false
	}
	for _, attr := range n.Attr {
		switch attr.Key {
		case "class", "id":
			if hasChromeToken(attr.Val) {
				return true
			}
		case "role":
			switch strings.ToLower(attr.Val) {
			case "navigation", "banner", "contentinfo", "complementary", "menu", "menubar":
				return true
			}
		}
	}
	return false
}
