package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitepack/internal/model"
)

// navigationSelector matches structural navigation regions.
const navigationSelector = `nav, [role="navigation"], [role="menu"], [role="menubar"]`

func (p *pageContext) headings(doc *goquery.Document) []model.Heading {
	out := make([]model.Heading, 0)
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s.Text())
		if text == "" {
			return
		}
		level := int(goquery.NodeName(s)[1] - '0')
		out = append(out, model.Heading{Level: level, Text: text})
	})
	return out
}

func (p *pageContext) paragraphs(doc *goquery.Document) []string {
	out := make([]string, 0)
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// images returns content images and, separately, images rejected as
// decorative because of the logo token. Both are deduplicated by source.
func (p *pageContext) images(doc *goquery.Document) ([]model.Image, []model.Image) {
	images := make([]model.Image, 0)
	logos := make([]model.Image, 0)
	seen := make(map[string]struct{})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if strings.TrimSpace(src) == "" || strings.HasPrefix(strings.TrimSpace(src), "data:") {
			src = s.AttrOr("data-src", "")
		}
		src = p.resolve(src)
		if src == "" {
			return
		}
		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}

		alt := cleanText(s.AttrOr("alt", ""))
		markers := s.AttrOr("class", "") + " " + alt
		img := model.Image{Src: src, Alt: alt, Caption: figureCaption(s)}

		if containsAny(markers, p.extractor.decorativeTokens) {
			if containsAny(markers, []string{logoToken}) {
				logos = append(logos, img)
			}
			return
		}
		images = append(images, img)
	})
	return images, logos
}

// figureCaption returns the figcaption of the figure enclosing the image.
func figureCaption(img *goquery.Selection) string {
	figure := img.Closest("figure")
	if figure.Length() == 0 {
		return ""
	}
	return cleanText(figure.Find("figcaption").First().Text())
}

// links returns content links: not inside structural navigation, no
// navigation token in the class, non-empty text.
func (p *pageContext) links(doc *goquery.Document) []model.Link {
	out := make([]model.Link, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if s.Closest(navigationSelector).Length() > 0 {
			return
		}
		if containsAny(s.AttrOr("class", ""), p.extractor.navigationTokens) {
			return
		}
		text := cleanText(s.Text())
		if text == "" {
			return
		}
		href := p.resolve(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		out = append(out, model.Link{Href: href, Text: text, IsExternal: p.isExternal(href)})
	})
	return out
}

// navLinks returns the anchors of structural navigation, deduplicated.
func (p *pageContext) navLinks(doc *goquery.Document) []model.Link {
	out := make([]model.Link, 0)
	seen := make(map[string]struct{})
	doc.Find(navigationSelector).Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s.Text())
		href := p.resolve(s.AttrOr("href", ""))
		if text == "" || href == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		out = append(out, model.Link{Href: href, Text: text, IsExternal: p.isExternal(href)})
	})
	return out
}

// lists returns every ul/ol outside structural navigation, one item per
// direct li child.
func (p *pageContext) lists(doc *goquery.Document) []model.List {
	out := make([]model.List, 0)
	doc.Find("ul, ol").Each(func(_ int, s *goquery.Selection) {
		if s.Closest(navigationSelector).Length() > 0 {
			return
		}
		items := make([]string, 0)
		s.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			if text := cleanText(li.Text()); text != "" {
				items = append(items, text)
			}
		})
		out = append(out, model.List{Type: goquery.NodeName(s), Items: items})
	})
	return out
}

func (p *pageContext) tables(doc *goquery.Document) []model.Table {
	out := make([]model.Table, 0)
	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		rows := make([][]string, 0)
		s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			// Rows of nested tables belong to the nested table.
			if !tr.Closest("table").IsSelection(s) {
				return
			}
			cells := make([]string, 0)
			tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, cleanText(cell.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})
		out = append(out, model.Table{Rows: rows})
	})
	return out
}

// HTML element names for form field detection.
const (
	htmlElementInput    = "input"
	htmlElementSelect   = "select"
	htmlElementTextarea = "textarea"
)

func (p *pageContext) forms(doc *goquery.Document) []model.Form {
	out := make([]model.Form, 0)
	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		action := p.resolve(s.AttrOr("action", ""))
		if action == "" {
			action = p.base.String()
		}
		method := strings.ToUpper(strings.TrimSpace(s.AttrOr("method", "")))
		if method == "" {
			method = "GET"
		}

		form := model.Form{Action: action, Method: method, Inputs: make([]model.FormInput, 0)}
		s.Find("input, select, textarea").Each(func(_ int, in *goquery.Selection) {
			name := goquery.NodeName(in)
			typ := strings.ToLower(in.AttrOr("type", ""))
			if typ == "" {
				switch name {
				case htmlElementTextarea:
					typ = htmlElementTextarea
				case htmlElementSelect:
					typ = htmlElementSelect
				default:
					typ = "text"
				}
			}
			_, required := in.Attr("required")
			form.Inputs = append(form.Inputs, model.FormInput{
				Type:        typ,
				Name:        in.AttrOr("name", ""),
				Placeholder: in.AttrOr("placeholder", ""),
				Required:    required,
			})
		})
		out = append(out, form)
	})
	return out
}
