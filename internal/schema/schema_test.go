package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/nao1215/sitepack/internal/model"
)

func aboutPage() *model.PageRecord {
	return &model.PageRecord{
		URL:      "https://bayouarts.org/about",
		Path:     "about.html",
		Metadata: model.PageMetadata{Title: "About Us", Description: "Who we are"},
		Content: &model.PageContent{
			Headings:   []model.Heading{{Level: 1, Text: "About Us"}, {Level: 2, Text: "History"}},
			Paragraphs: []string{"Founded in 1975.", "  "},
			Images: []model.Image{
				{Src: "https://bayouarts.org/img/team.jpg", Alt: "Team", Caption: "The team"},
				{Src: "https://bayouarts.org/img/stage.jpg", Alt: "Stage"},
			},
			Links: []model.Link{
				{Href: "https://bayouarts.org/donate", Text: "Donate"},
				{Href: "", Text: "Broken"},
			},
			Lists:  []model.List{{Type: "ul", Items: []string{"Music", "Dance"}}, {Type: "ol", Items: []string{}}},
			Tables: []model.Table{{Rows: [][]string{{"Day", "Event"}, {"Sat", "<script>alert(1)</script>"}}}},
		},
	}
}

func homePage() *model.PageRecord {
	return &model.PageRecord{
		URL:      "https://bayouarts.org/",
		Path:     "index.html",
		Metadata: model.PageMetadata{Title: "Bayou Arts Council", Description: "Arts for the bayou", Keywords: "arts"},
		Content: &model.PageContent{
			Headings:       []model.Heading{{Level: 1, Text: "Welcome"}},
			Images:         []model.Image{{Src: "https://bayouarts.org/img/hero.jpg", Alt: "Hero"}},
			LogoCandidates: []model.Image{{Src: "https://bayouarts.org/img/logo.png", Alt: "Logo"}},
			NavLinks: []model.Link{
				{Href: "https://bayouarts.org/", Text: "Home"},
				{Href: "https://bayouarts.org/about/", Text: "About"},
				{Href: "https://bayouarts.org/events", Text: "Events"},
			},
		},
	}
}

func crawlResult() CrawlResult {
	return CrawlResult{
		Domain:  "bayouarts.org",
		BaseURL: "https://bayouarts.org/",
		Pages:   []*model.PageRecord{homePage(), aboutPage()},
		Assets: []model.AssetRecord{
			{SourceURL: "https://bayouarts.org/img/team.jpg", Path: "assets/img/team.jpg", Type: model.AssetImage},
			{SourceURL: "https://bayouarts.org/img/logo.png", Path: "assets/img/logo.png", Type: model.AssetImage},
		},
	}
}

func TestNormalizeSectionOrder(t *testing.T) {
	t.Parallel()

	doc := NewNormalizer(WithLocalAssets(false)).Normalize(crawlResult())
	about := doc.Pages[1]

	if about.Slug != "about" || about.Title != "About Us" {
		t.Fatalf("unexpected page %q %q", about.Slug, about.Title)
	}

	want := []model.Section{
		model.HeadingSection{Level: 1, Text: "About Us"},
		model.ImageSection{Src: "https://bayouarts.org/img/team.jpg", Alt: "Team", Caption: "The team"},
		model.ParagraphSection{Text: "Who we are"},
		model.HeadingSection{Level: 1, Text: "About Us"},
		model.HeadingSection{Level: 2, Text: "History"},
		model.ParagraphSection{Text: "Founded in 1975."},
		model.GallerySection{Items: []string{"https://bayouarts.org/img/team.jpg", "https://bayouarts.org/img/stage.jpg"}},
		model.ButtonSection{Text: "Donate", Href: "https://bayouarts.org/donate"},
		model.ListSection{Items: []string{"Music", "Dance"}},
	}
	if len(about.Sections) != len(want)+1 {
		t.Fatalf("expected %d sections, got %d: %+v", len(want)+1, len(about.Sections), about.Sections)
	}
	for i, w := range want {
		got, _ := model.MarshalSection(about.Sections[i])
		exp, _ := model.MarshalSection(w)
		if string(got) != string(exp) {
			t.Errorf("section %d: expected %s, got %s", i, exp, got)
		}
	}

	if about.Hero == nil {
		t.Fatal("expected hero")
	}
	if *about.Hero != (model.Hero{Title: "About Us", Subtitle: "Who we are", Image: "https://bayouarts.org/img/team.jpg"}) {
		t.Errorf("unexpected hero %+v", *about.Hero)
	}
}

func TestNormalizeTableIsSanitized(t *testing.T) {
	t.Parallel()

	doc := NewNormalizer().Normalize(crawlResult())
	sections := doc.Pages[1].Sections
	last, ok := sections[len(sections)-1].(model.HTMLSection)
	if !ok {
		t.Fatalf("expected html section, got %T", sections[len(sections)-1])
	}
	if strings.Contains(last.Raw, "<script>") {
		t.Errorf("script survived sanitizing: %q", last.Raw)
	}
	if !strings.Contains(last.Raw, "<td>Day</td>") {
		t.Errorf("expected table cells, got %q", last.Raw)
	}
}

func TestNormalizeImages(t *testing.T) {
	t.Parallel()

	t.Run("single image is emitted once", func(t *testing.T) {
		t.Parallel()

		doc := NewNormalizer().Normalize(crawlResult())
		home := doc.Pages[0]
		count := 0
		for _, s := range home.Sections {
			switch s.Type() {
			case model.SectionImage:
				count++
			case model.SectionGallery:
				t.Errorf("unexpected gallery on single image page")
			}
		}
		if count != 1 {
			t.Errorf("expected 1 image section, got %d", count)
		}
	})

	t.Run("downloaded images use asset paths", func(t *testing.T) {
		t.Parallel()

		doc := NewNormalizer().Normalize(crawlResult())
		about := doc.Pages[1]
		if about.Hero.Image != "assets/img/team.jpg" {
			t.Errorf("expected local hero image, got %q", about.Hero.Image)
		}
		if img := about.Sections[1].(model.ImageSection); img.Src != "assets/img/team.jpg" {
			t.Errorf("expected local image, got %q", img.Src)
		}
		if doc.Site.Logo != "assets/img/logo.png" {
			t.Errorf("expected local logo, got %q", doc.Site.Logo)
		}
	})

	t.Run("hero subtitle falls back to the first content block", func(t *testing.T) {
		t.Parallel()

		content := model.NewPageContent()
		content.Images = []model.Image{{Src: "https://example.com/img/pier.jpg", Alt: "Pier"}}
		content.ContentBlocks = []model.ContentBlock{
			{Tag: "main", Text: "Boat tours leave the pier every hour.  Tickets are sold at the kiosk."},
			{Tag: "section", Text: "Second block that must not be used for the subtitle at all."},
		}
		page := &model.PageRecord{URL: "https://example.com/tours", Path: "tours.html", Content: content}

		doc := NewNormalizer().Normalize(CrawlResult{Domain: "example.com", Pages: []*model.PageRecord{page}})
		hero := doc.Pages[0].Hero
		if hero == nil {
			t.Fatal("expected hero")
		}
		if hero.Subtitle != "Boat tours leave the pier every hour." {
			t.Errorf("unexpected subtitle %q", hero.Subtitle)
		}
		for _, s := range doc.Pages[0].Sections {
			if p, ok := s.(model.ParagraphSection); ok && p.Text == hero.Subtitle {
				t.Error("subtitle must not add a description paragraph")
			}
		}
	})

	t.Run("page without images has no hero", func(t *testing.T) {
		t.Parallel()

		page := &model.PageRecord{URL: "https://example.com/contact", Path: "contact.html"}
		doc := NewNormalizer().Normalize(CrawlResult{Domain: "example.com", Pages: []*model.PageRecord{page}})
		cp := doc.Pages[0]
		if cp.Hero != nil {
			t.Errorf("unexpected hero %+v", cp.Hero)
		}
		if len(cp.Sections) != 1 || cp.Sections[0] != (model.HeadingSection{Level: 1, Text: "Contact"}) {
			t.Errorf("unexpected sections %+v", cp.Sections)
		}
	})
}

func TestNormalizeSite(t *testing.T) {
	t.Parallel()

	doc := NewNormalizer().Normalize(crawlResult())

	if doc.Version != model.SchemaVersion {
		t.Errorf("unexpected version %q", doc.Version)
	}
	if doc.Site.Title != "Bayou Arts Council" || doc.Site.Description != "Arts for the bayou" {
		t.Errorf("unexpected site %+v", doc.Site)
	}
	if doc.Site.BrandSeed != "#9C27B0" {
		t.Errorf("expected arts brand seed, got %q", doc.Site.BrandSeed)
	}

	want := []model.NavItem{{Title: "Home", Slug: "index"}, {Title: "About", Slug: "about"}}
	if len(doc.Nav) != len(want) {
		t.Fatalf("expected %v, got %v", want, doc.Nav)
	}
	for i := range want {
		if doc.Nav[i] != want[i] {
			t.Errorf("nav %d: expected %+v, got %+v", i, want[i], doc.Nav[i])
		}
	}
}

func TestNormalizeDuplicateSlugs(t *testing.T) {
	t.Parallel()

	pages := []*model.PageRecord{
		{URL: "https://example.com/a b", Path: "a_b.html"},
		{URL: "https://example.com/a_b", Path: "a_b.html"},
	}
	doc := NewNormalizer().Normalize(CrawlResult{Domain: "example.com", Pages: pages})
	if doc.Pages[0].Slug != "a_b" || doc.Pages[1].Slug != "a_b-2" {
		t.Errorf("unexpected slugs %q %q", doc.Pages[0].Slug, doc.Pages[1].Slug)
	}
}

func TestBrandSeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		domain      string
		title       string
		description string
		want        string
	}{
		{name: "arts wins over later groups", domain: "bayouarts.org", title: "Bayou Arts Council", want: "#9C27B0"},
		{name: "business", domain: "acme.com", title: "Acme Consulting", want: "#2196F3"},
		{name: "education", domain: "springfield.edu", title: "Springfield School", want: "#4CAF50"},
		{name: "health", domain: "example.com", title: "Family Clinic", want: "#E91E63"},
		{name: "tech", domain: "example.io", title: "Widget", description: "Software for teams", want: "#FF9800"},
		{name: "case insensitive", domain: "EXAMPLE.COM", title: "CITY MUSEUM", want: "#9C27B0"},
		{name: "default", domain: "example.com", title: "Joe's Diner", want: DefaultBrandSeed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := BrandSeed(tt.domain, tt.title, tt.description); got != tt.want {
				t.Errorf("BrandSeed() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := BrandTheme("bayouarts.org", "Bayou Arts Council", ""); got != "arts" {
		t.Errorf("BrandTheme() = %q, want arts", got)
	}
}

func TestNavTitle(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"index":              "Home",
		"about-us":           "About Us",
		"events/summer_fest": "Summer Fest",
		"blog/index":         "Blog",
		"docs/guide.php":     "Guide",
	}
	for in, want := range tests {
		if got := NavTitle(in); got != want {
			t.Errorf("NavTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func validDocument() *model.CanonicalDocument {
	return &model.CanonicalDocument{
		Version: model.SchemaVersion,
		Site:    model.SiteInfo{Title: "Example", BrandSeed: DefaultBrandSeed},
		Nav:     []model.NavItem{{Title: "Home", Slug: "index"}},
		Pages: []model.CanonicalPage{
			{Slug: "index", Title: "Home", Sections: []model.Section{model.HeadingSection{Level: 1, Text: "Home"}}},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*model.CanonicalDocument)
		field  string
	}{
		{name: "valid", mutate: func(*model.CanonicalDocument) {}},
		{name: "wrong version", mutate: func(d *model.CanonicalDocument) { d.Version = "2.0" }, field: "version"},
		{name: "empty site title", mutate: func(d *model.CanonicalDocument) { d.Site.Title = "" }, field: "site.title"},
		{name: "empty nav", mutate: func(d *model.CanonicalDocument) { d.Nav = nil }, field: "nav"},
		{name: "empty pages", mutate: func(d *model.CanonicalDocument) { d.Pages = []model.CanonicalPage{} }, field: "pages"},
		{name: "empty slug", mutate: func(d *model.CanonicalDocument) { d.Pages[0].Slug = "" }, field: "slug"},
		{name: "empty page title", mutate: func(d *model.CanonicalDocument) { d.Pages[0].Title = "" }, field: "title"},
		{name: "missing sections", mutate: func(d *model.CanonicalDocument) { d.Pages[0].Sections = nil }, field: "sections"},
		{name: "empty sections are allowed", mutate: func(d *model.CanonicalDocument) { d.Pages[0].Sections = []model.Section{} }},
		{name: "nil section", mutate: func(d *model.CanonicalDocument) { d.Pages[0].Sections = []model.Section{nil} }, field: "type"},
		{
			name: "heading level out of range",
			mutate: func(d *model.CanonicalDocument) {
				d.Pages[0].Sections = []model.Section{model.HeadingSection{Level: 7, Text: "x"}}
			},
			field: "level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := validDocument()
			tt.mutate(doc)
			err := Validate(doc)

			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *SchemaValidationError
			if !errors.As(err, &verr) || !errors.Is(err, ErrSchemaValidation) {
				t.Fatalf("expected SchemaValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q (%v)", tt.field, verr.Field, err)
			}
		})
	}

	if err := Validate(nil); !errors.Is(err, ErrSchemaValidation) {
		t.Errorf("expected validation error for nil document, got %v", err)
	}
}

func TestValidateNamesOffendingSection(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Pages[0].Sections = append(doc.Pages[0].Sections, model.HeadingSection{Level: 0, Text: "bad"})

	var verr *SchemaValidationError
	if !errors.As(Validate(doc), &verr) {
		t.Fatal("expected SchemaValidationError")
	}
	if verr.Page != "index" || verr.Section != 1 {
		t.Errorf("expected page index section 1, got %q %d", verr.Page, verr.Section)
	}
	if !strings.Contains(verr.Error(), "page index section 1") {
		t.Errorf("unexpected message %q", verr.Error())
	}
}

func TestValidateNormalized(t *testing.T) {
	t.Parallel()

	inputs := map[string]CrawlResult{
		"full crawl": crawlResult(),
		"page without content": {
			Domain: "example.com",
			Pages:  []*model.PageRecord{{URL: "https://example.com/", Path: "index.html"}},
		},
		"headings only": {
			Domain: "example.com",
			Pages: []*model.PageRecord{{
				URL:     "https://example.com/faq",
				Path:    "faq.html",
				Content: &model.PageContent{Headings: []model.Heading{{Level: 2, Text: "Questions"}}},
			}},
		},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			doc := NewNormalizer().Normalize(in)
			if err := Validate(doc); err != nil {
				t.Fatalf("normalized document failed validation: %v", err)
			}

			data, err := json.Marshal(doc)
			if err != nil {
				t.Fatalf("failed to marshal: %v", err)
			}
			if _, err := ValidateJSON(data); err != nil {
				t.Fatalf("serialized document failed validation: %v", err)
			}
		})
	}
}

func TestValidateJSON(t *testing.T) {
	t.Parallel()

	t.Run("unknown section type", func(t *testing.T) {
		t.Parallel()

		data := `{"version":"1.0","site":{"title":"x"},"nav":[{"title":"Home","slug":"index"}],
			"pages":[{"slug":"index","title":"Home","sections":[{"type":"carousel"}]}]}`
		_, err := ValidateJSON([]byte(data))
		var verr *SchemaValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected SchemaValidationError, got %v", err)
		}
		if !strings.Contains(verr.Reason, "carousel") {
			t.Errorf("expected reason to name the tag, got %q", verr.Reason)
		}
	})

	t.Run("missing sections", func(t *testing.T) {
		t.Parallel()

		data := `{"version":"1.0","site":{"title":"x"},"nav":[{"title":"Home","slug":"index"}],
			"pages":[{"slug":"index","title":"Home"}]}`
		if _, err := ValidateJSON([]byte(data)); !errors.Is(err, ErrSchemaValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("empty pages", func(t *testing.T) {
		t.Parallel()

		data := `{"version":"1.0","site":{"title":"x"},"nav":[{"title":"Home","slug":"index"}],"pages":[]}`
		if _, err := ValidateJSON([]byte(data)); !errors.Is(err, ErrSchemaValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		_, err := ValidateJSON([]byte(`{`))
		if err == nil || errors.Is(err, ErrSchemaValidation) {
			t.Fatalf("expected decode error, got %v", err)
		}
	})
}

func TestBuildLegacy(t *testing.T) {
	t.Parallel()

	crawledAt := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

	t.Run("navigation from seed nav links", func(t *testing.T) {
		t.Parallel()

		doc := BuildLegacy(crawlResult(), crawledAt)
		meta := doc.Metadata
		if meta.Domain != "bayouarts.org" || meta.TotalPages != 2 || meta.TotalAssets != 2 {
			t.Errorf("unexpected metadata %+v", meta)
		}
		if meta.CrawledAt != "2026-10-19T08:30:00Z" || meta.Title != "Bayou Arts Council" || meta.Keywords != "arts" {
			t.Errorf("unexpected metadata %+v", meta)
		}

		want := []model.LegacyNavEntry{
			{Text: "Home", Href: "https://bayouarts.org/", Path: "index.html"},
			{Text: "About", Href: "https://bayouarts.org/about/", Path: "about.html"},
			{Text: "Events", Href: "https://bayouarts.org/events"},
		}
		if len(doc.Navigation) != len(want) {
			t.Fatalf("expected %v, got %v", want, doc.Navigation)
		}
		for i := range want {
			if doc.Navigation[i] != want[i] {
				t.Errorf("nav %d: expected %+v, got %+v", i, want[i], doc.Navigation[i])
			}
		}
	})

	t.Run("navigation falls back to pages", func(t *testing.T) {
		t.Parallel()

		in := crawlResult()
		in.Pages[0].Content.NavLinks = nil
		doc := BuildLegacy(in, crawledAt)
		if len(doc.Navigation) != 2 || doc.Navigation[1].Text != "About Us" || doc.Navigation[1].Path != "about.html" {
			t.Errorf("unexpected navigation %+v", doc.Navigation)
		}
	})

	t.Run("field names", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(BuildLegacy(crawlResult(), crawledAt))
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		for _, key := range []string{`"metadata"`, `"baseUrl"`, `"totalPages"`, `"totalAssets"`, `"crawledAt"`, `"navigation"`, `"sourceUrl"`} {
			if !strings.Contains(string(data), key) {
				t.Errorf("missing key %s", key)
			}
		}
	})
}

func TestBlockLead(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 60)
	tests := []struct {
		name   string
		blocks []model.ContentBlock
		want   string
	}{
		{name: "no blocks", want: ""},
		{name: "short text", blocks: []model.ContentBlock{{Text: "Open daily"}}, want: "Open daily"},
		{name: "first sentence", blocks: []model.ContentBlock{{Text: "One. Two."}}, want: "One."},
		{name: "long text is cut at a word", blocks: []model.ContentBlock{{Text: long}}, want: strings.TrimSpace(strings.Repeat("word ", 31)) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := blockLead(tt.blocks)
			if got != tt.want {
				t.Errorf("blockLead() = %q, want %q", got, tt.want)
			}
			if utf8.RuneCountInString(got) > maxLeadRunes {
				t.Errorf("lead has %d runes", utf8.RuneCountInString(got))
			}
		})
	}
}
