package schema

import "strings"

// DefaultBrandSeed is returned when no theme keyword matches.
const DefaultBrandSeed = "#2196F3"

type theme struct {
	name     string
	color    string
	keywords []string
}

// themes are tested in order; the first group with a matching keyword wins.
var themes = []theme{
	{
		name:     "arts",
		color:    "#9C27B0",
		keywords: []string{"art", "culture", "museum", "gallery", "theater", "theatre", "music", "bayou"},
	},
	{
		name:     "business",
		color:    "#2196F3",
		keywords: []string{"business", "consult", "finance", "law", "corporate", "company"},
	},
	{
		name:     "education",
		color:    "#4CAF50",
		keywords: []string{"school", "education", "university", "college", "academy", "learn"},
	},
	{
		name:     "health",
		color:    "#E91E63",
		keywords: []string{"health", "medical", "clinic", "wellness", "hospital", "dental"},
	},
	{
		name:     "tech",
		color:    "#FF9800",
		keywords: []string{"tech", "software", "digital", "cloud", "data", "developer"},
	},
}

// BrandSeed classifies a site into a theme color by substring matching
// the lowercased domain, title and description against keyword groups.
func BrandSeed(domain, title, description string) string {
	color, _ := classify(domain, title, description)
	return color
}

// BrandTheme returns the name of the theme BrandSeed picks, or "default".
func BrandTheme(domain, title, description string) string {
	_, name := classify(domain, title, description)
	return name
}

func classify(domain, title, description string) (string, string) {
	haystack := strings.ToLower(domain + " " + title + " " + description)
	for _, t := range themes {
		for _, kw := range t.keywords {
			if strings.Contains(haystack, kw) {
				return t.color, t.name
			}
		}
	}
	return DefaultBrandSeed, "default"
}
