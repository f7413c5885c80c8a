package model

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion is the only canonical document version this package emits.
const SchemaVersion = "1.0"

// CanonicalDocument is the normalized site schema consumed by rendering
// front-ends. It is produced by the schema normalizer and must pass
// validation before it leaves the pipeline.
type CanonicalDocument struct {
	Version string          `json:"version"`
	Site    SiteInfo        `json:"site"`
	Nav     []NavItem       `json:"nav"`
	Pages   []CanonicalPage `json:"pages"`
}

// SiteInfo is the site-wide metadata of a canonical document.
type SiteInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`

	// BrandSeed is a hex color used to seed the renderer's palette.
	BrandSeed string `json:"brandSeed"`

	// Logo is the path or URL of the site logo, if one was found.
	Logo string `json:"logo,omitempty"`
}

// NavItem is one entry of the site navigation.
type NavItem struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// Hero is the lead heading and image pairing of a page.
type Hero struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Image    string `json:"image"`
}

// CanonicalPage is one page of the canonical document.
type CanonicalPage struct {
	Slug     string    `json:"slug"`
	Title    string    `json:"title"`
	Hero     *Hero     `json:"hero,omitempty"`
	Sections []Section `json:"sections"`
}

// canonicalPageJSON is the wire shape of CanonicalPage with sections kept raw.
type canonicalPageJSON struct {
	Slug     string            `json:"slug"`
	Title    string            `json:"title"`
	Hero     *Hero             `json:"hero,omitempty"`
	Sections []json.RawMessage `json:"sections"`
}

// MarshalJSON encodes the page with tagged sections.
// A nil section slice is written as an empty array.
func (p CanonicalPage) MarshalJSON() ([]byte, error) {
	out := canonicalPageJSON{
		Slug:     p.Slug,
		Title:    p.Title,
		Hero:     p.Hero,
		Sections: make([]json.RawMessage, 0, len(p.Sections)),
	}
	for i, s := range p.Sections {
		data, err := MarshalSection(s)
		if err != nil {
			return nil, fmt.Errorf("page %q section %d: %w", p.Slug, i, err)
		}
		out.Sections = append(out.Sections, data)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the page, rejecting unrecognized section tags.
// A missing sections array decodes to nil so that validation can tell it
// apart from an empty one.
func (p *CanonicalPage) UnmarshalJSON(data []byte) error {
	var in canonicalPageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.Slug = in.Slug
	p.Title = in.Title
	p.Hero = in.Hero
	p.Sections = nil
	if in.Sections == nil {
		return nil
	}
	p.Sections = make([]Section, 0, len(in.Sections))
	for i, raw := range in.Sections {
		s, err := UnmarshalSection(raw)
		if err != nil {
			return fmt.Errorf("page %q section %d: %w", in.Slug, i, err)
		}
		p.Sections = append(p.Sections, s)
	}
	return nil
}
