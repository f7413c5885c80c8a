package model

import (
	"encoding/json"
	"fmt"
)

// SectionType is the tag of a content section.
type SectionType string

// The eight recognized section tags.
const (
	SectionHeading   SectionType = "heading"
	SectionParagraph SectionType = "paragraph"
	SectionImage     SectionType = "image"
	SectionGallery   SectionType = "gallery"
	SectionList      SectionType = "list"
	SectionQuote     SectionType = "quote"
	SectionButton    SectionType = "button"
	SectionHTML      SectionType = "html"
)

// SectionTypes lists the recognized section tags in declaration order.
var SectionTypes = []SectionType{
	SectionHeading,
	SectionParagraph,
	SectionImage,
	SectionGallery,
	SectionList,
	SectionQuote,
	SectionButton,
	SectionHTML,
}

// Known reports whether t is one of the recognized section tags.
func (t SectionType) Known() bool {
	switch t {
	case SectionHeading, SectionParagraph, SectionImage, SectionGallery,
		SectionList, SectionQuote, SectionButton, SectionHTML:
		return true
	default:
		return false
	}
}

// Section is one typed content section of a canonical page.
// The set of implementations is closed: only the eight types in this
// file satisfy it.
type Section interface {
	// Type returns the section tag.
	Type() SectionType

	section()
}

// HeadingSection is a heading with a level between 1 and 6.
type HeadingSection struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// ParagraphSection is a block of text.
type ParagraphSection struct {
	Text string `json:"text"`
}

// ImageSection is a single image.
type ImageSection struct {
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Caption string `json:"caption,omitempty"`
}

// GallerySection is a set of image sources shown together.
type GallerySection struct {
	Items []string `json:"items"`
}

// ListSection is a list of text items.
type ListSection struct {
	Items []string `json:"items"`
}

// QuoteSection is a quotation.
type QuoteSection struct {
	Text string `json:"text"`
}

// ButtonSection is a call-to-action link.
type ButtonSection struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// HTMLSection carries sanitized raw markup.
type HTMLSection struct {
	Raw string `json:"raw"`
}

func (HeadingSection) Type() SectionType   { return SectionHeading }
func (ParagraphSection) Type() SectionType { return SectionParagraph }
func (ImageSection) Type() SectionType     { return SectionImage }
func (GallerySection) Type() SectionType   { return SectionGallery }
func (ListSection) Type() SectionType      { return SectionList }
func (QuoteSection) Type() SectionType     { return SectionQuote }
func (ButtonSection) Type() SectionType    { return SectionButton }
func (HTMLSection) Type() SectionType      { return SectionHTML }

func (HeadingSection) section()   {}
func (ParagraphSection) section() {}
func (ImageSection) section()     {}
func (GallerySection) section()   {}
func (ListSection) section()      {}
func (QuoteSection) section()     {}
func (ButtonSection) section()    {}
func (HTMLSection) section()      {}

// MarshalSection encodes a section as a flat JSON object with a "type" tag.
func MarshalSection(s Section) ([]byte, error) {
	var body any
	switch v := s.(type) {
	case HeadingSection:
		body = struct {
			Type SectionType `json:"type"`
			HeadingSection
		}{v.Type(), v}
	case ParagraphSection:
		body = struct {
			Type SectionType `json:"type"`
			ParagraphSection
		}{v.Type(), v}
	case ImageSection:
		body = struct {
			Type SectionType `json:"type"`
			ImageSection
		}{v.Type(), v}
	case GallerySection:
		body = struct {
			Type SectionType `json:"type"`
			GallerySection
		}{v.Type(), v}
	case ListSection:
		body = struct {
			Type SectionType `json:"type"`
			ListSection
		}{v.Type(), v}
	case QuoteSection:
		body = struct {
			Type SectionType `json:"type"`
			QuoteSection
		}{v.Type(), v}
	case ButtonSection:
		body = struct {
			Type SectionType `json:"type"`
			ButtonSection
		}{v.Type(), v}
	case HTMLSection:
		body = struct {
			Type SectionType `json:"type"`
			HTMLSection
		}{v.Type(), v}
	default:
		return nil, fmt.Errorf("unsupported section implementation %T", s)
	}
	return json.Marshal(body)
}

// UnknownSectionError is returned when a section carries a tag outside
// the recognized set.
type UnknownSectionError struct {
	Tag string
}

func (e *UnknownSectionError) Error() string {
	return fmt.Sprintf("unrecognized section type %q", e.Tag)
}

// UnmarshalSection decodes a tagged JSON object into its concrete section.
// Unrecognized tags are an error, never a silently dropped section.
func UnmarshalSection(data []byte) (Section, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("failed to read section type: %w", err)
	}

	switch SectionType(tag.Type) {
	case SectionHeading:
		var s HeadingSection
		return s, decodeInto(data, &s)
	case SectionParagraph:
		var s ParagraphSection
		return s, decodeInto(data, &s)
	case SectionImage:
		var s ImageSection
		return s, decodeInto(data, &s)
	case SectionGallery:
		var s GallerySection
		return s, decodeInto(data, &s)
	case SectionList:
		var s ListSection
		return s, decodeInto(data, &s)
	case SectionQuote:
		var s QuoteSection
		return s, decodeInto(data, &s)
	case SectionButton:
		var s ButtonSection
		return s, decodeInto(data, &s)
	case SectionHTML:
		var s HTMLSection
		return s, decodeInto(data, &s)
	default:
		return nil, &UnknownSectionError{Tag: tag.Type}
	}
}

func decodeInto(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode section: %w", err)
	}
	return nil
}
