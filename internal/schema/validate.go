package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nao1215/sitepack/internal/model"
)

// Validate checks the structural invariants of a canonical document and
// returns a *SchemaValidationError naming the first violation.
func Validate(doc *model.CanonicalDocument) error {
	if doc == nil {
		return &SchemaValidationError{Section: noSection, Field: "document", Reason: "is nil"}
	}
	if doc.Version != model.SchemaVersion {
		return &SchemaValidationError{
			Section: noSection,
			Field:   "version",
			Reason:  fmt.Sprintf("must be %q, got %q", model.SchemaVersion, doc.Version),
		}
	}
	if doc.Site.Title == "" {
		return &SchemaValidationError{Section: noSection, Field: "site.title", Reason: "must not be empty"}
	}
	if len(doc.Nav) == 0 {
		return &SchemaValidationError{Section: noSection, Field: "nav", Reason: "must not be empty"}
	}
	if len(doc.Pages) == 0 {
		return &SchemaValidationError{Section: noSection, Field: "pages", Reason: "must not be empty"}
	}

	for i, page := range doc.Pages {
		if page.Slug == "" {
			return &SchemaValidationError{Page: "#" + strconv.Itoa(i), Section: noSection, Field: "slug", Reason: "must not be empty"}
		}
		name := page.Slug
		if page.Title == "" {
			return &SchemaValidationError{Page: name, Section: noSection, Field: "title", Reason: "must not be empty"}
		}
		if page.Sections == nil {
			return &SchemaValidationError{Page: name, Section: noSection, Field: "sections", Reason: "must be present"}
		}
		for j, s := range page.Sections {
			if err := validateSection(s); err != nil {
				err.Page = name
				err.Section = j
				return err
			}
		}
	}
	return nil
}

func validateSection(s model.Section) *SchemaValidationError {
	if s == nil {
		return &SchemaValidationError{Field: "type", Reason: "section is nil"}
	}
	if !s.Type().Known() {
		return &SchemaValidationError{Field: "type", Reason: fmt.Sprintf("unrecognized section type %q", s.Type())}
	}
	if h, ok := s.(model.HeadingSection); ok && (h.Level < 1 || h.Level > 6) {
		return &SchemaValidationError{Field: "level", Reason: fmt.Sprintf("must be between 1 and 6, got %d", h.Level)}
	}
	return nil
}

// ValidateJSON decodes and validates a serialized canonical document.
// Sections with an unrecognized type are reported as validation errors.
func ValidateJSON(data []byte) (*model.CanonicalDocument, error) {
	var doc model.CanonicalDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		var unknown *model.UnknownSectionError
		if errors.As(err, &unknown) {
			return nil, &SchemaValidationError{
				Section: noSection,
				Field:   "sections.type",
				Reason:  unknown.Error(),
			}
		}
		return nil, fmt.Errorf("failed to decode canonical document: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
