package pipeline

import "errors"

var (
	// ErrNoPages is returned when a crawl produced an empty page table,
	// typically because the seed itself could not be fetched.
	ErrNoPages = errors.New("crawl produced no pages")

	// ErrNoDocument is returned by steps that need the canonical document
	// when no earlier step produced one.
	ErrNoDocument = errors.New("no canonical document to emit")
)
