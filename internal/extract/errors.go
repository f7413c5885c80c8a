package extract

import (
	"errors"
	"fmt"
)

// ErrExtraction is matched by every ExtractionError.
var ErrExtraction = errors.New("content extraction failed")

// ExtractionError reports a page whose markup could not be processed.
// The page contributes an empty content set.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExtraction) true for any ExtractionError.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}
