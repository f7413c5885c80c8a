package fetcher

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch is matched by every FetchError.
	ErrFetch = errors.New("fetch failed")

	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrNotHTML is returned when the response is not an HTML document.
	ErrNotHTML = errors.New("response is not HTML")

	// ErrBodyTooLarge is returned when a body exceeds the size limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrUnsupportedScheme is returned for URLs other than http(s).
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

// FetchError reports a network, timeout or navigation failure for one URL.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrFetch) true for any FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}
