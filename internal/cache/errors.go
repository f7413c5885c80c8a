package cache

import (
	"errors"
	"fmt"
)

// ErrCache is matched by every CacheError.
var ErrCache = errors.New("crawl cache unavailable")

// CacheError reports a cache store that could not be read or written.
// Callers recover from it locally: the pipeline proceeds without caching
// guarantees.
type CacheError struct {
	// Op is the store operation that failed ("load", "save", ...).
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("crawl cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCache) true for any CacheError.
func (e *CacheError) Is(target error) bool {
	return target == ErrCache
}
