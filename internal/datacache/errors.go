package datacache

import "errors"

var (
	// ErrNotCached is returned when a hash has no cache entry.
	ErrNotCached = errors.New("hash not cached")
	// ErrInvalidJSON is returned when a cache entry is requested as JSON but does not parse.
	ErrInvalidJSON = errors.New("cache entry is not valid JSON")
)
