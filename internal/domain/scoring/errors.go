package scoring

import "errors"

// Sentinel errors returned by searchers.
var (
	ErrBlankQuery      = errors.New("query is required")
	ErrSearchFailed    = errors.New("search failed")
	ErrInvalidResponse = errors.New("invalid search response")
)
