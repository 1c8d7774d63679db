package questions

import "errors"

// Sentinel errors for working-list edits.
var (
	ErrEntryNotFound = errors.New("question entry not found")
	ErrBadEntryID    = errors.New("malformed question entry id")
)
