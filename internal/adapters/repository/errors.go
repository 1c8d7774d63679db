package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound             = errors.New("record not found")
	ErrDuplicateApplication = errors.New("application already exists for this event and person")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrDuplicateSlug        = errors.New("event slug already taken")
	ErrUnknownMutation      = errors.New("unknown mutation")
	ErrClosed               = errors.New("store closed")
)
