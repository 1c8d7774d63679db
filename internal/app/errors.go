package service

import "errors"

// Sentinel errors returned by the review service.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionClosed       = errors.New("session closed")
	ErrCriterionNotFound   = errors.New("criterion not found")
	ErrApplicationNotFound = errors.New("application not found in this event")
	ErrMissingAnswer       = errors.New("required question not answered")
	ErrSaveInProgress      = errors.New("save already in progress")
)
