package workflow

import "errors"

// Sentinel errors for review transitions.
var (
	ErrInvalidTarget  = errors.New("invalid target status")
	ErrNothingToApply = errors.New("no applications to update")
)
