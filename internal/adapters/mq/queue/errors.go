package queue

import "errors"

// ErrFull is returned by callers that treat a rejected Enqueue as an error.
var ErrFull = errors.New("index queue full or closed")
