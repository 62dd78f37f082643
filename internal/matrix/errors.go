package matrix

import "errors"

var (
	ErrAborted    = errors.New("matrix evaluation aborted")
	ErrIncomplete = errors.New("incomplete outputs")
)
