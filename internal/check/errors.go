package check

import "errors"

var (
	ErrDuplicate    = errors.New("duplicate check name")
	ErrUnknown      = errors.New("unknown check")
	ErrChecksFailed = errors.New("checks failed")
)
