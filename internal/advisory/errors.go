package advisory

import "errors"

var (
	ErrDatabase   = errors.New("advisory database error")
	ErrLockfile   = errors.New("lockfile parse failed")
	ErrVulnerable = errors.New("vulnerable dependencies")
)
