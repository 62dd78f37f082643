package toolchain

import "errors"

var ErrUnavailable = errors.New("toolchain unavailable")
