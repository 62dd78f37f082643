package format

import "errors"

var ErrNotCanonical = errors.New("files not in canonical format")
