package platform

import "errors"

var ErrInvalidPlatform = errors.New("invalid platform")
