package source

import "errors"

var ErrFingerprint = errors.New("source fingerprint failed")
