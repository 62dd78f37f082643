package runtime

import "errors"

var (
	ErrRuntime              = errors.New("runtime error")
	ErrCommandFailed        = errors.New("command failed")
	ErrUnsupportedToolchain = errors.New("unsupported toolchain")
	ErrEmptyArchive         = errors.New("archive contains no images")
	ErrMultipleImages       = errors.New("archive contains multiple images")
)
