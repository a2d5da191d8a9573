package packfile

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid weight pack magic")
	ErrUnsupportedMajor = errors.New("unsupported weight pack major version")
	ErrCorruptFile      = errors.New("corrupt weight pack file")
)
