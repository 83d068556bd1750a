package directory

import "errors"

var (
	// ErrFileExists is returned by RegisterFile for a duplicate file ID.
	ErrFileExists = errors.New("file already registered")

	// ErrUnknownBackend is returned by New for an unsupported backend type.
	ErrUnknownBackend = errors.New("unknown directory backend")
)
