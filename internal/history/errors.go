package history

import "errors"

var (
	// ErrEmptyPath is returned when no history path is given.
	ErrEmptyPath = errors.New("history: empty path")

	// ErrUnsupportedFormat is returned for file extensions other than
	// .json, .jsonl, .yaml and .yml.
	ErrUnsupportedFormat = errors.New("history: unsupported format")

	// ErrInvalidRole is returned when a message has a role other than
	// system, user or assistant.
	ErrInvalidRole = errors.New("history: invalid role")
)
