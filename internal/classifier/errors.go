package classifier

import "errors"

// Response validation errors.
var (
	ErrInvalidSeverity = errors.New("invalid severity")
	ErrEmptyMessage    = errors.New("empty formatted message")
	ErrMessageTooLong  = errors.New("formatted message too long")
)
