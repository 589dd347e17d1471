package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrDuplicate     = errors.New("action already stored")
	ErrInvalidAction = errors.New("invalid action")
	ErrClosed        = errors.New("store closed")
)
