package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrInvalidAction = errors.New("invalid action")
	ErrBackpressure  = errors.New("action queue is full")
	ErrShuttingDown  = errors.New("service shutting down")
)
