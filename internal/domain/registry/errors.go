package registry

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrUnknownPlatform = errors.New("unknown platform catalog")
)
