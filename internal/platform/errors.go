package platform

import "errors"

// Domain errors for the platform package.
var (
	// ErrUnknownButton is returned for a button topic that names no button.
	ErrUnknownButton = errors.New("platform: unknown button")
)
