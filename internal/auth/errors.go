package auth

import "errors"

// Domain errors for the auth package.
var (
	// ErrTokenInvalid is returned for a token that fails signature, expiry
	// or claim checks.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrInvalidRole is returned when minting a token for an unknown role.
	ErrInvalidRole = errors.New("auth: invalid role")

	// ErrMissingSecret is returned when signing with an empty secret.
	ErrMissingSecret = errors.New("auth: signing secret is empty")
)
