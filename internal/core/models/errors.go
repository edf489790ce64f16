package models

import "errors"

var (
	// ErrLookup is returned when a guild, role or channel does not exist on the platform
	ErrLookup = errors.New("not found")

	// ErrValidation is returned for malformed operator input
	ErrValidation = errors.New("invalid input")

	// ErrTransientPlatform is returned when a platform call failed for reasons that
	// may go away on their own (rate limits, network, 5xx)
	ErrTransientPlatform = errors.New("platform unavailable")
)
