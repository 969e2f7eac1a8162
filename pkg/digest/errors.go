package digest

import "errors"

var (
	// ErrPassInProgress is returned when a pass is already running in this process.
	ErrPassInProgress = errors.New("digest pass already in progress")

	// ErrRecipientNotFound is returned by a Directory for unknown users.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrScopeNotFound is returned by a Directory for unknown scopes.
	ErrScopeNotFound = errors.New("scope not found")

	ErrLockUnavailable = errors.New("digest lock unavailable")
	ErrInvalidConfig   = errors.New("invalid digest config")
	ErrInvalidTimeZone = errors.New("invalid digest time zone")
	ErrFailedToRender  = errors.New("failed to render digest")
)
