package notifications

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification does not exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrUnknownEventType is returned when an event type is not in the catalog.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrEmptyFilter is returned by SetBits for a filter that would match every notification.
	ErrEmptyFilter = errors.New("notification filter is empty")

	// ErrInvalidNotification is returned when a notification misses required fields.
	ErrInvalidNotification = errors.New("invalid notification")

	// ErrFailedToStore is returned when fan-out cannot persist notifications.
	ErrFailedToStore = errors.New("failed to store notifications")

	// ErrFailedToResolveRecipients is returned when the recipient resolver fails.
	ErrFailedToResolveRecipients = errors.New("failed to resolve recipients")

	// ErrFailedToLoadPreferences is returned when preferences cannot be read during fan-out.
	ErrFailedToLoadPreferences = errors.New("failed to load preferences")
)
