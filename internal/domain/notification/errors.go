package notification

import "errors"

// Notification domain errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidSeverity      = errors.New("invalid notification severity")
	ErrServiceStopped       = errors.New("notification service is stopped")
)
