package notifications

import "errors"

// Delivery errors.
var (
	ErrInvalidPayload = errors.New("invalid notification payload")
	ErrNotSupported   = errors.New("notifications are not supported on this device")
)
