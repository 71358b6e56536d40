// Package notifications surfaces alerts as system notifications on the user's device.
package notifications

import (
	"context"

	"github.com/bissquit/alerty/internal/domain"
)

// Platform is the device notification subsystem.
type Platform interface {
	// Probe reports whether notifications exist on the device and the
	// permission currently granted to this application.
	Probe(ctx context.Context) domain.Capability
	// RequestPermission prompts the user and returns the resulting state.
	RequestPermission(ctx context.Context) (domain.Permission, error)
	// Display shows a notification in the foreground.
	Display(ctx context.Context, payload Payload) error
}

// BackgroundSurface delivers notifications without a foreground client,
// the way a service worker does in a browser.
type BackgroundSurface interface {
	Ready(ctx context.Context) bool
	Show(ctx context.Context, payload Payload) error
}
