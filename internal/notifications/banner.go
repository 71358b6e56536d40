package notifications

import "github.com/bissquit/alerty/internal/domain"

// BannerKind identifies a degraded-capability banner.
type BannerKind string

// Banner kinds.
const (
	BannerDeviceIncompatible        BannerKind = "device_incompatible"
	BannerNotificationsDisconnected BannerKind = "notifications_disconnected"
	BannerNotificationsBlocked      BannerKind = "notifications_blocked"
)

// Banner tells the UI why system notifications will not appear.
type Banner struct {
	Kind    BannerKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	// CanRequest is true when asking for permission may still help.
	CanRequest bool `json:"can_request"`
}

// BannerFor returns the banner for a capability, or nil when
// notifications work.
func BannerFor(c domain.Capability) *Banner {
	switch {
	case !c.Supported:
		return &Banner{
			Kind:    BannerDeviceIncompatible,
			Title:   "Device incompatible",
			Message: "This device or browser cannot show system notifications. Alerts are still recorded.",
		}
	case c.Permission == domain.PermissionDefault:
		return &Banner{
			Kind:       BannerNotificationsDisconnected,
			Title:      "Notifications disconnected",
			Message:    "Allow notifications to receive alerts outside the app.",
			CanRequest: true,
		}
	case c.Permission == domain.PermissionDenied:
		return &Banner{
			Kind:    BannerNotificationsBlocked,
			Title:   "Notifications blocked",
			Message: "Notifications are blocked. Re-enable them in the device settings.",
		}
	default:
		return nil
	}
}
