package domain

// Permission is the notification permission state reported by the platform.
type Permission string

// Permission states.
const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// IsValid checks if the permission state is known.
func (p Permission) IsValid() bool {
	return p == PermissionDefault || p == PermissionGranted || p == PermissionDenied
}

// Capability describes whether notifications can be shown at all.
type Capability struct {
	Supported  bool       `json:"supported"`
	Permission Permission `json:"permission"`
}

// CanNotify reports whether a dispatch may reach the platform.
func (c Capability) CanNotify() bool {
	return c.Supported && c.Permission == PermissionGranted
}
