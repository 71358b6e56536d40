package domain

// VibrationPattern names one of the fixed vibration sequences.
type VibrationPattern string

// Vibration patterns.
const (
	VibrationDefault VibrationPattern = "default"
	VibrationUrgent  VibrationPattern = "urgent"
	VibrationLong    VibrationPattern = "long"
)

// IsValid checks if the pattern is known.
func (p VibrationPattern) IsValid() bool {
	return p == VibrationDefault || p == VibrationUrgent || p == VibrationLong
}

// NotificationSettings are the user preferences read at dispatch time.
type NotificationSettings struct {
	SoundEnabled     bool             `json:"sound_enabled"`
	VibrationEnabled bool             `json:"vibration_enabled"`
	VibrationPattern VibrationPattern `json:"vibration_pattern"`
	CustomIconURL    string           `json:"custom_icon_url"`
}

// DefaultNotificationSettings returns sound on, vibration on,
// the default pattern and no custom icon.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		SoundEnabled:     true,
		VibrationEnabled: true,
		VibrationPattern: VibrationDefault,
	}
}

// Normalize replaces an unknown vibration pattern with the default one.
func (s NotificationSettings) Normalize() NotificationSettings {
	if !s.VibrationPattern.IsValid() {
		s.VibrationPattern = VibrationDefault
	}
	return s
}
