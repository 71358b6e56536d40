package notifications

import (
	"fmt"
	"strings"

	"github.com/bissquit/alerty/internal/domain"
)

const titlePrefix = "🚨 "

// Default asset references, served by the UI itself.
const (
	DefaultIconURL  = "/assets/alert-icon.png"
	DefaultBadgeURL = "/assets/alert-badge.png"
)

var vibrationPatterns = map[domain.VibrationPattern][]int{
	domain.VibrationDefault: {200, 100, 200},
	domain.VibrationUrgent:  {100, 50, 100, 50, 100, 50},
	domain.VibrationLong:    {500, 200, 500, 200},
}

// Assets are the fallback images attached to every notification.
type Assets struct {
	DefaultIconURL string
	BadgeURL       string
}

// DefaultAssets returns the bundled asset references.
func DefaultAssets() Assets {
	return Assets{
		DefaultIconURL: DefaultIconURL,
		BadgeURL:       DefaultBadgeURL,
	}
}

// Payload is a notification ready for display.
type Payload struct {
	Title              string          `json:"title"`
	Body               string          `json:"body"`
	Icon               string          `json:"icon"`
	Badge              string          `json:"badge,omitempty"`
	Tag                string          `json:"tag"`
	RequireInteraction bool            `json:"require_interaction"`
	Vibrate            []int           `json:"vibrate"`
	Silent             bool            `json:"silent"`
	Severity           domain.Severity `json:"severity,omitempty"`
	Data               PayloadData     `json:"data"`
}

// PayloadData is handed back to the client when the notification is clicked.
type PayloadData struct {
	AlertID string `json:"id"`
}

// VibrationFor returns the vibration sequence in milliseconds,
// empty when vibration is disabled.
func VibrationFor(settings domain.NotificationSettings) []int {
	if !settings.VibrationEnabled {
		return []int{}
	}
	pattern, ok := vibrationPatterns[settings.VibrationPattern]
	if !ok {
		pattern = vibrationPatterns[domain.VibrationDefault]
	}
	return append([]int(nil), pattern...)
}

// BuildPayload turns an alert into a notification.
func BuildPayload(alert domain.Alert, settings domain.NotificationSettings, assets Assets) (Payload, error) {
	if alert.ID == "" {
		return Payload{}, fmt.Errorf("%w: alert id is empty", ErrInvalidPayload)
	}
	if strings.TrimSpace(alert.Incident) == "" {
		return Payload{}, fmt.Errorf("%w: incident is empty", ErrInvalidPayload)
	}

	icon := settings.CustomIconURL
	if icon == "" {
		icon = assets.DefaultIconURL
	}

	return Payload{
		Title:              titlePrefix + alert.Incident,
		Body:               body(alert),
		Icon:               icon,
		Badge:              assets.BadgeURL,
		Tag:                alert.ID,
		RequireInteraction: alert.Severity == domain.SeverityCritical,
		Vibrate:            VibrationFor(settings),
		Silent:             !settings.SoundEnabled,
		Severity:           alert.Severity,
		Data:               PayloadData{AlertID: alert.ID},
	}, nil
}

// minimalPayload is used for the last-resort attempt when the full
// payload could not be built.
func minimalPayload(alert domain.Alert) Payload {
	return Payload{
		Title:   titlePrefix + alert.Incident,
		Body:    alert.Location,
		Tag:     alert.ID,
		Vibrate: []int{},
		Data:    PayloadData{AlertID: alert.ID},
	}
}

func body(alert domain.Alert) string {
	if alert.Notes == "" {
		return alert.Location
	}
	return alert.Location + "\nNote: " + alert.Notes
}
