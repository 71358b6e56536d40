package domain

import (
	"strings"
	"time"
)

// Severity represents the classification tier of an alert.
type Severity string

// Severity levels.
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// IsValid checks if the severity is one of the known tiers.
func (s Severity) IsValid() bool {
	return s == SeverityCritical || s == SeverityWarning || s == SeverityInfo
}

// ParseSeverity converts free-form text into a Severity.
// Matching ignores case and surrounding whitespace.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", false
	}
	return sev, true
}

// Coordinates is a geographic point captured when the alert was submitted.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Alert is a single incident report enriched with a severity classification.
type Alert struct {
	ID               string       `json:"id"`
	Incident         string       `json:"incident"`
	Location         string       `json:"location"`
	Notes            string       `json:"notes,omitempty"`
	FormattedMessage string       `json:"formatted_message"`
	Severity         Severity     `json:"severity"`
	CreatedAt        time.Time    `json:"created_at"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
	IsHandled        bool         `json:"is_handled"`
}

// IsCriticalUnhandled reports whether the alert counts toward the
// critical-unhandled aggregate.
func (a *Alert) IsCriticalUnhandled() bool {
	return !a.IsHandled && a.Severity == SeverityCritical
}

// Clone returns a deep copy of the alert.
func (a *Alert) Clone() Alert {
	c := *a
	if a.Coordinates != nil {
		coords := *a.Coordinates
		c.Coordinates = &coords
	}
	return c
}

// AlertPatch holds the user-editable fields of an alert.
// Nil fields are left untouched.
type AlertPatch struct {
	Incident *string `json:"incident"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

// IsEmpty reports whether the patch changes nothing.
func (p AlertPatch) IsEmpty() bool {
	return p.Incident == nil && p.Location == nil && p.Notes == nil
}

// ClearsRequired reports whether the patch would leave the incident or
// location blank.
func (p AlertPatch) ClearsRequired() bool {
	blank := func(s *string) bool { return s != nil && strings.TrimSpace(*s) == "" }
	return blank(p.Incident) || blank(p.Location)
}

// Apply merges the patch into the alert.
func (p AlertPatch) Apply(a *Alert) {
	if p.Incident != nil {
		a.Incident = *p.Incident
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
}
