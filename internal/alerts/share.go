package alerts

import (
	"bytes"
	"embed"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"text/template"

	"github.com/bissquit/alerty/internal/domain"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const (
	mapsSearchURL = "https://www.google.com/maps/search/"
	whatsAppURL   = "https://wa.me/"
)

var whatsAppTemplate = template.Must(template.ParseFS(templatesFS, "templates/whatsapp.tmpl"))

// ShareLinks are outbound links for an alert.
type ShareLinks struct {
	MapURL      string `json:"map_url"`
	WhatsAppURL string `json:"whatsapp_url"`
}

// ShareContent is the text shared with other people.
type ShareContent struct {
	Incident string
	Location string
	Notes    string
}

// LinksFor builds share links for a stored alert.
func LinksFor(alert domain.Alert) (ShareLinks, error) {
	text, err := RenderShareText(ShareContent{
		Incident: alert.Incident,
		Location: alert.Location,
		Notes:    alert.Notes,
	})
	if err != nil {
		return ShareLinks{}, err
	}

	return ShareLinks{
		MapURL:      MapURL(alert),
		WhatsAppURL: whatsAppURL + "?" + url.Values{"text": {text}}.Encode(),
	}, nil
}

// MapURL points at the coordinates when known, otherwise at the location text.
func MapURL(alert domain.Alert) string {
	query := alert.Location
	if alert.Coordinates != nil {
		query = formatFloat(alert.Coordinates.Lat) + "," + formatFloat(alert.Coordinates.Lng)
	}
	return mapsSearchURL + "?" + url.Values{"api": {"1"}, "query": {query}}.Encode()
}

// RenderShareText renders the message body for messenger sharing.
func RenderShareText(content ShareContent) (string, error) {
	var buf bytes.Buffer
	if err := whatsAppTemplate.Execute(&buf, content); err != nil {
		return "", fmt.Errorf("render share text: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
