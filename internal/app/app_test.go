package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/alerty/internal/config"
	"github.com/bissquit/alerty/internal/domain"
	"github.com/bissquit/alerty/internal/notifications/browser"
	"github.com/bissquit/alerty/internal/testutil"
	"github.com/bissquit/alerty/internal/toast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specPath = "../../api/openapi/openapi.yaml"

func newTestApp(t *testing.T) (*App, *testutil.Client) {
	t.Helper()

	cfg := config.Default()
	cfg.Settings.Backend = config.BackendMemory
	cfg.Credentials.Enabled = false
	cfg.Log.Level = "error"

	a, err := New(&cfg)
	require.NoError(t, err)

	server := httptest.NewServer(a.Router())
	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})

	return a, testutil.NewClientWithValidation(t, server.URL, specPath)
}

type alertEnvelope struct {
	Data domain.Alert `json:"data"`
}

func submit(t *testing.T, c *testutil.Client, incident, location string) domain.Alert {
	t.Helper()
	resp, err := c.POST("/api/v1/alerts", map[string]string{"incident": incident, "location": location})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body alertEnvelope
	testutil.DecodeJSON(t, resp, &body)
	return body.Data
}

func TestApp_SystemEndpoints(t *testing.T) {
	_, c := newTestApp(t)

	for _, path := range []string{"/healthz", "/readyz", "/version"} {
		resp, err := c.GET(path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}

func TestApp_AlertLifecycle(t *testing.T) {
	_, c := newTestApp(t)

	alert := submit(t, c, "Fall", "Lobby")
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, domain.SeverityInfo, alert.Severity)
	assert.Equal(t, "ALERT: Fall at Lobby", alert.FormattedMessage)

	resp, err := c.GET("/api/v1/alerts?q=lobby")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Data struct {
			Alerts []domain.Alert `json:"alerts"`
			Total  int            `json:"total"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &list)
	require.Len(t, list.Data.Alerts, 1)
	assert.Equal(t, 1, list.Data.Total)

	resp, err = c.PATCH("/api/v1/alerts/"+alert.ID, map[string]string{"notes": "conscious"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = c.POST("/api/v1/alerts/"+alert.ID+"/toggle-handled", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var toggled alertEnvelope
	testutil.DecodeJSON(t, resp, &toggled)
	assert.True(t, toggled.Data.IsHandled)
	assert.Equal(t, "conscious", toggled.Data.Notes)

	resp, err = c.GET("/api/v1/alerts/" + alert.ID + "/share")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = c.POST("/api/v1/alerts/purge-handled", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = c.DELETE("/api/v1/alerts/" + alert.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = c.GET("/api/v1/submission")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestApp_SubmitValidation(t *testing.T) {
	_, c := newTestApp(t)

	resp, err := c.POST("/api/v1/alerts", map[string]string{"incident": "  ", "location": "Lobby"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestApp_SettingsRoundTrip(t *testing.T) {
	_, c := newTestApp(t)

	resp, err := c.GET("/api/v1/settings")
	require.NoError(t, err)
	var got struct {
		Data domain.NotificationSettings `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &got)
	assert.Equal(t, domain.DefaultNotificationSettings(), got.Data)

	want := domain.NotificationSettings{
		SoundEnabled:     false,
		VibrationEnabled: true,
		VibrationPattern: domain.VibrationLong,
	}
	resp, err = c.PUT("/api/v1/settings", want)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = c.GET("/api/v1/settings")
	require.NoError(t, err)
	testutil.DecodeJSON(t, resp, &got)
	assert.Equal(t, want, got.Data)
}

func TestApp_CapabilityBanner(t *testing.T) {
	_, c := newTestApp(t)

	resp, err := c.GET("/api/v1/push/capability")
	require.NoError(t, err)
	var body struct {
		Data struct {
			Capability domain.Capability `json:"capability"`
			Banner     *struct {
				Kind string `json:"kind"`
			} `json:"banner"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &body)
	assert.True(t, body.Data.Capability.Supported)
	assert.Equal(t, domain.PermissionDefault, body.Data.Capability.Permission)
	require.NotNil(t, body.Data.Banner)
	assert.Equal(t, "notifications_disconnected", body.Data.Banner.Kind)
}

func hasEvents(seen map[string]browser.Event, types ...string) bool {
	for _, typ := range types {
		if _, ok := seen[typ]; !ok {
			return false
		}
	}
	return true
}

func TestApp_FirstStreamSubscriberIsAskedForPermission(t *testing.T) {
	a, c := newTestApp(t)

	events, unsubscribe := a.hub.Subscribe()
	defer unsubscribe()

	select {
	case e := <-events:
		require.Equal(t, browser.EventPermissionRequest, e.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no permission request published")
	}

	resp, err := c.POST("/api/v1/push/permission", map[string]string{"permission": "denied"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = c.GET("/api/v1/push/capability")
	require.NoError(t, err)
	var body struct {
		Data struct {
			Capability domain.Capability `json:"capability"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, domain.PermissionDenied, body.Data.Capability.Permission)
}

func TestApp_SubmitNotifiesAndToasts(t *testing.T) {
	a, c := newTestApp(t)

	events, unsubscribe := a.hub.Subscribe()
	defer unsubscribe()

	resp, err := c.POST("/api/v1/push/permission", map[string]string{"permission": "granted"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	alert := submit(t, c, "Cardiac arrest", "Gate 4")

	seen := map[string]browser.Event{}
	timeout := time.After(2 * time.Second)
	for !hasEvents(seen, browser.EventNotification, toast.EventShown) {
		select {
		case e := <-events:
			seen[e.Type] = e
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %v", seen)
		}
	}

	require.Contains(t, seen, browser.EventNotification)
	require.Contains(t, seen, toast.EventShown)

	shown, ok := seen[toast.EventShown].Data.(toast.Toast)
	require.True(t, ok)
	assert.Equal(t, "Cardiac arrest", shown.Message)
	assert.Equal(t, "Gate 4", shown.SubMessage)

	resp, err = c.GET("/api/v1/toast")
	require.NoError(t, err)
	var current struct {
		Data *toast.Toast `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &current)
	require.NotNil(t, current.Data)
	assert.Equal(t, shown.ID, current.Data.ID)

	resp, err = c.POST("/api/v1/toast/dismiss", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	assert.NotEmpty(t, alert.ID)
}
