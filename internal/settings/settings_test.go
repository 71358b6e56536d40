package settings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bissquit/alerty/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Put(_ context.Context, _ string, _ []byte) error {
	return errors.New("disk on fire")
}

func TestService_LoadDefaultsWhenMissing(t *testing.T) {
	s := NewService(NewMemoryStore())

	got, err := s.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNotificationSettings(), got)
}

func TestService_SaveLoad(t *testing.T) {
	s := NewService(NewMemoryStore())
	want := domain.NotificationSettings{
		SoundEnabled:     false,
		VibrationEnabled: true,
		VibrationPattern: domain.VibrationUrgent,
		CustomIconURL:    "https://example.com/icon.png",
	}

	require.NoError(t, s.Save(context.Background(), want))
	got, err := s.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestService_CurrentFallsBackOnError(t *testing.T) {
	s := NewService(failingStore{})

	assert.Equal(t, domain.DefaultNotificationSettings(), s.Current(context.Background()))
	assert.Error(t, s.Save(context.Background(), domain.DefaultNotificationSettings()))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    domain.NotificationSettings
		wantErr bool
	}{
		{
			name: "partial document keeps defaults",
			data: `{"sound_enabled": false}`,
			want: domain.NotificationSettings{SoundEnabled: false, VibrationEnabled: true, VibrationPattern: domain.VibrationDefault},
		},
		{
			name: "unknown pattern normalized",
			data: `{"vibration_pattern": "buzz"}`,
			want: domain.DefaultNotificationSettings(),
		},
		{
			name:    "corrupt document",
			data:    `{not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandler(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(NewService(NewMemoryStore())).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"sound_enabled":true,"vibration_enabled":true,"vibration_pattern":"default","custom_icon_url":""}}`, rec.Body.String())

	body := `{"sound_enabled":false,"vibration_enabled":true,"vibration_pattern":"long","custom_icon_url":"https://example.com/i.png"}`
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	assert.JSONEq(t, `{"data":`+body+`}`, rec.Body.String())
}

func TestHandler_Validation(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(NewService(NewMemoryStore())).RegisterRoutes(r)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"unknown pattern", `{"sound_enabled":true,"vibration_enabled":true,"vibration_pattern":"buzz"}`},
		{"missing flags", `{"vibration_pattern":"default"}`},
		{"bad icon url", `{"sound_enabled":true,"vibration_enabled":true,"vibration_pattern":"default","custom_icon_url":"not a url"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
