package settings

import (
	"encoding/json"
	"net/http"

	"github.com/bissquit/alerty/internal/domain"
	"github.com/bissquit/alerty/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for settings.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new settings handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers settings routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
}

// UpdateSettingsRequest represents request body for replacing settings.
type UpdateSettingsRequest struct {
	SoundEnabled     *bool  `json:"sound_enabled" validate:"required"`
	VibrationEnabled *bool  `json:"vibration_enabled" validate:"required"`
	VibrationPattern string `json:"vibration_pattern" validate:"required,oneof=default urgent long"`
	CustomIconURL    string `json:"custom_icon_url" validate:"omitempty,url"`
}

// GetSettings handles GET /settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Load(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}
	httputil.Success(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	settings := domain.NotificationSettings{
		SoundEnabled:     *req.SoundEnabled,
		VibrationEnabled: *req.VibrationEnabled,
		VibrationPattern: domain.VibrationPattern(req.VibrationPattern),
		CustomIconURL:    req.CustomIconURL,
	}
	if err := h.service.Save(r.Context(), settings); err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, settings)
}
