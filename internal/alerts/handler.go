package alerts

import (
	"encoding/json"
	"net/http"

	"github.com/bissquit/alerty/internal/domain"
	"github.com/bissquit/alerty/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the alerts module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new alerts handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrValidation, Status: http.StatusBadRequest},
	{Error: ErrSubmissionInProgress, Status: http.StatusConflict},
	{Error: ErrSubmissionAbandoned, Status: http.StatusConflict},
	{Error: ErrAlertNotFound, Status: http.StatusNotFound},
}

// RegisterRoutes registers alert routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Post("/", h.SubmitAlert)
		r.Get("/", h.ListAlerts)
		r.Post("/purge-handled", h.PurgeHandled)
		r.Get("/{id}", h.GetAlert)
		r.Patch("/{id}", h.UpdateAlert)
		r.Delete("/{id}", h.DeleteAlert)
		r.Post("/{id}/toggle-handled", h.ToggleHandled)
		r.Get("/{id}/share", h.ShareAlert)
	})
	r.Get("/submission", h.GetSubmission)
	r.Post("/submission/abandon", h.AbandonSubmission)
}

// CoordinatesRequest is an optional device position.
type CoordinatesRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

// SubmitAlertRequest represents request body for submitting an alert.
type SubmitAlertRequest struct {
	Incident    string              `json:"incident" validate:"required"`
	Location    string              `json:"location" validate:"required"`
	Notes       string              `json:"notes"`
	Coordinates *CoordinatesRequest `json:"coordinates"`
}

// UpdateAlertRequest represents request body for editing an alert.
type UpdateAlertRequest struct {
	Incident *string `json:"incident"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

// PurgeResponse reports how many alerts were removed.
type PurgeResponse struct {
	Removed int `json:"removed"`
}

// SubmissionResponse reports the submission state.
type SubmissionResponse struct {
	State State `json:"state"`
}

// SubmitAlert handles POST /alerts.
func (h *Handler) SubmitAlert(w http.ResponseWriter, r *http.Request) {
	var req SubmitAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := SubmitInput{
		Incident: req.Incident,
		Location: req.Location,
		Notes:    req.Notes,
	}
	if req.Coordinates != nil {
		input.Coordinates = &domain.Coordinates{Lat: req.Coordinates.Lat, Lng: req.Coordinates.Lng}
	}

	alert, err := h.service.Submit(r.Context(), input)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, alert)
}

// ListAlerts handles GET /alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	httputil.Success(w, http.StatusOK, h.service.List(r.URL.Query().Get("q")))
}

// GetAlert handles GET /alerts/{id}.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}
	httputil.Success(w, http.StatusOK, alert)
}

// UpdateAlert handles PATCH /alerts/{id}.
func (h *Handler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	var req UpdateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	patch := domain.AlertPatch{
		Incident: req.Incident,
		Location: req.Location,
		Notes:    req.Notes,
	}
	if patch.IsEmpty() {
		httputil.Error(w, http.StatusBadRequest, "nothing to update")
		return
	}

	id := chi.URLParam(r, "id")
	updated, err := h.service.Update(id, patch)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}
	if !updated {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	alert, err := h.service.Get(id)
	if err != nil {
		// deleted concurrently
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.Success(w, http.StatusOK, alert)
}

// DeleteAlert handles DELETE /alerts/{id}.
func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	h.service.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// ToggleHandled handles POST /alerts/{id}/toggle-handled.
func (h *Handler) ToggleHandled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.service.ToggleHandled(id) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	alert, err := h.service.Get(id)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.Success(w, http.StatusOK, alert)
}

// PurgeHandled handles POST /alerts/purge-handled.
func (h *Handler) PurgeHandled(w http.ResponseWriter, _ *http.Request) {
	httputil.Success(w, http.StatusOK, PurgeResponse{Removed: h.service.PurgeHandled()})
}

// ShareAlert handles GET /alerts/{id}/share.
func (h *Handler) ShareAlert(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.Share(chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}
	httputil.Success(w, http.StatusOK, links)
}

// GetSubmission handles GET /submission.
func (h *Handler) GetSubmission(w http.ResponseWriter, _ *http.Request) {
	httputil.Success(w, http.StatusOK, SubmissionResponse{State: h.service.State()})
}

// AbandonSubmission handles POST /submission/abandon.
func (h *Handler) AbandonSubmission(w http.ResponseWriter, _ *http.Request) {
	h.service.Abandon()
	w.WriteHeader(http.StatusNoContent)
}
