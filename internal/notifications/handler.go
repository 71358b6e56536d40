package notifications

import (
	"encoding/json"
	"net/http"

	"github.com/bissquit/alerty/internal/domain"
	"github.com/bissquit/alerty/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// PermissionReporter receives permission states reported by the client.
type PermissionReporter interface {
	ReportPermission(permission domain.Permission)
}

// Handler handles HTTP requests for the notifications module.
type Handler struct {
	dispatcher *Dispatcher
	reporter   PermissionReporter
	validator  *validator.Validate
}

// NewHandler creates a new notifications handler. reporter may be nil.
func NewHandler(dispatcher *Dispatcher, reporter PermissionReporter) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		reporter:   reporter,
		validator:  validator.New(),
	}
}

// RegisterRoutes registers push routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/push", func(r chi.Router) {
		r.Get("/capability", h.GetCapability)
		r.Post("/permission", h.ReportPermission)
		r.Post("/permission/request", h.RequestPermission)
	})
}

// CapabilityResponse is the capability together with the banner to show.
type CapabilityResponse struct {
	Capability domain.Capability `json:"capability"`
	Banner     *Banner           `json:"banner"`
}

// ReportPermissionRequest represents request body for reporting permission state.
type ReportPermissionRequest struct {
	Permission string `json:"permission" validate:"required,oneof=default granted denied"`
}

// PermissionResponse carries the tracked permission.
type PermissionResponse struct {
	Permission domain.Permission `json:"permission"`
}

// GetCapability handles GET /push/capability.
func (h *Handler) GetCapability(w http.ResponseWriter, _ *http.Request) {
	c := h.dispatcher.QueryCapability()
	httputil.Success(w, http.StatusOK, CapabilityResponse{
		Capability: c,
		Banner:     BannerFor(c),
	})
}

// ReportPermission handles POST /push/permission.
func (h *Handler) ReportPermission(w http.ResponseWriter, r *http.Request) {
	var req ReportPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	permission := domain.Permission(req.Permission)
	if h.reporter != nil {
		h.reporter.ReportPermission(permission)
	}
	h.dispatcher.ObservePermission(permission)

	w.WriteHeader(http.StatusNoContent)
}

// RequestPermission handles POST /push/permission/request.
func (h *Handler) RequestPermission(w http.ResponseWriter, r *http.Request) {
	permission := h.dispatcher.RequestPermission(r.Context())
	httputil.Success(w, http.StatusOK, PermissionResponse{Permission: permission})
}
