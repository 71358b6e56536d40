package toast

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bissquit/alerty/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Handler handles HTTP requests for toasts.
type Handler struct {
	center *Center
}

// NewHandler creates a new toast handler.
func NewHandler(center *Center) *Handler {
	return &Handler{center: center}
}

// RegisterRoutes registers toast routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/toast", h.GetCurrent)
	r.Post("/toast/dismiss", h.Dismiss)
}

// DismissRequest represents request body for dismissing a toast.
type DismissRequest struct {
	ID string `json:"id"`
}

// GetCurrent handles GET /toast.
func (h *Handler) GetCurrent(w http.ResponseWriter, _ *http.Request) {
	t, ok := h.center.Current()
	if !ok {
		httputil.Success(w, http.StatusOK, nil)
		return
	}
	httputil.Success(w, http.StatusOK, t)
}

// Dismiss handles POST /toast/dismiss. An empty body dismisses the visible toast.
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	var req DismissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	h.center.Dismiss(req.ID)
	w.WriteHeader(http.StatusNoContent)
}
