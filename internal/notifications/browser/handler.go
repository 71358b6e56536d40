package browser

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bissquit/alerty/internal/pkg/ctxlog"
	"github.com/go-chi/chi/v5"
)

const clientRetryMillis = 3000

// RegisterRoutes registers the event stream route.
func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.Stream)
}

// Stream handles GET /events.
func (h *Hub) Stream(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sse := newSSEWriter(w)
	// Streams outlive the server write timeout.
	_ = sse.rc.SetWriteDeadline(time.Time{})

	events, unsubscribe := h.Subscribe()
	defer unsubscribe()

	w.WriteHeader(http.StatusOK)
	if err := sse.sendRetry(clientRetryMillis); err != nil {
		logger.Debug("event stream closed", "error", err)
		return
	}

	keepAlive := time.NewTicker(h.config.KeepAlive)
	defer keepAlive.Stop()

	logger.Info("event stream opened", "subscribers", h.Subscribers())

	for {
		select {
		case <-r.Context().Done():
			logger.Info("event stream closed")
			return

		case <-keepAlive.C:
			if err := sse.sendComment("keepalive"); err != nil {
				logger.Debug("event stream write failed", "error", err)
				return
			}

		case event := <-events:
			data, err := json.Marshal(event.Data)
			if err != nil {
				logger.Error("failed to encode event", "type", event.Type, "error", err)
				continue
			}
			if err := sse.sendEvent(event.ID, event.Type, data); err != nil {
				logger.Debug("event stream write failed", "error", err)
				return
			}
		}
	}
}
