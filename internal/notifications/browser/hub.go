// Package browser connects the notification dispatcher to browser clients
// over a Server-Sent Events stream.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bissquit/alerty/internal/domain"
	"github.com/bissquit/alerty/internal/notifications"
	"github.com/bissquit/alerty/internal/pkg/metrics"
	"github.com/oklog/ulid/v2"
)

const (
	defaultPermissionTimeout = 60 * time.Second
	defaultBufferSize        = 16
	defaultKeepAlive         = 25 * time.Second
)

// Event types pushed to clients.
const (
	EventNotification      = "notification"
	EventPermissionRequest = "permission_request"
)

// Errors returned by the hub.
var (
	ErrNoClients         = errors.New("no connected clients")
	ErrPermissionTimeout = errors.New("permission request timed out")
)

// Event is a message delivered to every subscriber.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Config holds hub configuration.
type Config struct {
	// Supported is false on deployments whose clients cannot show
	// system notifications.
	Supported         bool
	PermissionTimeout time.Duration
	BufferSize        int
	KeepAlive         time.Duration
}

// Hub fans events out to SSE subscribers and implements notifications.Platform.
type Hub struct {
	config Config

	mu          sync.Mutex
	subscribers map[chan Event]struct{}
	permission  domain.Permission
	waiters     map[chan domain.Permission]struct{}
	onConnect   func()
}

// NewHub creates a new hub.
func NewHub(config Config) *Hub {
	if config.PermissionTimeout == 0 {
		config.PermissionTimeout = defaultPermissionTimeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaultBufferSize
	}
	if config.KeepAlive == 0 {
		config.KeepAlive = defaultKeepAlive
	}

	return &Hub{
		config:      config,
		subscribers: make(map[chan Event]struct{}),
		permission:  domain.PermissionDefault,
		waiters:     make(map[chan domain.Permission]struct{}),
	}
}

// OnConnect registers fn to run in its own goroutine whenever a subscriber
// connects to a hub that had none.
func (h *Hub) OnConnect(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = fn
}

// Subscribe registers a subscriber. The returned function unregisters it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.config.BufferSize)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	metrics.EventSubscribers.Set(float64(len(h.subscribers)))
	first := len(h.subscribers) == 1
	onConnect := h.onConnect
	h.mu.Unlock()

	if first && onConnect != nil {
		go onConnect()
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			metrics.EventSubscribers.Set(float64(len(h.subscribers)))
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Publish sends an event to every subscriber and returns how many received it.
// Subscribers with a full buffer miss the event.
func (h *Hub) Publish(eventType string, data any) int {
	event := Event{
		ID:   ulid.Make().String(),
		Type: eventType,
		Data: data,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for ch := range h.subscribers {
		select {
		case ch <- event:
			delivered++
		default:
			slog.Warn("dropping event for slow subscriber", "type", eventType)
		}
	}
	return delivered
}

// Probe implements notifications.Platform.
func (h *Hub) Probe(_ context.Context) domain.Capability {
	h.mu.Lock()
	defer h.mu.Unlock()

	return domain.Capability{Supported: h.config.Supported, Permission: h.permission}
}

// ReportPermission records the permission state seen by a client and
// answers any pending RequestPermission call.
func (h *Hub) ReportPermission(permission domain.Permission) {
	if !permission.IsValid() {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.permission = permission
	for w := range h.waiters {
		select {
		case w <- permission:
		default:
		}
		delete(h.waiters, w)
	}
}

// RequestPermission asks connected clients to show the permission prompt
// and waits for the first answer.
func (h *Hub) RequestPermission(ctx context.Context) (domain.Permission, error) {
	waiter := make(chan domain.Permission, 1)

	h.mu.Lock()
	h.waiters[waiter] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.waiters, waiter)
		h.mu.Unlock()
	}()

	if h.Publish(EventPermissionRequest, nil) == 0 {
		return "", ErrNoClients
	}

	timer := time.NewTimer(h.config.PermissionTimeout)
	defer timer.Stop()

	select {
	case p := <-waiter:
		return p, nil
	case <-timer.C:
		return "", ErrPermissionTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Display implements notifications.Platform.
func (h *Hub) Display(_ context.Context, payload notifications.Payload) error {
	if h.Publish(EventNotification, payload) == 0 {
		return ErrNoClients
	}
	return nil
}
