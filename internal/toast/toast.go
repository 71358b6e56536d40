// Package toast manages the transient in-app confirmation shown after an alert is sent.
package toast

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultTTL is how long a toast stays visible without dismissal.
const DefaultTTL = 4 * time.Second

// DefaultTitle is the title of the alert-sent toast.
const DefaultTitle = "Alert sent"

// Event types published to the sink.
const (
	EventShown  = "toast_shown"
	EventHidden = "toast_hidden"
)

// Toast is a transient confirmation.
type Toast struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	SubMessage string    `json:"sub_message"`
	ShownAt    time.Time `json:"shown_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Sink receives toast lifecycle events.
type Sink interface {
	Publish(eventType string, data any) int
}

// Center holds at most one visible toast.
type Center struct {
	ttl  time.Duration
	sink Sink

	mu      sync.Mutex
	current *Toast
	timer   *time.Timer
}

// NewCenter creates a toast center. A zero ttl uses DefaultTTL; sink may be nil.
func NewCenter(ttl time.Duration, sink Sink) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl, sink: sink}
}

// Show replaces any visible toast and starts its expiry timer.
func (c *Center) Show(message, subMessage string) Toast {
	now := time.Now()
	t := Toast{
		ID:         ulid.Make().String(),
		Title:      DefaultTitle,
		Message:    message,
		SubMessage: subMessage,
		ShownAt:    now,
		ExpiresAt:  now.Add(c.ttl),
	}

	c.mu.Lock()
	c.stopTimer()
	c.current = &t
	c.timer = time.AfterFunc(c.ttl, func() { c.expire(t.ID) })
	c.mu.Unlock()

	c.publish(EventShown, t)
	return t
}

// Dismiss hides the toast with the given id, or the visible one when id
// is empty. It reports whether a toast was hidden.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	if c.current == nil || (id != "" && c.current.ID != id) {
		c.mu.Unlock()
		return false
	}
	hidden := *c.current
	c.stopTimer()
	c.current = nil
	c.mu.Unlock()

	c.publish(EventHidden, hidden)
	return true
}

// Current returns the visible toast.
func (c *Center) Current() (Toast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return Toast{}, false
	}
	return *c.current, true
}

// Close stops the pending timer without publishing.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimer()
}

// expire runs from the timer. A timer that lost the race with Show or
// Dismiss finds a different id and does nothing.
func (c *Center) expire(id string) {
	c.mu.Lock()
	if c.current == nil || c.current.ID != id {
		c.mu.Unlock()
		return
	}
	hidden := *c.current
	c.current = nil
	c.timer = nil
	c.mu.Unlock()

	c.publish(EventHidden, hidden)
}

// stopTimer must be called with the lock held.
func (c *Center) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Center) publish(eventType string, t Toast) {
	if c.sink != nil {
		c.sink.Publish(eventType, t)
	}
}
