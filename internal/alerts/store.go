package alerts

import (
	"strings"
	"sync"

	"github.com/bissquit/alerty/internal/domain"
)

// MemoryStore is the process-local alert log, newest first.
// Reads return copies so callers never share state with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	alerts []*domain.Alert
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert prepends the alert.
func (s *MemoryStore) Insert(alert domain.Alert) {
	a := alert.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = append([]*domain.Alert{&a}, s.alerts...)
}

// Get returns a copy of the alert with the given id.
func (s *MemoryStore) Get(id string) (domain.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.alerts[i].Clone(), true
	}
	return domain.Alert{}, false
}

// Update merges the patch into the matching alert. Unknown ids are ignored.
func (s *MemoryStore) Update(id string, patch domain.AlertPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	patch.Apply(s.alerts[i])
	return true
}

// ToggleHandled flips the handled flag. Unknown ids are ignored.
func (s *MemoryStore) ToggleHandled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.alerts[i].IsHandled = !s.alerts[i].IsHandled
	return true
}

// Delete removes the matching alert. Unknown ids are ignored.
func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
	return true
}

// PurgeHandled removes every handled alert and returns how many were removed.
func (s *MemoryStore) PurgeHandled() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.alerts[:0]
	for _, a := range s.alerts {
		if !a.IsHandled {
			kept = append(kept, a)
		}
	}
	removed := len(s.alerts) - len(kept)
	clear(s.alerts[len(kept):])
	s.alerts = kept
	return removed
}

// View returns alerts whose incident, location or notes contain query,
// ignoring case. An empty query returns everything.
func (s *MemoryStore) View(query string) []domain.Alert {
	q := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if q == "" || matches(a, q) {
			out = append(out, a.Clone())
		}
	}
	return out
}

// Len returns the number of stored alerts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// UnhandledCount returns the number of alerts not yet handled.
func (s *MemoryStore) UnhandledCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.alerts {
		if !a.IsHandled {
			n++
		}
	}
	return n
}

// HasCriticalUnhandled reports whether any critical alert is still unhandled.
func (s *MemoryStore) HasCriticalUnhandled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.alerts {
		if a.IsCriticalUnhandled() {
			return true
		}
	}
	return false
}

// indexOf must be called with the lock held.
func (s *MemoryStore) indexOf(id string) int {
	for i, a := range s.alerts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func matches(a *domain.Alert, q string) bool {
	return strings.Contains(strings.ToLower(a.Incident), q) ||
		strings.Contains(strings.ToLower(a.Location), q) ||
		(a.Notes != "" && strings.Contains(strings.ToLower(a.Notes), q))
}
