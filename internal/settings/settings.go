// Package settings persists the user's notification preferences.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bissquit/alerty/internal/domain"
	"github.com/bissquit/alerty/internal/pkg/ctxlog"
)

// Key is the storage key of the settings document.
const Key = "alertSettings"

// ErrNotFound is returned by a Store when nothing has been saved yet.
var ErrNotFound = errors.New("settings not found")

// Store reads and writes raw settings documents by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Service loads and saves NotificationSettings on top of a Store.
type Service struct {
	store Store
}

// NewService creates a new settings service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Load returns the saved settings, or the defaults when none were saved.
func (s *Service) Load(ctx context.Context) (domain.NotificationSettings, error) {
	data, err := s.store.Get(ctx, Key)
	if errors.Is(err, ErrNotFound) {
		return domain.DefaultNotificationSettings(), nil
	}
	if err != nil {
		return domain.NotificationSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return Decode(data)
}

// Current returns the saved settings and falls back to the defaults on
// any error.
func (s *Service) Current(ctx context.Context) domain.NotificationSettings {
	settings, err := s.Load(ctx)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("failed to load settings, using defaults", "error", err)
		return domain.DefaultNotificationSettings()
	}
	return settings
}

// Save persists the settings.
func (s *Service) Save(ctx context.Context, settings domain.NotificationSettings) error {
	data, err := json.Marshal(settings.Normalize())
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.store.Put(ctx, Key, data); err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

// Decode parses a stored document. Fields missing from the document keep
// their default values.
func Decode(data []byte) (domain.NotificationSettings, error) {
	settings := domain.DefaultNotificationSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return domain.NotificationSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings.Normalize(), nil
}
