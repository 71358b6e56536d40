// Package credential keeps secrets such as the classifier API key in the OS keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// ClassifierAPIKey is the keyring entry holding the classifier API key.
const ClassifierAPIKey = "classifier-api-key"

const defaultServiceName = "alerty"

// ErrNotFound is returned when the keyring has no entry for a key.
var ErrNotFound = errors.New("credential not found")

// Config holds keyring configuration.
type Config struct {
	ServiceName  string
	FileDir      string // used by the encrypted file backend
	FilePassword string
}

// Store reads and writes credentials.
type Store struct {
	ring keyring.Keyring
}

// Open opens the system keyring, falling back to an encrypted file.
func Open(config Config) (*Store, error) {
	if config.ServiceName == "" {
		config.ServiceName = defaultServiceName
	}
	if config.FileDir == "" {
		config.FileDir = "~/.config/alerty/credentials"
	}
	if config.FilePassword == "" {
		config.FilePassword = config.ServiceName + "-file-key"
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: config.ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  config.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(config.FilePassword),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring), nil
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Get retrieves a credential by key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential.
func (s *Store) Set(key, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "alerty " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Resolve returns configured when set, otherwise the keyring value for key.
// A missing or unreadable keyring yields an empty string.
func Resolve(configured string, store *Store, key string) string {
	if configured != "" || store == nil {
		return configured
	}
	v, err := store.Get(key)
	if err != nil {
		return ""
	}
	return v
}
