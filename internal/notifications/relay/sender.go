// Package relay delivers notifications through a push relay webhook, reaching
// the device even when no foreground client is connected.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bissquit/alerty/internal/notifications"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 5.0
	defaultSource    = "alerty"
)

// Config holds relay sender configuration.
// An empty URL leaves the surface permanently not ready.
type Config struct {
	URL       string
	Token     string        // bearer token (optional)
	Source    string        // sender name shown by the relay, default "alerty"
	Timeout   time.Duration // request timeout
	RateLimit float64       // requests per second
}

// Sender implements notifications.BackgroundSurface over HTTP.
type Sender struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSender creates a new relay sender.
func NewSender(config Config) *Sender {
	if config.Source == "" {
		config.Source = defaultSource
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaultRateLimit
	}

	return &Sender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Ready reports whether a relay is configured.
func (s *Sender) Ready(_ context.Context) bool {
	return s.config.URL != ""
}

type relayPayload struct {
	Source       string                `json:"source"`
	Notification notifications.Payload `json:"notification"`
	SentAt       time.Time             `json:"sent_at"`
}

// Show posts the notification to the relay.
func (s *Sender) Show(ctx context.Context, payload notifications.Payload) error {
	if s.config.URL == "" {
		return &PermanentError{Message: "relay URL is empty"}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return &RetryableError{Message: fmt.Sprintf("rate limiter: %v", err)}
	}

	body, err := json.Marshal(relayPayload{
		Source:       s.config.Source,
		Notification: payload,
		SentAt:       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &RetryableError{Message: fmt.Sprintf("send request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	return s.handleResponse(resp, payload.Tag)
}

func (s *Sender) handleResponse(resp *http.Response, tag string) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		slog.Debug("relay notification sent", "relay", maskURL(s.config.URL), "tag", tag)
		return nil

	case resp.StatusCode == http.StatusBadRequest:
		return &PermanentError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("bad request: %s", string(body)),
		}

	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &PermanentError{
			Code:    resp.StatusCode,
			Message: "invalid relay token",
		}

	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return &PermanentError{
			Code:    resp.StatusCode,
			Message: "device subscription not found",
		}

	case resp.StatusCode == http.StatusTooManyRequests:
		return &RetryableError{
			Code:    resp.StatusCode,
			Message: "rate limited",
		}

	case resp.StatusCode >= 500:
		return &RetryableError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("server error: %s", string(body)),
		}

	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// maskURL hides part of the URL for logging.
func maskURL(url string) string {
	if len(url) > 40 {
		return url[:20] + "..." + url[len(url)-10:]
	}
	return url
}

// PermanentError indicates the relay rejected the notification for good.
type PermanentError struct {
	Code    int
	Message string
}

func (e *PermanentError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("relay error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("relay error: %s", e.Message)
}

// IsRetryable returns false as permanent errors should not be retried.
func (e *PermanentError) IsRetryable() bool { return false }

// RetryableError indicates a temporary relay failure.
type RetryableError struct {
	Code    int
	Message string
}

func (e *RetryableError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("relay error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("relay error: %s", e.Message)
}

// IsRetryable returns true as these errors are temporary.
func (e *RetryableError) IsRetryable() bool { return true }
