// Package classifier assigns a severity and a short message to incident reports.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bissquit/alerty/internal/domain"
	"github.com/bissquit/alerty/internal/pkg/ctxlog"
)

// MaxMessageWords caps the length of a remotely produced message.
const MaxMessageWords = 15

// Result is the outcome of a classification.
type Result struct {
	Severity         domain.Severity `json:"severity"`
	FormattedMessage string          `json:"formatted_message"`
	Fallback         bool            `json:"-"`
}

// Provider performs the remote classification call.
type Provider interface {
	Classify(ctx context.Context, incident, location string) (Result, error)
}

// Config holds classifier configuration.
type Config struct {
	// Language selects the fallback message template, e.g. "en" or "es".
	Language string
}

// Classifier wraps a Provider with a deterministic local fallback.
// Classify never fails.
type Classifier struct {
	provider Provider
	fallback *fallbackFormatter
}

// New creates a classifier. A nil provider means no credential is
// configured and every call resolves to the fallback without a remote call.
func New(provider Provider, config Config) *Classifier {
	return &Classifier{
		provider: provider,
		fallback: newFallbackFormatter(config.Language),
	}
}

// Enabled reports whether remote classification is configured.
func (c *Classifier) Enabled() bool {
	return c.provider != nil
}

// Classify returns the remote classification, or the fallback when the
// provider is absent, fails or answers with something unusable.
func (c *Classifier) Classify(ctx context.Context, incident, location string) (result Result) {
	logger := ctxlog.FromContext(ctx)

	if c.provider == nil {
		recordResult(outcomeNoCredential)
		return c.Fallback(incident, location)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("classifier provider panicked", "panic", r)
			recordResult(outcomeProviderError)
			result = c.Fallback(incident, location)
		}
	}()

	start := time.Now()
	res, err := c.provider.Classify(ctx, incident, location)
	recordDuration(time.Since(start))
	if err != nil {
		logger.Warn("classification failed, using fallback", "error", err)
		recordResult(outcomeProviderError)
		return c.Fallback(incident, location)
	}

	if err := validate(res); err != nil {
		logger.Warn("classification response rejected, using fallback", "error", err)
		recordResult(outcomeInvalidResponse)
		return c.Fallback(incident, location)
	}

	recordResult(outcomeRemote)
	slog.Debug("incident classified", "severity", res.Severity)
	return Result{
		Severity:         res.Severity,
		FormattedMessage: strings.TrimSpace(res.FormattedMessage),
	}
}

// Fallback returns the deterministic local classification.
func (c *Classifier) Fallback(incident, location string) Result {
	return Result{
		Severity:         domain.SeverityInfo,
		FormattedMessage: c.fallback.format(incident, location),
		Fallback:         true,
	}
}

func validate(res Result) error {
	if !res.Severity.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, res.Severity)
	}
	msg := strings.TrimSpace(res.FormattedMessage)
	if msg == "" {
		return ErrEmptyMessage
	}
	if n := len(strings.Fields(msg)); n > MaxMessageWords {
		return fmt.Errorf("%w: %d words", ErrMessageTooLong, n)
	}
	return nil
}
