package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/bissquit/alerty/internal/classifier"
	"github.com/bissquit/alerty/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(Config{APIKey: "test-key", BaseURL: server.URL}, option.WithMaxRetries(0))
}

func messageResponse(content string) string {
	return `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-haiku-4-5",
		"content": ` + content + `,
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{APIKey: "k"})

	assert.Equal(t, anthropic.Model(defaultModel), p.model)
	assert.Equal(t, int64(defaultMaxTokens), p.maxTokens)
}

func TestProvider_Classify_Success(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		choice, ok := body["tool_choice"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, toolName, choice["name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse(`[{
			"type": "tool_use",
			"id": "tu_1",
			"name": "record_alert",
			"input": {"severity": "critical", "formattedMessage": "Cardiac arrest in Room 302"}
		}]`)))
	})

	res, err := p.Classify(context.Background(), "Cardiac arrest", "Room 302")

	require.NoError(t, err)
	assert.Equal(t, domain.SeverityCritical, res.Severity)
	assert.Equal(t, "Cardiac arrest in Room 302", res.FormattedMessage)
}

func TestProvider_Classify_TextOnlyResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse(`[{"type": "text", "text": "I think it is critical"}]`)))
	})

	_, err := p.Classify(context.Background(), "Fall", "Lobby")

	assert.ErrorIs(t, err, ErrNoToolUse)
}

func TestProvider_Classify_UnknownSeverity(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse(`[{
			"type": "tool_use",
			"id": "tu_1",
			"name": "record_alert",
			"input": {"severity": "SEVERE", "formattedMessage": "x"}
		}]`)))
	})

	_, err := p.Classify(context.Background(), "Fall", "Lobby")

	assert.ErrorIs(t, err, classifier.ErrInvalidSeverity)
}

func TestProvider_Classify_ServerError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	})

	_, err := p.Classify(context.Background(), "Fall", "Lobby")

	assert.Error(t, err)
}

func TestProvider_WithClassifierFallsBackOnError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	})

	res := classifier.New(p, classifier.Config{}).Classify(context.Background(), "Cardiac arrest", "Room 302")

	assert.Equal(t, domain.SeverityInfo, res.Severity)
	assert.Equal(t, "ALERT: Cardiac arrest at Room 302", res.FormattedMessage)
}
