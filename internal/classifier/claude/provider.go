// Package claude implements remote severity classification on the Anthropic Messages API.
package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/bissquit/alerty/internal/classifier"
	"github.com/bissquit/alerty/internal/domain"
)

const (
	defaultModel     = "claude-haiku-4-5"
	defaultMaxTokens = 256
	toolName         = "record_alert"
)

const systemPrompt = `You triage medical and emergency incident reports.
Assign a severity: CRITICAL for immediate danger to life, WARNING for a situation that needs prompt attention, INFO for anything else.
Write a clear alert message of at most %d words that a responder can act on.
Always answer by calling the record_alert tool.`

// ErrNoToolUse is returned when the response carries no usable tool call.
var ErrNoToolUse = errors.New("response has no record_alert tool call")

// Config holds provider configuration.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int64
}

// Provider classifies incidents with a single forced tool call.
type Provider struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New creates a provider. Extra request options are applied after the
// ones derived from config.
func New(config Config, opts ...option.RequestOption) *Provider {
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(config.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &Provider{
		client:    anthropic.NewClient(reqOpts...),
		model:     anthropic.Model(config.Model),
		maxTokens: config.MaxTokens,
	}
}

type toolInput struct {
	Severity         string `json:"severity"`
	FormattedMessage string `json:"formattedMessage"`
}

// Classify sends the incident to the model and parses the tool call.
func (p *Provider) Classify(ctx context.Context, incident, location string) (classifier.Result, error) {
	msg, err := p.client.Messages.New(ctx, p.params(incident, location))
	if err != nil {
		return classifier.Result{}, fmt.Errorf("create message: %w", err)
	}
	return parseMessage(msg)
}

func (p *Provider) params(incident, location string) anthropic.MessageNewParams {
	prompt := fmt.Sprintf("Incident: %s\nLocation: %s", incident, location)

	return anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: fmt.Sprintf(systemPrompt, classifier.MaxMessageWords)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			{OfTool: &anthropic.ToolParam{
				Name:        toolName,
				Description: anthropic.String("Record the severity and alert message for an incident."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]any{
						"severity": map[string]any{
							"type": "string",
							"enum": []string{
								string(domain.SeverityCritical),
								string(domain.SeverityWarning),
								string(domain.SeverityInfo),
							},
						},
						"formattedMessage": map[string]any{
							"type":        "string",
							"description": fmt.Sprintf("Alert message, at most %d words.", classifier.MaxMessageWords),
						},
					},
					Required: []string{"severity", "formattedMessage"},
				},
			}},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: toolName},
		},
	}
}

func parseMessage(msg *anthropic.Message) (classifier.Result, error) {
	for _, block := range msg.Content {
		if block.Type != "tool_use" || block.Name != toolName {
			continue
		}

		var in toolInput
		if err := json.Unmarshal(block.Input, &in); err != nil {
			return classifier.Result{}, fmt.Errorf("decode tool input: %w", err)
		}

		sev, ok := domain.ParseSeverity(in.Severity)
		if !ok {
			return classifier.Result{}, fmt.Errorf("%w: %q", classifier.ErrInvalidSeverity, in.Severity)
		}

		return classifier.Result{
			Severity:         sev,
			FormattedMessage: in.FormattedMessage,
		}, nil
	}
	return classifier.Result{}, ErrNoToolUse
}
