// Package anthropic provides a provider adapter for the Anthropic Messages API
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dkallio/sentinel/internal/analysis"
	"github.com/dkallio/sentinel/internal/common"
	"github.com/dkallio/sentinel/internal/interfaces"
	"github.com/dkallio/sentinel/internal/models"
)

const (
	ProviderName = "anthropic"
	DefaultModel = "claude-3-5-haiku-latest"

	systemPrompt = "You are a financial analyst AI assistant. Analyze the provided information and respond with valid JSON according to the requested format."
)

// Client implements the Provider interface against the Anthropic Messages API
type Client struct {
	client anthropic.Client
	model  string
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Anthropic provider adapter
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  DefaultModel,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the provider identifier
func (c *Client) Name() string { return ProviderName }

// Model returns the configured model identifier
func (c *Client) Model() string { return c.model }

// Tier reports which budget mode this provider serves
func (c *Client) Tier() models.BudgetMode { return models.ModePaid }

// Generate produces text for a prompt, normalizing the Messages API envelope
// into a Generation.
func (c *Client) Generate(ctx context.Context, prompt string, maxOutputTokens int) (*models.Generation, error) {
	c.logger.Debug().Str("model", c.model).Int("max_output_tokens", maxOutputTokens).Msg("Generating content")

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxOutputTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, c.classifyError(err)
	}

	inputTokens := int(message.Usage.InputTokens)
	outputTokens := int(message.Usage.OutputTokens)

	if message.StopReason == anthropic.StopReasonRefusal {
		return nil, &analysis.StructuralError{
			Provider:     ProviderName,
			Reason:       "model refused to answer",
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := sb.String()
	if text == "" {
		return nil, &analysis.StructuralError{
			Provider:     ProviderName,
			Reason:       "no text blocks in response",
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}
	}

	return &models.Generation{
		Text:         text,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Truncated:    message.StopReason == anthropic.StopReasonMaxTokens,
	}, nil
}

// classifyError maps Anthropic API errors onto the shared taxonomy
func (c *Client) classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return &analysis.AuthError{Provider: ProviderName, Err: err}
		case 429:
			return &analysis.QuotaError{Provider: ProviderName, Err: err}
		}
	}
	return fmt.Errorf("anthropic request failed: %w", err)
}

// Ensure Client implements Provider
var _ interfaces.Provider = (*Client)(nil)
