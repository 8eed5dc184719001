// Package openai provides a provider adapter for the OpenAI chat API
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dkallio/sentinel/internal/analysis"
	"github.com/dkallio/sentinel/internal/common"
	"github.com/dkallio/sentinel/internal/interfaces"
	"github.com/dkallio/sentinel/internal/models"
)

const (
	ProviderName = "openai"
	DefaultModel = "gpt-4o-mini"

	systemPrompt = "You are a financial analyst AI assistant. Analyze the provided information and respond with valid JSON according to the requested format."
)

// Client implements the Provider interface against the OpenAI chat API
type Client struct {
	client *openai.Client
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

// NewClient creates a new OpenAI provider adapter
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		client: openai.NewClient(apiKey),
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

// Generate produces text for a prompt, normalizing the chat completion
// envelope into a Generation.
func (c *Client) Generate(ctx context.Context, prompt string, maxOutputTokens int) (*models.Generation, error) {
	c.logger.Debug().Str("model", c.model).Int("max_output_tokens", maxOutputTokens).Msg("Generating content")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: maxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, c.classifyError(err)
	}

	inputTokens := resp.Usage.PromptTokens
	outputTokens := resp.Usage.CompletionTokens

	if len(resp.Choices) == 0 {
		return nil, &analysis.StructuralError{
			Provider:     ProviderName,
			Reason:       "no choices in response",
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return nil, &analysis.StructuralError{
			Provider:     ProviderName,
			Reason:       "content rejected by moderation filter",
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}
	}

	if choice.Message.Content == "" {
		return nil, &analysis.StructuralError{
			Provider:     ProviderName,
			Reason:       "empty message content",
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}
	}

	return &models.Generation{
		Text:         choice.Message.Content,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Truncated:    choice.FinishReason == openai.FinishReasonLength,
	}, nil
}

// classifyError maps OpenAI API errors onto the shared taxonomy
func (c *Client) classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return &analysis.AuthError{Provider: ProviderName, Err: err}
		case 429:
			return &analysis.QuotaError{Provider: ProviderName, Err: err}
		}
	}
	return fmt.Errorf("openai request failed: %w", err)
}

// Ensure Client implements Provider
var _ interfaces.Provider = (*Client)(nil)
