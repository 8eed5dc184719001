// Package gemini provides a provider adapter for the Google Gemini API
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dkallio/sentinel/internal/analysis"
	"github.com/dkallio/sentinel/internal/common"
	"github.com/dkallio/sentinel/internal/interfaces"
	"github.com/dkallio/sentinel/internal/models"
)

const (
	ProviderName = "gemini"
	DefaultModel = "gemini-2.0-flash"
)

// Client implements the Provider interface against the Gemini API
type Client struct {
	client *genai.Client
	model  string
	tier   models.BudgetMode
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

// WithTier sets the budget tier this client serves
func WithTier(tier models.BudgetMode) ClientOption {
	return func(c *Client) {
		c.tier = tier
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini provider adapter
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		tier:   models.ModePaid,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Name returns the provider identifier
func (c *Client) Name() string { return ProviderName }

// Model returns the configured model identifier
func (c *Client) Model() string { return c.model }

// Tier reports which budget mode this provider serves
func (c *Client) Tier() models.BudgetMode { return c.tier }

// Generate produces text for a prompt, normalizing the Gemini response
// envelope into a Generation.
func (c *Client) Generate(ctx context.Context, prompt string, maxOutputTokens int) (*models.Generation, error) {
	c.logger.Debug().Str("model", c.model).Int("max_output_tokens", maxOutputTokens).Msg("Generating content")

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxOutputTokens),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return nil, c.classifyError(err)
	}

	return c.extractGeneration(result)
}

// classifyError maps Gemini API errors onto the shared taxonomy
func (c *Client) classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return &analysis.AuthError{Provider: ProviderName, Err: err}
		case 429:
			return &analysis.QuotaError{Provider: ProviderName, Err: err}
		}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

// extractGeneration normalizes the response envelope, which has varied
// across API versions, into plain text plus usage metadata.
func (c *Client) extractGeneration(result *genai.GenerateContentResponse) (*models.Generation, error) {
	inputTokens, outputTokens := 0, 0
	if result.UsageMetadata != nil {
		inputTokens = int(result.UsageMetadata.PromptTokenCount)
		outputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}

	if len(result.Candidates) == 0 {
		return nil, &analysis.StructuralError{
			Provider:     ProviderName,
			Reason:       "no candidates in response",
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}
	}

	candidate := result.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, &analysis.StructuralError{
			Provider:     ProviderName,
			Reason:       "content rejected by safety filter",
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}
	}

	var sb strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}

	text := sb.String()
	if text == "" {
		return nil, &analysis.StructuralError{
			Provider:     ProviderName,
			Reason:       "no text in response parts",
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}
	}

	return &models.Generation{
		Text:         text,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Truncated:    candidate.FinishReason == genai.FinishReasonMaxTokens,
	}, nil
}

// Ensure Client implements Provider
var _ interfaces.Provider = (*Client)(nil)
