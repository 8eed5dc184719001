// Package interfaces defines service contracts for Sentinel
package interfaces

import (
	"context"

	"github.com/dkallio/sentinel/internal/models"
)

// Provider turns a prompt into generated text through one AI backend.
// Implementations own the backend's HTTPS/JSON contract entirely; nothing
// backend-specific leaks past Generate.
type Provider interface {
	// Name returns the provider identifier used in pricing and ledger keys
	Name() string

	// Model returns the configured model identifier
	Model() string

	// Tier reports which budget mode this provider serves
	Tier() models.BudgetMode

	// Generate produces text for a prompt, bounded by maxOutputTokens.
	// Token counts in the Generation are zero when the backend omitted
	// usage metadata. A response with no extractable text yields a
	// StructuralError; text is never fabricated.
	Generate(ctx context.Context, prompt string, maxOutputTokens int) (*models.Generation, error)
}

// NewsSource supplies evidence items for a subject
type NewsSource interface {
	GetNews(ctx context.Context, subject string, limit int) ([]models.News, error)
}
