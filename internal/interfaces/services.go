package interfaces

import (
	"context"

	"github.com/dkallio/sentinel/internal/models"
)

// Analyzer evaluates news evidence for a subject. Both operations are total
// under normal operation: every failure mode short of a configuration error
// resolves to a well-typed result with provenance flags set.
type Analyzer interface {
	AnalyzeRisk(ctx context.Context, subject string, evidence []models.News) (*models.RiskAnalysis, error)
	AnalyzeOpportunity(ctx context.Context, subject string, evidence []models.News) (*models.OpportunityAnalysis, error)
}

// BudgetLedger tracks monthly AI spend and decides the provider-selection mode
type BudgetLedger interface {
	// Mode returns Free or Paid from the persisted budget state
	Mode() models.BudgetMode

	// RecordUsage prices one completed provider call and persists the
	// updated month bucket synchronously. Must be called exactly once per
	// completed call (success or priced failure).
	RecordUsage(provider, model string, inputTokens, outputTokens int) error

	// Snapshot returns a deep copy of all persisted month buckets
	Snapshot() models.LedgerFile
}
