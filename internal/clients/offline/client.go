// Package offline provides the free-tier fallback provider: a deterministic
// keyword scorer that needs no network and costs nothing.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dkallio/sentinel/internal/common"
	"github.com/dkallio/sentinel/internal/interfaces"
	"github.com/dkallio/sentinel/internal/models"
)

const (
	ProviderName = "offline"
	ModelName    = "keyword-v1"
)

// riskKeywords flag downside signals in headline text
var riskKeywords = []string{
	"bankruptcy", "breach", "class action", "default", "delisting",
	"downgrade", "fraud", "investigation", "lawsuit", "probe",
	"profit warning", "recall", "resigns", "restatement", "writedown",
}

// opportunityKeywords flag upside signals in headline text
var opportunityKeywords = []string{
	"acquisition", "approval", "beats", "breakthrough", "buyback",
	"contract win", "dividend increase", "expansion", "guidance raised",
	"partnership", "record revenue", "upgrade",
}

// Client implements the Provider interface with rule-based scoring
type Client struct {
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates the offline provider
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the provider identifier
func (c *Client) Name() string { return ProviderName }

// Model returns the scorer version identifier
func (c *Client) Model() string { return ModelName }

// Tier reports which budget mode this provider serves
func (c *Client) Tier() models.BudgetMode { return models.ModeFree }

// Generate scores the prompt's headline text against the keyword lists and
// emits a JSON document in the schema the prompt requested. Deterministic:
// the same prompt always yields the same result.
func (c *Client) Generate(ctx context.Context, prompt string, maxOutputTokens int) (*models.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The prompt embeds the response schema; its discriminant tells us
	// which analysis kind was requested.
	isOpportunity := strings.Contains(prompt, "opportunity_level")

	keywords := riskKeywords
	if isOpportunity {
		keywords = opportunityKeywords
	}

	lower := strings.ToLower(prompt)
	hits := make([]string, 0, 4)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits = append(hits, kw)
		}
	}
	sort.Strings(hits)

	level, flagged := scoreLevel(len(hits))
	confidence := 0.3 + 0.05*float64(len(hits))
	if confidence > 0.6 {
		confidence = 0.6
	}

	payload := map[string]interface{}{
		"summary":          buildSummary(isOpportunity, hits),
		"confidence_score": confidence,
		"recommendation":   "Keyword screen only; verify against full articles before acting.",
	}
	if isOpportunity {
		payload["is_opportunity"] = flagged
		payload["opportunity_level"] = string(level)
		payload["catalysts"] = hits
	} else {
		payload["is_high_risk"] = flagged
		payload["risk_level"] = string(level)
		payload["threats"] = hits
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode offline result: %w", err)
	}

	c.logger.Debug().Int("hits", len(hits)).Str("level", string(level)).Msg("Offline keyword scoring complete")

	// Zero token counts: the scorer consumes no billable tokens
	return &models.Generation{Text: string(data)}, nil
}

// scoreLevel maps keyword hit counts onto a severity level
func scoreLevel(hits int) (models.Level, bool) {
	switch {
	case hits == 0:
		return models.LevelLow, false
	case hits <= 2:
		return models.LevelMedium, false
	case hits <= 4:
		return models.LevelHigh, true
	default:
		return models.LevelCritical, true
	}
}

func buildSummary(isOpportunity bool, hits []string) string {
	noun := "risk"
	if isOpportunity {
		noun = "opportunity"
	}
	if len(hits) == 0 {
		return fmt.Sprintf("Keyword screen found no %s signals in the supplied headlines.", noun)
	}
	return fmt.Sprintf("Keyword screen flagged %d %s signal(s): %s.", len(hits), noun, strings.Join(hits, ", "))
}

// Ensure Client implements Provider
var _ interfaces.Provider = (*Client)(nil)
