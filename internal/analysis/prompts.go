package analysis

import (
	"fmt"
	"strings"

	"github.com/dkallio/sentinel/internal/models"
)

// Prompt ladder levels. Structural failures walk the request down the ladder:
// each step shortens the prompt and shrinks the output-token budget before
// the provider is abandoned.
const (
	promptFull = iota
	promptCompact
	promptMinimal
)

const (
	maxBodyChars       = 600
	compactMaxArticles = 10
	minimalMaxArticles = 3
	minOutputTokens    = 256
)

// riskSchema and opportunitySchema are the JSON contracts sent to the model.
const riskSchema = `{
  "is_high_risk": true,
  "risk_level": "low|medium|high|critical",
  "summary": "2-3 sentence assessment of the risk picture",
  "threats": ["specific threat 1", "specific threat 2"],
  "confidence_score": 0.0,
  "recommendation": "one actionable sentence",
  "key_news": "title of the single most material article",
  "source_url": "url of that article"
}`

const opportunitySchema = `{
  "is_opportunity": true,
  "opportunity_level": "low|medium|high|critical",
  "summary": "2-3 sentence assessment of the opportunity",
  "catalysts": ["specific catalyst 1", "specific catalyst 2"],
  "confidence_score": 0.0,
  "recommendation": "one actionable sentence",
  "key_news": "title of the single most material article",
  "source_url": "url of that article"
}`

// BuildPrompt renders the analysis prompt for a request at the given ladder
// level. Levels beyond promptMinimal clamp to promptMinimal.
func BuildPrompt(req *models.AnalysisRequest, level int) string {
	if level > promptMinimal {
		level = promptMinimal
	}

	var sb strings.Builder

	schema := riskSchema
	focus := "risk"
	if req.Kind == models.KindOpportunity {
		schema = opportunitySchema
		focus = "opportunity"
	}

	switch level {
	case promptFull:
		sb.WriteString(fmt.Sprintf("You are a financial news analyst. Evaluate %s signals for %s based on the evidence below.\n\nRecent articles:\n", focus, req.Subject))
		for i, n := range req.Evidence {
			date := n.PublishedAt.Format("2006-01-02")
			sb.WriteString(fmt.Sprintf("%d. \"%s\" - %s (%s) - %s\n", i+1, n.Title, n.Source, date, n.URL))
			if body := truncate(n.Body, maxBodyChars); body != "" {
				sb.WriteString(fmt.Sprintf("   %s\n", body))
			}
		}
		sb.WriteString("\nRules:\n")
		sb.WriteString("- Be skeptical. Weight material, price-moving information over promotional content\n")
		sb.WriteString("- Base every claim on the evidence; do not invent facts\n")
		sb.WriteString(fmt.Sprintf("- confidence_score reflects how well the evidence supports the %s call\n", focus))

	case promptCompact:
		sb.WriteString(fmt.Sprintf("Financial %s check for %s. Headlines:\n", focus, req.Subject))
		for i, n := range req.Evidence {
			if i >= compactMaxArticles {
				break
			}
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", n.Title, n.Source))
		}

	case promptMinimal:
		sb.WriteString(fmt.Sprintf("Assess %s for %s given:\n", focus, req.Subject))
		for i, n := range req.Evidence {
			if i >= minimalMaxArticles {
				break
			}
			sb.WriteString(fmt.Sprintf("- %s\n", n.Title))
		}
	}

	sb.WriteString("\nReturn ONLY valid JSON in exactly this shape, no markdown code fences, no explanation:\n")
	sb.WriteString(schema)
	sb.WriteString("\n")

	return sb.String()
}

// OutputBudget returns the max-output-token budget for a ladder level:
// the base budget halved per step, floored at minOutputTokens.
func OutputBudget(base, level int) int {
	if base <= 0 {
		base = 2048
	}
	budget := base >> level
	if budget < minOutputTokens {
		budget = minOutputTokens
	}
	return budget
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
