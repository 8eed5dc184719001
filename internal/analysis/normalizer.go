package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dkallio/sentinel/internal/models"
)

const (
	// salvageConfidence is the conservative default for degraded results
	salvageConfidence = 0.3
	// defaultConfidence fills a valid response that omitted the score
	defaultConfidence = 0.5
	// salvageSummaryMax caps how much raw text a salvaged summary carries
	salvageSummaryMax = 2000
)

// riskEnvelope is the expected JSON shape for risk analyses. Pointer fields
// distinguish absent from zero-valued.
type riskEnvelope struct {
	IsHighRisk      *bool    `json:"is_high_risk"`
	RiskLevel       *string  `json:"risk_level"`
	Summary         string   `json:"summary"`
	Threats         []string `json:"threats"`
	ConfidenceScore *float64 `json:"confidence_score"`
	Recommendation  string   `json:"recommendation"`
	KeyNews         string   `json:"key_news"`
	SourceURL       string   `json:"source_url"`
}

// opportunityEnvelope is the expected JSON shape for opportunity analyses
type opportunityEnvelope struct {
	IsOpportunity    *bool    `json:"is_opportunity"`
	OpportunityLevel *string  `json:"opportunity_level"`
	Summary          string   `json:"summary"`
	Catalysts        []string `json:"catalysts"`
	ConfidenceScore  *float64 `json:"confidence_score"`
	Recommendation   string   `json:"recommendation"`
	KeyNews          string   `json:"key_news"`
	SourceURL        string   `json:"source_url"`
}

// Parse decodes raw model output into the strict schema for kind.
// Policy: accept the text directly if it already decodes with the kind's
// discriminant field present; otherwise strip code fences, extract the first
// balanced {...} span, and decode that. Confidence is clamped into [0,1] and
// unrecognized level values map to "unknown" rather than failing. On failure
// the returned error is a *ParseFailure carrying the raw text.
func Parse(raw string, kind models.AnalysisKind) (*models.Analysis, error) {
	candidate := strings.TrimSpace(raw)

	if result, err := decode(candidate, kind); err == nil {
		return result, nil
	}

	candidate = stripFences(candidate)
	if result, err := decode(candidate, kind); err == nil {
		return result, nil
	}

	obj, ok := extractObject(candidate)
	if !ok {
		return nil, &ParseFailure{RawText: raw, Err: fmt.Errorf("no JSON object found")}
	}

	result, err := decode(obj, kind)
	if err != nil {
		return nil, &ParseFailure{RawText: raw, Err: err}
	}
	return result, nil
}

// Salvage builds a degraded result from text that failed structured parsing:
// the raw text becomes an unstructured summary with conservative defaults.
func Salvage(raw string, kind models.AnalysisKind) *models.Analysis {
	return &models.Analysis{
		Kind:            kind,
		Flagged:         false,
		Level:           models.LevelUnknown,
		Summary:         truncate(raw, salvageSummaryMax),
		ConfidenceScore: salvageConfidence,
		Provenance:      models.Provenance{Partial: true},
	}
}

// decode strictly unmarshals one JSON candidate for the given kind and
// requires its discriminant field.
func decode(candidate string, kind models.AnalysisKind) (*models.Analysis, error) {
	switch kind {
	case models.KindOpportunity:
		var env opportunityEnvelope
		if err := json.Unmarshal([]byte(candidate), &env); err != nil {
			return nil, err
		}
		if env.IsOpportunity == nil && env.OpportunityLevel == nil {
			return nil, fmt.Errorf("missing opportunity discriminant field")
		}

		level := models.LevelUnknown
		if env.OpportunityLevel != nil {
			level = models.NormalizeLevel(*env.OpportunityLevel)
		}
		return &models.Analysis{
			Kind:            kind,
			Flagged:         flagged(env.IsOpportunity, level),
			Level:           level,
			Summary:         env.Summary,
			Factors:         env.Catalysts,
			ConfidenceScore: clampConfidence(env.ConfidenceScore),
			Recommendation:  env.Recommendation,
			KeyNews:         env.KeyNews,
			SourceURL:       env.SourceURL,
		}, nil

	default:
		var env riskEnvelope
		if err := json.Unmarshal([]byte(candidate), &env); err != nil {
			return nil, err
		}
		if env.IsHighRisk == nil && env.RiskLevel == nil {
			return nil, fmt.Errorf("missing risk discriminant field")
		}

		level := models.LevelUnknown
		if env.RiskLevel != nil {
			level = models.NormalizeLevel(*env.RiskLevel)
		}
		return &models.Analysis{
			Kind:            models.KindRisk,
			Flagged:         flagged(env.IsHighRisk, level),
			Level:           level,
			Summary:         env.Summary,
			Factors:         env.Threats,
			ConfidenceScore: clampConfidence(env.ConfidenceScore),
			Recommendation:  env.Recommendation,
			KeyNews:         env.KeyNews,
			SourceURL:       env.SourceURL,
		}, nil
	}
}

// flagged resolves the boolean discriminant, deriving it from the level when
// the model omitted it.
func flagged(explicit *bool, level models.Level) bool {
	if explicit != nil {
		return *explicit
	}
	return level == models.LevelHigh || level == models.LevelCritical
}

// clampConfidence clamps a reported score into [0,1]; a missing score
// resolves to the neutral default.
func clampConfidence(score *float64) float64 {
	if score == nil {
		return defaultConfidence
	}
	if *score < 0 {
		return 0
	}
	if *score > 1 {
		return 1
	}
	return *score
}

// stripFences removes markdown code-fence markers around a JSON block
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractObject returns the first balanced {...} span in s, honoring JSON
// string literals and escapes.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
