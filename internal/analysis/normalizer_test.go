package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkallio/sentinel/internal/models"
)

const validRiskJSON = `{
  "is_high_risk": true,
  "risk_level": "high",
  "summary": "Regulatory pressure is mounting.",
  "threats": ["lawsuit", "fine"],
  "confidence_score": 0.85,
  "recommendation": "Reduce exposure.",
  "key_news": "Regulator opens probe",
  "source_url": "https://example.com/probe"
}`

const validOpportunityJSON = `{
  "is_opportunity": true,
  "opportunity_level": "medium",
  "summary": "Earnings beat with raised guidance.",
  "catalysts": ["guidance raise"],
  "confidence_score": 0.7,
  "recommendation": "Consider accumulating.",
  "key_news": "Guidance raised",
  "source_url": "https://example.com/guidance"
}`

func TestParseValidRisk(t *testing.T) {
	result, err := Parse(validRiskJSON, models.KindRisk)
	require.NoError(t, err)

	assert.Equal(t, models.KindRisk, result.Kind)
	assert.True(t, result.Flagged)
	assert.Equal(t, models.LevelHigh, result.Level)
	assert.Equal(t, "Regulatory pressure is mounting.", result.Summary)
	assert.Equal(t, []string{"lawsuit", "fine"}, result.Factors)
	assert.Equal(t, 0.85, result.ConfidenceScore)
	assert.Equal(t, "Regulator opens probe", result.KeyNews)
}

func TestParseValidOpportunity(t *testing.T) {
	result, err := Parse(validOpportunityJSON, models.KindOpportunity)
	require.NoError(t, err)

	assert.Equal(t, models.KindOpportunity, result.Kind)
	assert.True(t, result.Flagged)
	assert.Equal(t, models.LevelMedium, result.Level)
	assert.Equal(t, []string{"guidance raise"}, result.Factors)
}

func TestParseRecoversFromWrappedOutput(t *testing.T) {
	bare, err := Parse(validRiskJSON, models.KindRisk)
	require.NoError(t, err)

	wrapped := []struct {
		name string
		raw  string
	}{
		{"code_fence", "```json\n" + validRiskJSON + "\n```"},
		{"bare_fence", "```\n" + validRiskJSON + "\n```"},
		{"leading_prose", "Here is the analysis you asked for:\n\n" + validRiskJSON},
		{"trailing_prose", validRiskJSON + "\n\nLet me know if you need more detail."},
		{"prose_both_sides", "Sure!\n" + validRiskJSON + "\nHope this helps."},
	}

	for _, tt := range wrapped {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw, models.KindRisk)
			require.NoError(t, err)
			assert.Equal(t, bare, got, "recovered output must match the bare JSON parse")
		})
	}
}

func TestParseHonorsNestedBracesInStrings(t *testing.T) {
	raw := `noise {"is_high_risk": false, "risk_level": "low", "summary": "uses {braces} and \"quotes\" inside"} trailing`

	result, err := Parse(raw, models.KindRisk)
	require.NoError(t, err)
	assert.Equal(t, models.LevelLow, result.Level)
	assert.Contains(t, result.Summary, "{braces}")
}

func TestParseMissingDiscriminantFails(t *testing.T) {
	// Valid JSON but neither boolean nor level field for the risk kind
	raw := `{"summary": "something happened", "confidence_score": 0.9}`

	_, err := Parse(raw, models.KindRisk)
	require.Error(t, err)

	var pf *ParseFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, raw, pf.RawText)
}

func TestParseKindMismatchFails(t *testing.T) {
	// Opportunity payload offered as a risk analysis has no risk discriminant
	_, err := Parse(validOpportunityJSON, models.KindRisk)
	assert.Error(t, err)
}

func TestParseNoJSONAtAll(t *testing.T) {
	_, err := Parse("I could not find anything relevant to report.", models.KindRisk)

	var pf *ParseFailure
	require.True(t, errors.As(err, &pf))
	assert.Contains(t, pf.RawText, "anything relevant")
}

func TestParseClampsConfidence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"above_one", `{"is_high_risk": false, "risk_level": "low", "confidence_score": 3.5}`, 1},
		{"negative", `{"is_high_risk": false, "risk_level": "low", "confidence_score": -0.2}`, 0},
		{"missing", `{"is_high_risk": false, "risk_level": "low"}`, 0.5},
		{"in_range", `{"is_high_risk": false, "risk_level": "low", "confidence_score": 0.42}`, 0.42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse(tt.raw, models.KindRisk)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.ConfidenceScore)
		})
	}
}

func TestParseUnknownLevel(t *testing.T) {
	raw := `{"is_high_risk": true, "risk_level": "catastrophic", "summary": "bad"}`

	result, err := Parse(raw, models.KindRisk)
	require.NoError(t, err)
	assert.Equal(t, models.LevelUnknown, result.Level)
	assert.True(t, result.Flagged, "explicit boolean wins even when the level is unknown")
}

func TestParseDerivesFlaggedFromLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"low", false},
		{"medium", false},
		{"high", true},
		{"critical", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			raw := `{"risk_level": "` + tt.level + `"}`
			result, err := Parse(raw, models.KindRisk)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Flagged)
		})
	}
}

func TestSalvage(t *testing.T) {
	raw := "The market outlook is unclear but several negative signals were observed."

	result := Salvage(raw, models.KindRisk)
	assert.Equal(t, models.KindRisk, result.Kind)
	assert.False(t, result.Flagged)
	assert.Equal(t, models.LevelUnknown, result.Level)
	assert.Equal(t, raw, result.Summary)
	assert.Equal(t, salvageConfidence, result.ConfidenceScore)
	assert.True(t, result.Provenance.Partial)
}

func TestSalvageTruncatesLongText(t *testing.T) {
	raw := strings.Repeat("a", salvageSummaryMax+500)

	result := Salvage(raw, models.KindOpportunity)
	assert.LessOrEqual(t, len(result.Summary), salvageSummaryMax+len("…"))
}
