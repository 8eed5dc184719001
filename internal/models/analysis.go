// Package models defines data structures for Sentinel
package models

import (
	"strings"
	"time"
)

// AnalysisKind selects the analysis schema requested from the AI backend
type AnalysisKind string

const (
	KindRisk        AnalysisKind = "risk"
	KindOpportunity AnalysisKind = "opportunity"
)

// Level grades the severity of a risk or the strength of an opportunity
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
	LevelUnknown  Level = "unknown"
)

// NormalizeLevel maps free-form model output onto the Level enum.
// Unrecognized values resolve to LevelUnknown rather than an error.
func NormalizeLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelLow:
		return LevelLow
	case LevelMedium:
		return LevelMedium
	case LevelHigh:
		return LevelHigh
	case LevelCritical:
		return LevelCritical
	default:
		return LevelUnknown
	}
}

// News is an immutable evidence item supplied by an external collaborator
type News struct {
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url"`
}

// AnalysisRequest asks for one risk or opportunity evaluation of a subject
type AnalysisRequest struct {
	Subject  string       `json:"subject"`
	Evidence []News       `json:"evidence"`
	Kind     AnalysisKind `json:"kind"`
}

// Provenance describes which backend produced a result and how trustworthy
// the structured fields are.
type Provenance struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Degraded bool   `json:"degraded"` // terminal fallback, no backend produced a result
	Partial  bool   `json:"partial"`  // salvaged from unparseable output
}

// Analysis is the kind-neutral result produced by the orchestration core.
// Flagged and Factors carry IsHighRisk/Threats for risk analyses and
// IsOpportunity/Catalysts for opportunity analyses.
type Analysis struct {
	Kind            AnalysisKind `json:"kind"`
	Flagged         bool         `json:"flagged"`
	Level           Level        `json:"level"`
	Summary         string       `json:"summary"`
	Factors         []string     `json:"factors,omitempty"`
	ConfidenceScore float64      `json:"confidence_score"`
	Recommendation  string       `json:"recommendation,omitempty"`
	KeyNews         string       `json:"key_news,omitempty"`
	SourceURL       string       `json:"source_url,omitempty"`
	Provenance      Provenance   `json:"provenance"`
}

// RiskAnalysis is the caller-facing schema for risk evaluations
type RiskAnalysis struct {
	IsHighRisk      bool       `json:"is_high_risk"`
	RiskLevel       Level      `json:"risk_level"`
	Summary         string     `json:"summary"`
	Threats         []string   `json:"threats,omitempty"`
	ConfidenceScore float64    `json:"confidence_score"`
	Recommendation  string     `json:"recommendation,omitempty"`
	KeyNews         string     `json:"key_news,omitempty"`
	SourceURL       string     `json:"source_url,omitempty"`
	Provenance      Provenance `json:"provenance"`
}

// OpportunityAnalysis is the caller-facing schema for opportunity evaluations
type OpportunityAnalysis struct {
	IsOpportunity    bool       `json:"is_opportunity"`
	OpportunityLevel Level      `json:"opportunity_level"`
	Summary          string     `json:"summary"`
	Catalysts        []string   `json:"catalysts,omitempty"`
	ConfidenceScore  float64    `json:"confidence_score"`
	Recommendation   string     `json:"recommendation,omitempty"`
	KeyNews          string     `json:"key_news,omitempty"`
	SourceURL        string     `json:"source_url,omitempty"`
	Provenance       Provenance `json:"provenance"`
}

// ToRisk converts a kind-neutral analysis into the risk schema
func (a *Analysis) ToRisk() *RiskAnalysis {
	return &RiskAnalysis{
		IsHighRisk:      a.Flagged,
		RiskLevel:       a.Level,
		Summary:         a.Summary,
		Threats:         a.Factors,
		ConfidenceScore: a.ConfidenceScore,
		Recommendation:  a.Recommendation,
		KeyNews:         a.KeyNews,
		SourceURL:       a.SourceURL,
		Provenance:      a.Provenance,
	}
}

// ToOpportunity converts a kind-neutral analysis into the opportunity schema
func (a *Analysis) ToOpportunity() *OpportunityAnalysis {
	return &OpportunityAnalysis{
		IsOpportunity:    a.Flagged,
		OpportunityLevel: a.Level,
		Summary:          a.Summary,
		Catalysts:        a.Factors,
		ConfidenceScore:  a.ConfidenceScore,
		Recommendation:   a.Recommendation,
		KeyNews:          a.KeyNews,
		SourceURL:        a.SourceURL,
		Provenance:       a.Provenance,
	}
}

// Generation is the normalized output of a single provider call
type Generation struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`  // 0 when the backend omitted usage metadata
	OutputTokens int    `json:"output_tokens"` // 0 when the backend omitted usage metadata
	Truncated    bool   `json:"truncated"`     // backend cut the response at the token budget
}
