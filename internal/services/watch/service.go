// Package watch sweeps the instrument watchlist through the analysis core
package watch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dkallio/sentinel/internal/common"
	"github.com/dkallio/sentinel/internal/interfaces"
	"github.com/dkallio/sentinel/internal/models"
)

const (
	defaultRateLimit = 1 // analysis requests per second
	defaultTimeout   = 90 * time.Second
	defaultNewsLimit = 15
)

// Result is one instrument's sweep outcome
type Result struct {
	Subject     string                      `json:"subject"`
	Risk        *models.RiskAnalysis        `json:"risk,omitempty"`
	Opportunity *models.OpportunityAnalysis `json:"opportunity,omitempty"`
	Err         error                       `json:"-"`
}

// Service runs concurrent per-instrument analyses. Upstream provider rate
// limits are respected by pacing request starts through a limiter; each
// instrument carries its own deadline.
type Service struct {
	analyzer  interfaces.Analyzer
	news      interfaces.NewsSource
	limiter   *rate.Limiter
	timeout   time.Duration
	newsLimit int
	logger    *common.Logger
}

// ServiceOption configures the service
type ServiceOption func(*Service)

// WithRateLimit sets the sweep pacing in requests per second
func WithRateLimit(rps float64) ServiceOption {
	return func(s *Service) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRequestTimeout sets the per-instrument deadline
func WithRequestTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithNewsLimit caps how many evidence items feed each analysis
func WithNewsLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.newsLimit = limit
		}
	}
}

// NewService creates a new watch service
func NewService(analyzer interfaces.Analyzer, news interfaces.NewsSource, logger *common.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	s := &Service{
		analyzer:  analyzer,
		news:      news,
		limiter:   rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
		timeout:   defaultTimeout,
		newsLimit: defaultNewsLimit,
		logger:    logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Sweep analyzes every subject for both risk and opportunity. Request starts
// are paced by the rate limiter; instruments run as independent workers.
// The returned slice is ordered like subjects.
func (s *Service) Sweep(ctx context.Context, subjects []string) []Result {
	results := make([]Result, len(subjects))

	var wg sync.WaitGroup
	for i, subject := range subjects {
		if err := s.limiter.Wait(ctx); err != nil {
			results[i] = Result{Subject: subject, Err: err}
			continue
		}

		wg.Add(1)
		go func(i int, subject string) {
			defer wg.Done()
			results[i] = s.analyzeOne(ctx, subject)
		}(i, subject)
	}
	wg.Wait()

	return results
}

// analyzeOne runs the risk and opportunity analyses for a single instrument
// under its own deadline.
func (s *Service) analyzeOne(ctx context.Context, subject string) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := Result{Subject: subject}

	evidence, err := s.news.GetNews(ctx, subject, s.newsLimit)
	if err != nil {
		s.logger.Warn().Str("subject", subject).Err(err).Msg("Failed to load news evidence")
	}
	if len(evidence) == 0 {
		s.logger.Debug().Str("subject", subject).Msg("No news evidence, skipping analysis")
		return result
	}

	risk, err := s.analyzer.AnalyzeRisk(ctx, subject, evidence)
	if err != nil {
		result.Err = err
		return result
	}
	result.Risk = risk

	opportunity, err := s.analyzer.AnalyzeOpportunity(ctx, subject, evidence)
	if err != nil {
		result.Err = err
		return result
	}
	result.Opportunity = opportunity

	s.logger.Info().
		Str("subject", subject).
		Str("risk_level", string(risk.RiskLevel)).
		Str("opportunity_level", string(opportunity.OpportunityLevel)).
		Msg("Instrument analyzed")

	return result
}
