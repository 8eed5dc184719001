package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkallio/sentinel/internal/models"
)

// stubAnalyzer returns canned analyses and records which subjects it saw
type stubAnalyzer struct {
	mu       sync.Mutex
	subjects []string
	riskErr  error
}

func (a *stubAnalyzer) AnalyzeRisk(ctx context.Context, subject string, evidence []models.News) (*models.RiskAnalysis, error) {
	a.mu.Lock()
	a.subjects = append(a.subjects, subject)
	a.mu.Unlock()

	if a.riskErr != nil {
		return nil, a.riskErr
	}
	return &models.RiskAnalysis{RiskLevel: models.LevelLow}, nil
}

func (a *stubAnalyzer) AnalyzeOpportunity(ctx context.Context, subject string, evidence []models.News) (*models.OpportunityAnalysis, error) {
	return &models.OpportunityAnalysis{OpportunityLevel: models.LevelMedium}, nil
}

// stubNews serves fixed evidence per subject
type stubNews struct {
	bySubject map[string][]models.News
	err       error
}

func (n *stubNews) GetNews(ctx context.Context, subject string, limit int) ([]models.News, error) {
	if n.err != nil {
		return nil, n.err
	}
	items := n.bySubject[subject]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func someNews(count int) []models.News {
	items := make([]models.News, count)
	for i := range items {
		items[i] = models.News{Title: "headline", PublishedAt: time.Now()}
	}
	return items
}

func TestSweepAnalyzesEverySubjectInOrder(t *testing.T) {
	analyzer := &stubAnalyzer{}
	news := &stubNews{bySubject: map[string][]models.News{
		"BHP.AU": someNews(3),
		"CSL.AU": someNews(2),
		"WES.AU": someNews(1),
	}}

	s := NewService(analyzer, news, nil, WithRateLimit(1000))
	results := s.Sweep(context.Background(), []string{"BHP.AU", "CSL.AU", "WES.AU"})

	require.Len(t, results, 3)
	assert.Equal(t, "BHP.AU", results[0].Subject)
	assert.Equal(t, "CSL.AU", results[1].Subject)
	assert.Equal(t, "WES.AU", results[2].Subject)

	for _, r := range results {
		require.NoError(t, r.Err)
		require.NotNil(t, r.Risk)
		require.NotNil(t, r.Opportunity)
		assert.Equal(t, models.LevelLow, r.Risk.RiskLevel)
		assert.Equal(t, models.LevelMedium, r.Opportunity.OpportunityLevel)
	}

	assert.ElementsMatch(t, []string{"BHP.AU", "CSL.AU", "WES.AU"}, analyzer.subjects)
}

func TestSweepSkipsSubjectsWithoutNews(t *testing.T) {
	analyzer := &stubAnalyzer{}
	news := &stubNews{bySubject: map[string][]models.News{
		"BHP.AU": someNews(1),
	}}

	s := NewService(analyzer, news, nil, WithRateLimit(1000))
	results := s.Sweep(context.Background(), []string{"BHP.AU", "QUIET.AU"})

	require.Len(t, results, 2)
	assert.NotNil(t, results[0].Risk)
	assert.Nil(t, results[1].Risk, "no evidence means no analysis")
	assert.Nil(t, results[1].Opportunity)
	assert.NoError(t, results[1].Err)

	assert.Equal(t, []string{"BHP.AU"}, analyzer.subjects)
}

func TestSweepNewsErrorIsSkippedNotFatal(t *testing.T) {
	analyzer := &stubAnalyzer{}
	news := &stubNews{err: errors.New("disk on fire")}

	s := NewService(analyzer, news, nil, WithRateLimit(1000))
	results := s.Sweep(context.Background(), []string{"BHP.AU"})

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err, "evidence load failures degrade to a skip")
	assert.Nil(t, results[0].Risk)
	assert.Empty(t, analyzer.subjects)
}

func TestSweepAnalyzerErrorIsRecordedPerSubject(t *testing.T) {
	analyzerErr := errors.New("no provider configured")
	analyzer := &stubAnalyzer{riskErr: analyzerErr}
	news := &stubNews{bySubject: map[string][]models.News{
		"BHP.AU": someNews(1),
	}}

	s := NewService(analyzer, news, nil, WithRateLimit(1000))
	results := s.Sweep(context.Background(), []string{"BHP.AU"})

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, analyzerErr)
	assert.Nil(t, results[0].Risk)
}

func TestSweepEmptyWatchlist(t *testing.T) {
	s := NewService(&stubAnalyzer{}, &stubNews{}, nil)
	assert.Empty(t, s.Sweep(context.Background(), nil))
}

func TestSweepCancelledContextStopsPacing(t *testing.T) {
	analyzer := &stubAnalyzer{}
	news := &stubNews{bySubject: map[string][]models.News{"BHP.AU": someNews(1)}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Slow limiter: the first Wait already observes the cancelled context
	s := NewService(analyzer, news, nil, WithRateLimit(0.001))
	results := s.Sweep(ctx, []string{"BHP.AU", "CSL.AU"})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.Err)
	}
	assert.Empty(t, analyzer.subjects)
}
