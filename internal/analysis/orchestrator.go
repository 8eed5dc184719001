package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkallio/sentinel/internal/common"
	"github.com/dkallio/sentinel/internal/interfaces"
	"github.com/dkallio/sentinel/internal/models"
	"github.com/dkallio/sentinel/internal/retry"
)

// TokenEstimator approximates token counts when a backend omits usage
// metadata.
type TokenEstimator func(text string) int

// CharQuarterEstimator is the default estimator: one token per four
// characters.
func CharQuarterEstimator(text string) int {
	return len(text) / 4
}

const defaultEscalationSteps = 3

// Orchestrator drives AI analysis across a provider chain under budget
// constraints. Provider order is fixed at construction: paid providers first
// (in configured order), free providers last. Free budget mode skips the
// paid prefix entirely.
type Orchestrator struct {
	providers       []interfaces.Provider
	ledger          interfaces.BudgetLedger
	retryPolicy     retry.Policy
	maxOutputTokens int
	escalationSteps int
	cooldown        time.Duration
	estimate        TokenEstimator
	logger          *common.Logger
	now             func() time.Time

	mu             sync.Mutex
	suspendedUntil map[string]time.Time
}

// OrchestratorOption configures the orchestrator
type OrchestratorOption func(*Orchestrator)

// WithRetryPolicy sets the per-provider retry parameters
func WithRetryPolicy(policy retry.Policy) OrchestratorOption {
	return func(o *Orchestrator) {
		o.retryPolicy = policy
	}
}

// WithMaxOutputTokens sets the base output-token budget for ladder level 0
func WithMaxOutputTokens(tokens int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxOutputTokens = tokens
	}
}

// WithEscalationSteps bounds the prompt-simplification ladder
func WithEscalationSteps(steps int) OrchestratorOption {
	return func(o *Orchestrator) {
		if steps > 0 {
			o.escalationSteps = steps
		}
	}
}

// WithCooldown suspends a provider for the given window after an auth or
// quota failure. Zero keeps the original behavior: a fresh chance on every
// request.
func WithCooldown(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cooldown = d
	}
}

// WithEstimator replaces the fallback token estimator
func WithEstimator(estimate TokenEstimator) OrchestratorOption {
	return func(o *Orchestrator) {
		if estimate != nil {
			o.estimate = estimate
		}
	}
}

// WithOrchestratorClock overrides the time source
func WithOrchestratorClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates the analysis orchestrator. Providers must already
// be ordered: paid chain first, free/offline providers last.
func NewOrchestrator(providers []interfaces.Provider, ledger interfaces.BudgetLedger, logger *common.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	o := &Orchestrator{
		providers:       providers,
		ledger:          ledger,
		retryPolicy:     retry.DefaultPolicy(),
		maxOutputTokens: 2048,
		escalationSteps: defaultEscalationSteps,
		estimate:        CharQuarterEstimator,
		logger:          logger,
		now:             time.Now,
		suspendedUntil:  make(map[string]time.Time),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// AnalyzeRisk evaluates risk signals for a subject. Total under normal
// operation: every provider failure resolves to a degraded result.
func (o *Orchestrator) AnalyzeRisk(ctx context.Context, subject string, evidence []models.News) (*models.RiskAnalysis, error) {
	result, err := o.analyze(ctx, &models.AnalysisRequest{
		Subject:  subject,
		Evidence: evidence,
		Kind:     models.KindRisk,
	})
	if err != nil {
		return nil, err
	}
	return result.ToRisk(), nil
}

// AnalyzeOpportunity evaluates opportunity signals for a subject
func (o *Orchestrator) AnalyzeOpportunity(ctx context.Context, subject string, evidence []models.News) (*models.OpportunityAnalysis, error) {
	result, err := o.analyze(ctx, &models.AnalysisRequest{
		Subject:  subject,
		Evidence: evidence,
		Kind:     models.KindOpportunity,
	})
	if err != nil {
		return nil, err
	}
	return result.ToOpportunity(), nil
}

// analyze walks the provider chain for one request. Only a
// ConfigurationError can surface; everything else resolves to a result.
func (o *Orchestrator) analyze(ctx context.Context, req *models.AnalysisRequest) (*models.Analysis, error) {
	if len(o.providers) == 0 {
		return nil, &ConfigurationError{Reason: "no provider configured"}
	}

	requestID := uuid.NewString()
	mode := o.ledger.Mode()
	chain := o.chainFor(mode)

	o.logger.Debug().
		Str("request_id", requestID).
		Str("subject", req.Subject).
		Str("kind", string(req.Kind)).
		Str("mode", string(mode)).
		Int("chain", len(chain)).
		Msg("Analysis started")

	for _, provider := range chain {
		if o.isSuspended(provider) {
			o.logger.Debug().
				Str("request_id", requestID).
				Str("provider", provider.Name()).
				Msg("Provider in cool-down, skipping")
			continue
		}

		result, err := o.invokeProvider(ctx, provider, req, requestID)
		if err == nil {
			o.logger.Info().
				Str("request_id", requestID).
				Str("subject", req.Subject).
				Str("provider", provider.Name()).
				Bool("partial", result.Provenance.Partial).
				Msg("Analysis complete")
			return result, nil
		}

		if IsAuth(err) || IsQuota(err) {
			o.suspend(provider)
		}

		o.logger.Warn().
			Str("request_id", requestID).
			Str("provider", provider.Name()).
			Err(err).
			Msg("Provider failed, falling back")
	}

	o.logger.Warn().
		Str("request_id", requestID).
		Str("subject", req.Subject).
		Msg("Provider chain exhausted, returning degraded result")

	return fallbackResult(req.Kind), nil
}

// invokeProvider runs one provider through the retry executor and the
// prompt-simplification ladder. Structural failures and parse failures walk
// down the ladder; auth, quota, and exhausted retryable errors abandon the
// provider. Usage is recorded exactly once per completed call, retried
// attempts included.
func (o *Orchestrator) invokeProvider(ctx context.Context, provider interfaces.Provider, req *models.AnalysisRequest, requestID string) (*models.Analysis, error) {
	var lastErr error

	for level := 0; level < o.escalationSteps; level++ {
		prompt := BuildPrompt(req, level)
		budget := OutputBudget(o.maxOutputTokens, level)

		gen, err := retry.Execute(ctx, o.retryPolicy, Classify, func(ctx context.Context) (*models.Generation, error) {
			gen, err := provider.Generate(ctx, prompt, budget)
			if err != nil {
				// A structural failure is still a completed call that
				// consumed tokens; price it before the executor decides
				// whether to retry.
				var structural *StructuralError
				if errors.As(err, &structural) {
					o.recordCall(provider, prompt, "", structural.InputTokens, structural.OutputTokens)
				}
				return nil, err
			}
			o.recordCall(provider, prompt, gen.Text, gen.InputTokens, gen.OutputTokens)
			return gen, nil
		})
		if err != nil {
			if IsStructural(err) {
				o.logger.Debug().
					Str("request_id", requestID).
					Str("provider", provider.Name()).
					Int("level", level).
					Msg("Structural failure, escalating prompt ladder")
				lastErr = err
				continue
			}
			return nil, err
		}

		result, perr := Parse(gen.Text, req.Kind)
		if perr != nil {
			if level+1 < o.escalationSteps {
				o.logger.Debug().
					Str("request_id", requestID).
					Str("provider", provider.Name()).
					Int("level", level).
					Msg("Parse failure, escalating prompt ladder")
				lastErr = perr
				continue
			}
			result = Salvage(gen.Text, req.Kind)
		}

		result.Provenance.Provider = provider.Name()
		result.Provenance.Model = provider.Model()
		if gen.Truncated {
			result.Provenance.Partial = true
		}
		return result, nil
	}

	return nil, lastErr
}

// recordCall records usage for one completed provider call, estimating token
// counts when the backend omitted them.
func (o *Orchestrator) recordCall(provider interfaces.Provider, prompt, output string, inputTokens, outputTokens int) {
	if inputTokens <= 0 {
		inputTokens = o.estimate(prompt)
	}
	if outputTokens <= 0 && output != "" {
		outputTokens = o.estimate(output)
	}

	if err := o.ledger.RecordUsage(provider.Name(), provider.Model(), inputTokens, outputTokens); err != nil {
		o.logger.Error().
			Str("provider", provider.Name()).
			Err(err).
			Msg("Failed to record usage")
	}
}

// chainFor returns the provider order for a budget mode: Paid mode uses the
// full chain, Free mode only the free-tier suffix.
func (o *Orchestrator) chainFor(mode models.BudgetMode) []interfaces.Provider {
	if mode == models.ModePaid {
		return o.providers
	}

	free := make([]interfaces.Provider, 0, len(o.providers))
	for _, p := range o.providers {
		if p.Tier() == models.ModeFree {
			free = append(free, p)
		}
	}
	return free
}

func (o *Orchestrator) isSuspended(provider interfaces.Provider) bool {
	if o.cooldown <= 0 {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	until, ok := o.suspendedUntil[provider.Name()]
	return ok && o.now().Before(until)
}

func (o *Orchestrator) suspend(provider interfaces.Provider) {
	if o.cooldown <= 0 {
		return
	}

	o.mu.Lock()
	o.suspendedUntil[provider.Name()] = o.now().Add(o.cooldown)
	o.mu.Unlock()

	o.logger.Info().
		Str("provider", provider.Name()).
		Dur("cooldown", o.cooldown).
		Msg("Provider suspended after auth/quota failure")
}

// fallbackResult is the fixed, deterministic result returned when every
// provider in the chain is exhausted.
func fallbackResult(kind models.AnalysisKind) *models.Analysis {
	return &models.Analysis{
		Kind:            kind,
		Flagged:         false,
		Level:           models.LevelUnknown,
		Summary:         "Analysis unavailable: no AI backend produced a result.",
		ConfidenceScore: 0,
		Recommendation:  "Re-run the analysis once a provider is reachable.",
		Provenance: models.Provenance{
			Provider: "none",
			Degraded: true,
		},
	}
}

// Ensure Orchestrator implements Analyzer
var _ interfaces.Analyzer = (*Orchestrator)(nil)
