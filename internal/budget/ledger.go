// Package budget provides the persisted monthly AI spend ledger
package budget

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkallio/sentinel/internal/common"
	"github.com/dkallio/sentinel/internal/interfaces"
	"github.com/dkallio/sentinel/internal/models"
	"github.com/dkallio/sentinel/internal/pricing"
	"github.com/dkallio/sentinel/internal/storage"
)

// retentionMonths is how long old month buckets are kept before pruning
const retentionMonths = 12

// costScale is the decimal precision of accumulated costs (USD)
const costScale = 6

// Ledger is the single-writer monthly usage ledger. All reads and writes are
// serialized by the mutex; persistence is a synchronous atomic file write
// after each mutation. Cross-process writers are out of scope.
type Ledger struct {
	path           string
	monthlyLimit   decimal.Decimal
	emergencyLimit decimal.Decimal
	forcedFree     bool
	catalog        *pricing.Catalog
	logger         *common.Logger
	now            func() time.Time

	mu     sync.Mutex
	months models.LedgerFile
}

// LedgerOption configures the ledger
type LedgerOption func(*Ledger)

// WithClock overrides the time source
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger loads the ledger file and returns a ready ledger.
// A missing file is treated as empty state.
func NewLedger(cfg *common.LedgerConfig, catalog *pricing.Catalog, logger *common.Logger, opts ...LedgerOption) (*Ledger, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	l := &Ledger{
		path:           cfg.Path,
		monthlyLimit:   cfg.GetMonthlyLimit(),
		emergencyLimit: cfg.GetEmergencyLimit(),
		forcedFree:     cfg.ForcedFree,
		catalog:        catalog,
		logger:         logger,
		now:            time.Now,
		months:         make(models.LedgerFile),
	}

	for _, opt := range opts {
		opt(l)
	}

	if err := storage.ReadJSON(l.path, &l.months); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load ledger: %w", err)
		}
		l.months = make(models.LedgerFile)
	}
	if l.months == nil {
		l.months = make(models.LedgerFile)
	}

	logger.Debug().Str("path", l.path).Int("months", len(l.months)).Msg("Ledger loaded")
	return l, nil
}

// Mode returns Free when the forced-free flag is set or the current month's
// spend has reached either limit, otherwise Paid. Pure read, no I/O.
func (l *Ledger) Mode() models.BudgetMode {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.forcedFree {
		return models.ModeFree
	}

	total := decimal.Zero
	if bucket, ok := l.months[models.MonthKeyFor(l.now())]; ok {
		total = bucket.TotalCost
	}

	if total.GreaterThanOrEqual(l.monthlyLimit) || total.GreaterThanOrEqual(l.emergencyLimit) {
		return models.ModeFree
	}
	return models.ModePaid
}

// RecordUsage prices one completed provider call, accumulates it into the
// current month bucket, and persists the ledger synchronously. A crash
// between compute and persist loses at most this one update.
func (l *Ledger) RecordUsage(provider, model string, inputTokens, outputTokens int) error {
	rate := l.catalog.Lookup(provider, model)

	perK := decimal.NewFromInt(1000)
	inCost := decimal.NewFromInt(int64(inputTokens)).Div(perK).Mul(rate.InputPerKTokens)
	outCost := decimal.NewFromInt(int64(outputTokens)).Div(perK).Mul(rate.OutputPerKTokens)
	cost := inCost.Add(outCost).Round(costScale)

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.currentBucketLocked()
	rec := bucket.Record(provider, model)
	rec.Calls++
	rec.InputTokens += int64(inputTokens)
	rec.OutputTokens += int64(outputTokens)
	rec.Cost = rec.Cost.Add(cost)
	bucket.TotalCost = bucket.TotalCost.Add(cost)

	if err := storage.WriteJSONAtomic(l.path, l.months); err != nil {
		return fmt.Errorf("failed to persist ledger: %w", err)
	}

	l.logger.Debug().
		Str("provider", provider).
		Str("model", model).
		Int("input_tokens", inputTokens).
		Int("output_tokens", outputTokens).
		Str("cost", cost.String()).
		Str("month_total", bucket.TotalCost.String()).
		Msg("Usage recorded")

	return nil
}

// MonthTotal returns the accumulated cost for the current month
func (l *Ledger) MonthTotal() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	if bucket, ok := l.months[models.MonthKeyFor(l.now())]; ok {
		return bucket.TotalCost
	}
	return decimal.Zero
}

// Snapshot returns a deep copy of all month buckets
func (l *Ledger) Snapshot() models.LedgerFile {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(models.LedgerFile, len(l.months))
	for key, bucket := range l.months {
		copied := models.NewMonthUsage()
		copied.TotalCost = bucket.TotalCost
		for provider, byModel := range bucket.APIUsage {
			copiedByModel := make(map[string]*models.UsageRecord, len(byModel))
			for model, rec := range byModel {
				r := *rec
				copiedByModel[model] = &r
			}
			copied.APIUsage[provider] = copiedByModel
		}
		out[key] = copied
	}
	return out
}

// currentBucketLocked returns this month's bucket, creating it on the first
// access in a new calendar month and pruning buckets past retention.
// Caller must hold l.mu.
func (l *Ledger) currentBucketLocked() *models.MonthUsage {
	key := models.MonthKeyFor(l.now())

	bucket, ok := l.months[key]
	if ok {
		return bucket
	}

	bucket = models.NewMonthUsage()
	l.months[key] = bucket

	cutoff := l.now().AddDate(0, -retentionMonths, 0)
	for k := range l.months {
		if t := k.Time(); !t.IsZero() && t.Before(cutoff) {
			delete(l.months, k)
			l.logger.Debug().Str("month", string(k)).Msg("Pruned expired ledger bucket")
		}
	}

	return bucket
}

// Ensure Ledger implements BudgetLedger
var _ interfaces.BudgetLedger = (*Ledger)(nil)
