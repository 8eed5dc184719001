package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthKey identifies a calendar month bucket in the ledger file ("YYYY-MM")
type MonthKey string

// MonthKeyFor returns the MonthKey for a point in time
func MonthKeyFor(t time.Time) MonthKey {
	return MonthKey(t.Format("2006-01"))
}

// Time returns the first instant of the month, or the zero time for a
// malformed key.
func (k MonthKey) Time() time.Time {
	t, err := time.Parse("2006-01", string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

// UsageRecord accumulates calls and cost for one provider×model pair.
// All fields are monotonically non-decreasing within a month.
type UsageRecord struct {
	Calls        int64           `json:"calls"`
	Cost         decimal.Decimal `json:"cost"`
	InputTokens  int64           `json:"input_tokens"`
	OutputTokens int64           `json:"output_tokens"`
}

// MonthUsage is one month's bucket in the persisted ledger file.
// APIUsage is keyed provider → model → record.
type MonthUsage struct {
	TotalCost decimal.Decimal                    `json:"total_cost"`
	APIUsage  map[string]map[string]*UsageRecord `json:"api_usage"`
}

// NewMonthUsage creates an empty month bucket
func NewMonthUsage() *MonthUsage {
	return &MonthUsage{
		TotalCost: decimal.Zero,
		APIUsage:  make(map[string]map[string]*UsageRecord),
	}
}

// Record returns the usage record for a provider×model pair, creating it
// on first use.
func (m *MonthUsage) Record(provider, model string) *UsageRecord {
	byModel, ok := m.APIUsage[provider]
	if !ok {
		byModel = make(map[string]*UsageRecord)
		m.APIUsage[provider] = byModel
	}
	rec, ok := byModel[model]
	if !ok {
		rec = &UsageRecord{Cost: decimal.Zero}
		byModel[model] = rec
	}
	return rec
}

// LedgerFile is the on-disk ledger shape: MonthKey → month bucket.
// The file is indented JSON and must stay human-inspectable.
type LedgerFile map[MonthKey]*MonthUsage

// BudgetMode is the Free/Paid provider-selection decision
type BudgetMode string

const (
	ModeFree BudgetMode = "free"
	ModePaid BudgetMode = "paid"
)
