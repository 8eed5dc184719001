package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthKeyFor(t *testing.T) {
	ts := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, MonthKey("2026-03"), MonthKeyFor(ts))
}

func TestMonthKeyTime(t *testing.T) {
	key := MonthKey("2026-03")
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), key.Time())

	assert.True(t, MonthKey("not-a-month").Time().IsZero())
}

func TestMonthUsageRecord(t *testing.T) {
	m := NewMonthUsage()

	rec := m.Record("gemini", "gemini-2.0-flash")
	require.NotNil(t, rec)
	rec.Calls = 3

	// Same pair resolves to the same record
	again := m.Record("gemini", "gemini-2.0-flash")
	assert.Equal(t, int64(3), again.Calls)

	// Different model under the same provider is a fresh record
	other := m.Record("gemini", "gemini-1.5-flash")
	assert.Equal(t, int64(0), other.Calls)
}

func TestLedgerFileRoundTrip(t *testing.T) {
	m := NewMonthUsage()
	rec := m.Record("openai", "gpt-4o-mini")
	rec.Calls = 2
	rec.InputTokens = 1200
	rec.OutputTokens = 450
	rec.Cost = decimal.RequireFromString("0.00045")
	m.TotalCost = decimal.RequireFromString("0.00045")

	ledger := LedgerFile{"2026-08": m}

	data, err := json.Marshal(ledger)
	require.NoError(t, err)

	// The on-disk shape stays keyed by "YYYY-MM" with readable fields
	assert.Contains(t, string(data), `"2026-08"`)
	assert.Contains(t, string(data), `"total_cost"`)
	assert.Contains(t, string(data), `"api_usage"`)
	assert.Contains(t, string(data), `"input_tokens"`)

	var decoded LedgerFile
	require.NoError(t, json.Unmarshal(data, &decoded))

	bucket, ok := decoded["2026-08"]
	require.True(t, ok)
	assert.True(t, bucket.TotalCost.Equal(decimal.RequireFromString("0.00045")))
	got := bucket.APIUsage["openai"]["gpt-4o-mini"]
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.Calls)
	assert.Equal(t, int64(1200), got.InputTokens)
	assert.Equal(t, int64(450), got.OutputTokens)
}
