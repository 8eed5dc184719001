package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkallio/sentinel/internal/models"
)

func sampleLedger() models.LedgerFile {
	july := models.NewMonthUsage()
	rec := july.Record("gemini", "gemini-2.0-flash")
	rec.Calls = 12
	rec.InputTokens = 24000
	rec.OutputTokens = 6000
	rec.Cost = decimal.RequireFromString("0.0048")
	july.TotalCost = decimal.RequireFromString("0.0048")

	august := models.NewMonthUsage()
	rec = august.Record("openai", "gpt-4o-mini")
	rec.Calls = 4
	rec.InputTokens = 8000
	rec.OutputTokens = 2000
	rec.Cost = decimal.RequireFromString("0.0024")
	august.TotalCost = decimal.RequireFromString("0.0024")

	return models.LedgerFile{
		"2026-07": july,
		"2026-08": august,
	}
}

func TestWriteMonthlySummaryNewestFirst(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMonthlySummary(&buf, sampleLedger()))

	out := buf.String()
	assert.Contains(t, out, "2026-08  total $0.0024")
	assert.Contains(t, out, "2026-07  total $0.0048")
	assert.Contains(t, out, "gemini")
	assert.Contains(t, out, "gpt-4o-mini")
	assert.Contains(t, out, "12 calls")

	assert.Less(t, strings.Index(out, "2026-08"), strings.Index(out, "2026-07"),
		"newest month must print first")
}

func TestWriteMonthlySummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMonthlySummary(&buf, models.LedgerFile{}))
	assert.Contains(t, buf.String(), "No usage recorded")
}

func TestRenderSpendChartProducesPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderSpendChart(&buf, sampleLedger()))

	// PNG magic bytes
	require.Greater(t, buf.Len(), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, buf.Bytes()[:4])
}

func TestRenderSpendChartEmptyLedgerErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, RenderSpendChart(&buf, models.LedgerFile{}))
	assert.Zero(t, buf.Len())
}
