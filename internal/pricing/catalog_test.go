package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dkallio/sentinel/internal/common"
)

func TestCatalogLookupKnown(t *testing.T) {
	c := NewCatalog(common.NewSilentLogger())

	rate := c.Lookup("gemini", "gemini-2.0-flash")
	assert.False(t, rate.IsZero())
	assert.True(t, rate.InputPerKTokens.Equal(decimal.RequireFromString("0.0001")))
	assert.True(t, rate.OutputPerKTokens.Equal(decimal.RequireFromString("0.0004")))
}

func TestCatalogLookupUnknownIsZeroNotError(t *testing.T) {
	c := NewCatalog(common.NewSilentLogger())

	rate := c.Lookup("nobody", "mystery-model")
	assert.True(t, rate.IsZero())

	// Second lookup still resolves to zero (warning fires at most once)
	rate = c.Lookup("nobody", "mystery-model")
	assert.True(t, rate.IsZero())
}

func TestCatalogOfflineIsFree(t *testing.T) {
	c := NewCatalog(common.NewSilentLogger())
	assert.True(t, c.Lookup("offline", "keyword-v1").IsZero())
}

func TestCatalogWithRateOverride(t *testing.T) {
	custom := Rate{
		InputPerKTokens:  decimal.RequireFromString("0.5"),
		OutputPerKTokens: decimal.RequireFromString("1.5"),
	}
	c := NewCatalog(common.NewSilentLogger(), WithRate("testco", "test-model", custom))

	rate := c.Lookup("testco", "test-model")
	assert.True(t, rate.InputPerKTokens.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, rate.OutputPerKTokens.Equal(decimal.RequireFromString("1.5")))
}
