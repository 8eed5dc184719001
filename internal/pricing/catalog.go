// Package pricing provides the static token cost table for AI backends
package pricing

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dkallio/sentinel/internal/common"
)

// Rate holds USD token rates for one provider×model pair
type Rate struct {
	InputPerKTokens  decimal.Decimal
	OutputPerKTokens decimal.Decimal
}

// IsZero reports whether both rates are zero
func (r Rate) IsZero() bool {
	return r.InputPerKTokens.IsZero() && r.OutputPerKTokens.IsZero()
}

// defaultRates is the static (provider, model) → rate table, USD per 1K tokens.
var defaultRates = map[string]Rate{
	"gemini/gemini-2.0-flash": {
		InputPerKTokens:  decimal.RequireFromString("0.0001"),
		OutputPerKTokens: decimal.RequireFromString("0.0004"),
	},
	"gemini/gemini-1.5-flash": {
		InputPerKTokens:  decimal.RequireFromString("0.000075"),
		OutputPerKTokens: decimal.RequireFromString("0.0003"),
	},
	"openai/gpt-4o-mini": {
		InputPerKTokens:  decimal.RequireFromString("0.00015"),
		OutputPerKTokens: decimal.RequireFromString("0.0006"),
	},
	"openai/gpt-4o": {
		InputPerKTokens:  decimal.RequireFromString("0.0025"),
		OutputPerKTokens: decimal.RequireFromString("0.01"),
	},
	"anthropic/claude-3-5-haiku-latest": {
		InputPerKTokens:  decimal.RequireFromString("0.0008"),
		OutputPerKTokens: decimal.RequireFromString("0.004"),
	},
	"anthropic/claude-sonnet-4-20250514": {
		InputPerKTokens:  decimal.RequireFromString("0.003"),
		OutputPerKTokens: decimal.RequireFromString("0.015"),
	},
	// The offline scorer is free by definition
	"offline/keyword-v1": {},
}

// Catalog resolves token rates for provider calls. Unknown keys resolve to
// zero cost with a one-time warning, never an error.
type Catalog struct {
	rates  map[string]Rate
	logger *common.Logger

	mu     sync.Mutex
	warned map[string]bool
}

// CatalogOption configures the catalog
type CatalogOption func(*Catalog)

// WithRate overrides or adds a rate for a provider×model pair
func WithRate(provider, model string, rate Rate) CatalogOption {
	return func(c *Catalog) {
		c.rates[key(provider, model)] = rate
	}
}

// NewCatalog creates a catalog seeded with the static rate table
func NewCatalog(logger *common.Logger, opts ...CatalogOption) *Catalog {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	c := &Catalog{
		rates:  make(map[string]Rate, len(defaultRates)),
		logger: logger,
		warned: make(map[string]bool),
	}
	for k, v := range defaultRates {
		c.rates[k] = v
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Lookup returns the rate for a provider×model pair. Missing entries return
// the zero rate and log a warning once per pair.
func (c *Catalog) Lookup(provider, model string) Rate {
	k := key(provider, model)

	rate, ok := c.rates[k]
	if ok {
		return rate
	}

	c.mu.Lock()
	if !c.warned[k] {
		c.warned[k] = true
		c.logger.Warn().Str("provider", provider).Str("model", model).
			Msg("No pricing entry, assuming zero cost")
	}
	c.mu.Unlock()

	return Rate{}
}

func key(provider, model string) string {
	return fmt.Sprintf("%s/%s", provider, model)
}
