// Package report renders ledger spend summaries for operators
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/dkallio/sentinel/internal/models"
)

// WriteMonthlySummary writes a plain-text spend breakdown, newest month
// first.
func WriteMonthlySummary(w io.Writer, ledger models.LedgerFile) error {
	keys := sortedMonths(ledger)

	if len(keys) == 0 {
		_, err := fmt.Fprintln(w, "No usage recorded.")
		return err
	}

	for i := len(keys) - 1; i >= 0; i-- {
		key := keys[i]
		bucket := ledger[key]

		if _, err := fmt.Fprintf(w, "%s  total $%s\n", key, bucket.TotalCost.StringFixed(4)); err != nil {
			return err
		}

		providers := make([]string, 0, len(bucket.APIUsage))
		for provider := range bucket.APIUsage {
			providers = append(providers, provider)
		}
		sort.Strings(providers)

		for _, provider := range providers {
			byModel := bucket.APIUsage[provider]
			mdls := make([]string, 0, len(byModel))
			for model := range byModel {
				mdls = append(mdls, model)
			}
			sort.Strings(mdls)

			for _, model := range mdls {
				rec := byModel[model]
				if _, err := fmt.Fprintf(w, "  %-12s %-30s %5d calls  in:%-8d out:%-8d $%s\n",
					provider, model, rec.Calls, rec.InputTokens, rec.OutputTokens, rec.Cost.StringFixed(4)); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// RenderSpendChart renders a PNG bar chart of monthly totals
func RenderSpendChart(w io.Writer, ledger models.LedgerFile) error {
	keys := sortedMonths(ledger)
	if len(keys) == 0 {
		return fmt.Errorf("no usage recorded")
	}

	bars := make([]chart.Value, 0, len(keys))
	for _, key := range keys {
		bars = append(bars, chart.Value{
			Label: string(key),
			Value: ledger[key].TotalCost.InexactFloat64(),
		})
	}

	graph := chart.BarChart{
		Title:    "Monthly AI Spend (USD)",
		Height:   512,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: bars,
	}

	return graph.Render(chart.PNG, w)
}

// sortedMonths returns ledger keys in chronological order
func sortedMonths(ledger models.LedgerFile) []models.MonthKey {
	keys := make([]models.MonthKey, 0, len(ledger))
	for key := range ledger {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
