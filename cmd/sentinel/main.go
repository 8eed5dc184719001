package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkallio/sentinel/internal/app"
	"github.com/dkallio/sentinel/internal/common"
	"github.com/dkallio/sentinel/internal/report"
)

func main() {
	cmd := "watch"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "watch":
		runWatch()
	case "report":
		chartPath := ""
		if len(os.Args) > 2 {
			chartPath = os.Args[2]
		}
		runReport(chartPath)
	case "version":
		fmt.Println(common.GetFullVersion())
	default:
		fmt.Fprintf(os.Stderr, "Usage: sentinel [watch|report [chart.png]|version]\n")
		os.Exit(2)
	}
}

// runWatch sweeps the configured watchlist once and prints the results as
// JSON to stdout.
func runWatch() {
	a, err := app.NewApp("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	common.PrintBanner(a.Config, a.Logger)

	if len(a.Config.Watchlist) == 0 {
		a.Logger.Warn().Msg("Watchlist is empty - nothing to analyze")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := a.WatchService.Sweep(ctx, a.Config.Watchlist)

	for _, r := range results {
		if r.Err != nil {
			a.Logger.Error().Str("subject", r.Subject).Err(r.Err).Msg("Sweep failed for instrument")
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to write results")
		os.Exit(1)
	}

	a.Logger.Info().
		Int("instruments", len(results)).
		Str("month_spend", a.Ledger.MonthTotal().StringFixed(4)).
		Msg("Sweep complete")

	common.PrintShutdownBanner(a.Logger)
}

// runReport prints the monthly spend summary and optionally renders a chart.
func runReport(chartPath string) {
	a, err := app.NewApp("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	snapshot := a.Ledger.Snapshot()

	if err := report.WriteMonthlySummary(os.Stdout, snapshot); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to write summary")
		os.Exit(1)
	}

	if chartPath == "" {
		return
	}

	f, err := os.Create(chartPath)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Failed to create chart file")
		os.Exit(1)
	}
	defer f.Close()

	if err := report.RenderSpendChart(f, snapshot); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to render chart")
		os.Exit(1)
	}

	a.Logger.Info().Str("path", chartPath).Msg("Spend chart written")
}
