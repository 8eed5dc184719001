package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dkallio/sentinel/internal/analysis"
	"github.com/dkallio/sentinel/internal/budget"
	"github.com/dkallio/sentinel/internal/clients/anthropic"
	"github.com/dkallio/sentinel/internal/clients/gemini"
	"github.com/dkallio/sentinel/internal/clients/offline"
	"github.com/dkallio/sentinel/internal/clients/openai"
	"github.com/dkallio/sentinel/internal/common"
	"github.com/dkallio/sentinel/internal/interfaces"
	"github.com/dkallio/sentinel/internal/pricing"
	"github.com/dkallio/sentinel/internal/retry"
	"github.com/dkallio/sentinel/internal/services/watch"
	"github.com/dkallio/sentinel/internal/storage/newsfs"
)

// App holds all initialized services and clients. It is the composition
// root: every dependency is wired here and injected explicitly, no
// singletons.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Catalog      *pricing.Catalog
	Ledger       *budget.Ledger
	News         interfaces.NewsSource
	Analyzer     interfaces.Analyzer
	WatchService *watch.Service
	StartupTime  time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, the ledger, provider adapters, and the
// orchestrator. configPath may be empty, in which case the default
// resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, SENTINEL_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("SENTINEL_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "sentinel.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/sentinel.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative data paths to the binary directory
	if config.Ledger.Path != "" && !filepath.IsAbs(config.Ledger.Path) {
		config.Ledger.Path = filepath.Join(binDir, config.Ledger.Path)
	}
	if config.News.Path != "" && !filepath.IsAbs(config.News.Path) {
		config.News.Path = filepath.Join(binDir, config.News.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	catalog := pricing.NewCatalog(logger)

	ledger, err := budget.NewLedger(&config.Ledger, catalog, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	providers, err := buildProviders(config, logger)
	if err != nil {
		return nil, err
	}

	orchestrator := analysis.NewOrchestrator(providers, ledger, logger,
		analysis.WithRetryPolicy(retry.Policy{
			MaxAttempts:       config.Retry.MaxAttempts,
			BaseDelay:         config.Retry.GetBaseDelay(),
			BackoffMultiplier: config.Retry.BackoffMultiplier,
		}),
		analysis.WithMaxOutputTokens(config.Analysis.MaxOutputTokens),
		analysis.WithEscalationSteps(config.Analysis.EscalationSteps),
		analysis.WithCooldown(config.Analysis.GetCooldown()),
	)

	newsStore, err := newsfs.NewStore(config.News.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize news store: %w", err)
	}

	watchService := watch.NewService(orchestrator, newsStore, logger,
		watch.WithRateLimit(config.Analysis.RateLimit),
		watch.WithRequestTimeout(config.Analysis.GetRequestTimeout()),
		watch.WithNewsLimit(config.News.Limit),
	)

	a := &App{
		Config:       config,
		Logger:       logger,
		Catalog:      catalog,
		Ledger:       ledger,
		News:         newsStore,
		Analyzer:     orchestrator,
		WatchService: watchService,
		StartupTime:  startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// buildProviders assembles the provider chain in configured order: paid
// backends with credentials first, the offline scorer last. At least one
// provider must resolve.
func buildProviders(config *common.Config, logger *common.Logger) ([]interfaces.Provider, error) {
	ctx := context.Background()
	providers := make([]interfaces.Provider, 0, 4)

	for _, name := range config.Providers.Order {
		switch name {
		case gemini.ProviderName:
			if config.Providers.Gemini.APIKey == "" {
				logger.Warn().Msg("Gemini API key not configured - provider skipped")
				continue
			}
			client, err := gemini.NewClient(ctx, config.Providers.Gemini.APIKey,
				gemini.WithModel(config.Providers.Gemini.Model),
				gemini.WithLogger(logger),
			)
			if err != nil {
				logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
				continue
			}
			providers = append(providers, client)

		case openai.ProviderName:
			if config.Providers.OpenAI.APIKey == "" {
				logger.Warn().Msg("OpenAI API key not configured - provider skipped")
				continue
			}
			providers = append(providers, openai.NewClient(config.Providers.OpenAI.APIKey,
				openai.WithModel(config.Providers.OpenAI.Model),
				openai.WithLogger(logger),
			))

		case anthropic.ProviderName:
			if config.Providers.Anthropic.APIKey == "" {
				logger.Warn().Msg("Anthropic API key not configured - provider skipped")
				continue
			}
			providers = append(providers, anthropic.NewClient(config.Providers.Anthropic.APIKey,
				anthropic.WithModel(config.Providers.Anthropic.Model),
				anthropic.WithLogger(logger),
			))

		default:
			logger.Warn().Str("provider", name).Msg("Unknown provider in order, skipping")
		}
	}

	if config.Providers.Offline.Enabled {
		providers = append(providers, offline.NewClient(offline.WithLogger(logger)))
	}

	if len(providers) == 0 {
		return nil, &analysis.ConfigurationError{Reason: "no provider configured"}
	}

	return providers, nil
}
