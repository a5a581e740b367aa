// Package app wires configuration, storage, clients and services together.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/bagboard/internal/cache"
	"github.com/bobmcallan/bagboard/internal/clients/bitquery"
	"github.com/bobmcallan/bagboard/internal/clients/coingecko"
	"github.com/bobmcallan/bagboard/internal/clients/dexscreener"
	"github.com/bobmcallan/bagboard/internal/clients/jupiter"
	"github.com/bobmcallan/bagboard/internal/clients/metaplex"
	"github.com/bobmcallan/bagboard/internal/clients/privy"
	"github.com/bobmcallan/bagboard/internal/clients/pumpfun"
	"github.com/bobmcallan/bagboard/internal/clients/scraper"
	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/services/auth"
	"github.com/bobmcallan/bagboard/internal/services/imageproxy"
	"github.com/bobmcallan/bagboard/internal/services/leaderboard"
	"github.com/bobmcallan/bagboard/internal/services/metadata"
	"github.com/bobmcallan/bagboard/internal/services/portfolio"
	"github.com/bobmcallan/bagboard/internal/services/sharecard"
	"github.com/bobmcallan/bagboard/internal/storage"
)

// App holds all initialized services and clients.
// It is the shared core used by every cmd/bagboard subcommand.
type App struct {
	Config  *common.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager
	Cache   interfaces.MetadataCache

	// Sources in metadata priority order
	Sources  []interfaces.MetadataSource
	FourMeme interfaces.FourMemeClient
	Privy    interfaces.PrivyClient

	AuthService        interfaces.AuthService
	MetadataService    interfaces.MetadataService
	PortfolioService   interfaces.PortfolioService
	LeaderboardService interfaces.LeaderboardService
	ImageProxy         interfaces.ImageProxy
	ShareCard          interfaces.ShareCardRenderer
	StartupTime        time.Time

	auth            *auth.Service
	closeCache      func() error
	schedulerCancel context.CancelFunc
	warmCacheCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the given path, BAGBOARD_CONFIG,
// bagboard.toml beside the binary, then config/bagboard.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("BAGBOARD_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "bagboard.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/bagboard.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes everything.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewAppWithConfig(ctx, config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppWithConfig initializes storage, clients and services from a loaded config.
func NewAppWithConfig(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	storageManager, err := storage.NewStorageManager(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	metaCache, closeCache := cache.New(ctx, &config.Cache, logger)

	pump := newPumpClient(config, logger)
	sources := newSources(config, pump, logger)

	var fourMeme interfaces.FourMemeClient
	if bq := config.Clients.Bitquery; bq.Enabled && bq.APIKey != "" {
		fourMeme = bitquery.NewClient(bq.APIKey,
			bitquery.WithBaseURL(bq.BaseURL),
			bitquery.WithLogger(logger),
			bitquery.WithRateLimit(bq.RateLimit),
			bitquery.WithTimeout(bq.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("Bitquery API key not configured - four.meme market data will be unavailable")
	}

	var privyClient interfaces.PrivyClient
	if config.Privy.AppID != "" {
		privyClient = privy.NewClient(config.Privy.AppID, config.Privy.AppSecret,
			privy.WithBaseURL(config.Privy.BaseURL),
			privy.WithLogger(logger),
			privy.WithTimeout(config.Privy.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("Privy app id not configured - wallet login will be unavailable")
	}

	// Initialize services
	authService := auth.NewService(storageManager, privyClient, config, logger)
	metadataService := metadata.NewService(sources, metaCache, config.Metadata.Concurrency, logger)
	portfolioService := portfolio.NewService(storageManager, metadataService, &config.Portfolio, logger)
	leaderboardService := leaderboard.NewService(storageManager.UserStore(), metadataService, logger)

	var pumpImages imageproxy.PumpImageSource
	if pump != nil {
		pumpImages = pump
	}
	imageProxy := imageproxy.NewService(&config.ImageProxy, pumpImages, logger)

	a := &App{
		Config:             config,
		Logger:             logger,
		Storage:            storageManager,
		Cache:              metaCache,
		Sources:            sources,
		FourMeme:           fourMeme,
		Privy:              privyClient,
		AuthService:        authService,
		MetadataService:    metadataService,
		PortfolioService:   portfolioService,
		LeaderboardService: leaderboardService,
		ImageProxy:         imageProxy,
		ShareCard:          sharecard.NewRenderer(),
		StartupTime:        startupStart,
		auth:               authService,
		closeCache:         closeCache,
	}

	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	logger.Info().
		Strs("sources", names).
		Str("storage", config.Storage.Backend).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

func newPumpClient(config *common.Config, logger *common.Logger) *pumpfun.Client {
	cfg := config.Clients.PumpFun
	if !cfg.Enabled {
		return nil
	}
	return pumpfun.NewClient(
		pumpfun.WithBaseURL(cfg.BaseURL),
		pumpfun.WithLogger(logger),
		pumpfun.WithRateLimit(cfg.RateLimit),
		pumpfun.WithTimeout(cfg.GetTimeout()),
	)
}

// newSources builds the enabled metadata sources in priority order:
// dexscreener, coingecko, jupiter, metaplex, pumpfun, scraper.
func newSources(config *common.Config, pump *pumpfun.Client, logger *common.Logger) []interfaces.MetadataSource {
	c := config.Clients
	var sources []interfaces.MetadataSource

	if c.DexScreener.Enabled {
		sources = append(sources, dexscreener.NewClient(
			dexscreener.WithBaseURL(c.DexScreener.BaseURL),
			dexscreener.WithLogger(logger),
			dexscreener.WithRateLimit(c.DexScreener.RateLimit),
			dexscreener.WithTimeout(c.DexScreener.GetTimeout()),
		))
	}
	if c.CoinGecko.Enabled {
		sources = append(sources, coingecko.NewClient(c.CoinGecko.APIKey,
			coingecko.WithBaseURL(c.CoinGecko.BaseURL),
			coingecko.WithLogger(logger),
			coingecko.WithRateLimit(c.CoinGecko.RateLimit),
			coingecko.WithTimeout(c.CoinGecko.GetTimeout()),
		))
	}
	if c.Jupiter.Enabled {
		sources = append(sources, jupiter.NewClient(
			jupiter.WithBaseURL(c.Jupiter.BaseURL),
			jupiter.WithLogger(logger),
			jupiter.WithTimeout(c.Jupiter.GetTimeout()),
		))
	}
	if c.Metaplex.Enabled && c.Metaplex.BaseURL != "" {
		sources = append(sources, metaplex.NewClient(
			metaplex.WithBaseURL(c.Metaplex.BaseURL),
			metaplex.WithLogger(logger),
			metaplex.WithRateLimit(c.Metaplex.RateLimit),
			metaplex.WithTimeout(c.Metaplex.GetTimeout()),
		))
	}
	if pump != nil {
		sources = append(sources, pump)
	}
	if c.Scraper.Enabled {
		sources = append(sources, scraper.NewClient(
			scraper.WithBaseURL(c.Scraper.BaseURL),
			scraper.WithLogger(logger),
			scraper.WithRateLimit(c.Scraper.RateLimit),
			scraper.WithTimeout(c.Scraper.GetTimeout()),
		))
	}
	return sources
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, cancel warm cache, close cache, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.warmCacheCancel != nil {
		a.warmCacheCancel()
		a.warmCacheCancel = nil
	}
	if a.closeCache != nil {
		if err := a.closeCache(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close metadata cache")
		}
		a.closeCache = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}

// StartWarmCache launches the background cache warming goroutine.
func (a *App) StartWarmCache() {
	if a.Storage == nil {
		return
	}
	users := a.Storage.UserStore()
	metaService, logger := a.MetadataService, a.Logger

	warmCtx, warmCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	a.warmCacheCancel = warmCancel
	go func() {
		defer warmCancel()
		warmCache(warmCtx, users, metaService, logger)
	}()
}

// StartSessionScheduler launches the background expired-session purge.
func (a *App) StartSessionScheduler(interval time.Duration) {
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	go startSessionScheduler(schedulerCtx, a.auth, a.Logger, interval)
}
