package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/clock/system"
	"github.com/JakeFAU/contact-crawler/internal/config"
	"github.com/JakeFAU/contact-crawler/internal/contact"
	"github.com/JakeFAU/contact-crawler/internal/crawler"
	"github.com/JakeFAU/contact-crawler/internal/discover"
	"github.com/JakeFAU/contact-crawler/internal/dispatcher"
	"github.com/JakeFAU/contact-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/contact-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/contact-crawler/internal/fetcher/ninjas"
	"github.com/JakeFAU/contact-crawler/internal/policy/ratelimit"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App holds the long-lived services shared by every subcommand.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Scraper    dispatcher.DomainScraper
	Scheduler  *dispatcher.Scheduler
	Discoverer *discover.Service
}

// newApp builds the services from cfg.
var newApp = func(cfg config.Config, logger *zap.Logger) (*App, error) {
	fetcher, err := buildFetcher(cfg)
	if err != nil {
		return nil, err
	}
	fetcher = ratelimit.Wrap(fetcher, ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.Fetch.RatePerSecond,
		DefaultBurst: cfg.Fetch.Burst,
	}))

	rules := contact.DefaultRules()
	rules.PhoneRegion = cfg.Phone.Region

	extractor := extract.New(rules,
		extract.WithCardMaxChars(cfg.Crawl.CardMaxChars),
		extract.WithLogger(logger),
	)
	discoverer := discover.New(fetcher,
		discover.WithLimits(cfg.Crawl.MinDiscovered, cfg.Crawl.MaxDiscovered),
		discover.WithLogger(logger),
	)
	orchestrator := crawler.NewOrchestrator(fetcher, extractor, discoverer, crawler.Config{
		MaxPages:          cfg.Crawl.MaxPages,
		EarlyStopContacts: cfg.Crawl.EarlyStopContacts,
		EarlyStopPeople:   cfg.Crawl.EarlyStopPeople,
		MinDiscovered:     cfg.Crawl.MinDiscovered,
	}, logger)
	scheduler := dispatcher.New(orchestrator, system.New(), dispatcher.Config{
		WindowSize:  cfg.Batch.WindowSize,
		WindowDelay: cfg.Batch.WindowDelay,
	}, logger)

	logger.Info("Application services initialized",
		zap.String("provider", cfg.Fetch.Provider),
		zap.Int("window_size", cfg.Batch.WindowSize),
	)
	return &App{
		Config:     cfg,
		Logger:     logger,
		Scraper:    orchestrator,
		Scheduler:  scheduler,
		Discoverer: discoverer,
	}, nil
}

func buildFetcher(cfg config.Config) (crawler.Fetcher, error) {
	switch cfg.Fetch.Provider {
	case config.ProviderNinjas:
		f, err := ninjas.New(ninjas.Config{
			APIKey:    cfg.Fetch.APIKey,
			Endpoint:  cfg.Fetch.Endpoint,
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("init ninjas fetcher: %w", err)
		}
		return f, nil
	case config.ProviderColly:
		return collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.Fetch.UserAgent,
			RespectRobots: cfg.Fetch.RespectRobots,
			Timeout:       cfg.FetchTimeout(),
			MaxBodyBytes:  cfg.Fetch.MaxPageBytes,
		}), nil
	default:
		return nil, fmt.Errorf("unknown fetch provider: %s", cfg.Fetch.Provider)
	}
}

func resolveApp(ctx context.Context) (*App, error) {
	appInstance, ok := ctx.Value(appKey).(*App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

func withApp(ctx context.Context, appInstance *App) context.Context {
	return context.WithValue(ctx, appKey, appInstance)
}
