package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maltedev/price-tracker/internal/browser"
	"github.com/maltedev/price-tracker/internal/catalog"
	"github.com/maltedev/price-tracker/internal/config"
	"github.com/maltedev/price-tracker/internal/database"
	"github.com/maltedev/price-tracker/internal/metrics"
	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/report"
	"github.com/maltedev/price-tracker/internal/run"
	"github.com/maltedev/price-tracker/internal/scraper"
	"github.com/maltedev/price-tracker/internal/storage"
	"github.com/redis/go-redis/v9"
)

// app holds everything a run needs, plus what has to be closed afterwards.
type app struct {
	service *run.Service
	store   storage.DatasetStore
	metrics *metrics.Metrics
	ping    func(ctx context.Context) error
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	driver, err := newDriver(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := driver.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	})

	store, ping, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.store, a.ping = store, ping
	a.closers = append(a.closers, closeStore)

	sinks := report.Multi{report.NewLogSink(logger)}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { rdb.Close() })

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, failure reports go to the log only", "addr", cfg.Redis.Addr, "error", err)
		} else {
			sinks = append(sinks, report.NewRedisSink(rdb, cfg.Redis.Stream, cfg.Redis.StreamMax, logger))
		}
	}

	fetchOpts := scraper.FetcherOptions{
		NavigationTimeout:  cfg.Scraper.NavigationTimeout,
		ElementTimeout:     cfg.Scraper.ElementTimeout,
		ConsentProbe:       cfg.Scraper.ConsentProbe,
		SettleTimeout:      cfg.Scraper.SettleTimeout,
		NavigationAttempts: cfg.Scraper.NavigationAttempts,
	}
	if cfg.Scraper.DefaultConsent {
		fetchOpts.DefaultConsent = scraper.DefaultConsentLocators
	}

	scheduler := scraper.NewScheduler(driver, scraper.NewFetcher(fetchOpts, logger), scraper.SchedulerOptions{
		MaxInFlight:   cfg.Scraper.MaxInFlight,
		SessionMode:   scraper.SessionMode(cfg.Scraper.SessionMode),
		BrandDelayMin: cfg.Scraper.BrandDelayMin,
		BrandDelayMax: cfg.Scraper.BrandDelayMax,
	}, a.metrics, logger)

	a.service = run.NewService(
		catalog.NewFileSource(cfg.Catalog.Path, logger),
		store,
		run.NewCoordinator(scheduler, logger),
		sinks,
		a.metrics,
		logger,
	)
	return a, nil
}

func newDriver(cfg *config.Config, logger *slog.Logger) (browser.Driver, error) {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.ViewportWidth = cfg.Browser.ViewportWidth
	opts.ViewportHeight = cfg.Browser.ViewportHeight
	opts.AcceptLanguage = cfg.Browser.AcceptLanguage
	opts.TimezoneID = cfg.Browser.TimezoneID
	opts.Locale = cfg.Browser.Locale
	opts.ProxyServer = cfg.Browser.ProxyServer
	if cfg.Browser.UserAgent != "" {
		opts.UserAgent = cfg.Browser.UserAgent
	}

	if cfg.Scraper.Driver == "static" {
		return browser.NewStatic(&http.Client{Timeout: cfg.Browser.Timeout}, opts), nil
	}
	pw, err := browser.New(opts, logger)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.DatasetStore, func(context.Context) error, func(), error) {
	locale := models.Locale(cfg.Storage.PriceLocale)

	if cfg.Storage.Backend != "postgres" {
		return storage.NewCSVStore(cfg.Storage.DatasetPath, locale, logger), nil, func() {}, nil
	}

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: int32(cfg.Database.MaxConns),
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := database.NewPriceRepository(db, locale, logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return repo, db.Ping, db.Close, nil
}
