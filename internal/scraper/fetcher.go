package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/price-tracker/internal/browser"
	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/parser"
)

type FetcherOptions struct {
	NavigationTimeout time.Duration
	ElementTimeout    time.Duration
	ConsentProbe      time.Duration
	SettleTimeout     time.Duration
	// NavigationAttempts is the number of tries per page load, at least 1.
	NavigationAttempts int
	// DefaultConsent is used for entries that carry no consent locators.
	DefaultConsent []string
}

func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		NavigationTimeout:  30 * time.Second,
		ElementTimeout:     10 * time.Second,
		SettleTimeout:      5 * time.Second,
		NavigationAttempts: 1,
	}
}

// Fetcher reads the price for one catalog entry.
type Fetcher struct {
	opts    FetcherOptions
	consent *ConsentHandler
	logger  *slog.Logger
}

func NewFetcher(opts FetcherOptions, logger *slog.Logger) *Fetcher {
	if opts.NavigationAttempts < 1 {
		opts.NavigationAttempts = 1
	}
	return &Fetcher{
		opts:    opts,
		consent: NewConsentHandler(opts.ConsentProbe, opts.SettleTimeout, logger),
		logger:  logger.With("component", "fetcher"),
	}
}

// Fetch opens its own page in session and always closes it, whatever the
// outcome. Errors are *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, session browser.Session, entry models.ProductEntry, date time.Time) (models.ScrapeRecord, error) {
	page, err := session.NewPage(ctx)
	if err != nil {
		return models.ScrapeRecord{}, fail(ErrSessionUnavailable, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			f.logger.Debug("failed to close page", "url", entry.WebsiteURL, "error", err)
		}
	}()

	if err := f.navigate(ctx, page, entry.WebsiteURL); err != nil {
		// the run was stopped, the page itself did not fail
		if ctx.Err() != nil {
			return models.ScrapeRecord{}, fail(ErrCancelled, err)
		}
		return models.ScrapeRecord{}, fail(ErrNavigation, err)
	}

	locators := entry.ConsentLocators
	if len(locators) == 0 {
		locators = f.opts.DefaultConsent
	}
	f.consent.Dismiss(ctx, page, locators)

	found, err := page.Exists(ctx, entry.PriceLocator, f.opts.ElementTimeout)
	if err != nil {
		return models.ScrapeRecord{}, fail(ErrElementNotFound, err)
	}
	if !found {
		return models.ScrapeRecord{}, fail(ErrElementNotFound, fmt.Errorf("locator %s", entry.PriceLocator))
	}

	text, err := page.Text(ctx, entry.PriceLocator, f.opts.ElementTimeout)
	if err != nil {
		return models.ScrapeRecord{}, fail(ErrElementNotFound, err)
	}

	price, err := parser.ParsePrice(text)
	if err != nil {
		return models.ScrapeRecord{}, fail(ErrPriceUnparseable, err)
	}

	return models.ScrapeRecord{
		Date:        models.Day(date),
		Brand:       entry.Brand,
		ProductName: entry.ProductName,
		Price:       price,
	}, nil
}

func (f *Fetcher) navigate(ctx context.Context, page browser.Page, url string) error {
	var lastErr error

	for i := 0; i < f.opts.NavigationAttempts; i++ {
		if i > 0 {
			f.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			timer := time.NewTimer(time.Duration(i) * time.Second)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := page.Goto(ctx, url, f.opts.NavigationTimeout)
		if err == nil {
			return nil
		}
		lastErr = err
		f.logger.Debug("navigation failed", "url", url, "attempt", i+1, "error", err)
	}

	if f.opts.NavigationAttempts > 1 {
		return fmt.Errorf("failed after %d attempts: %w", f.opts.NavigationAttempts, lastErr)
	}
	return lastErr
}
