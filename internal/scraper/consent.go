package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/price-tracker/internal/browser"
)

// DefaultConsentLocators covers the cookie banners seen most often on
// German shop pages.
var DefaultConsentLocators = []string{
	`//*[@id="onetrust-reject-all-handler"]`,
	`//*[@id="iubenda-cs-banner"]/div/div/div/div[3]/div[2]/button[1]`,
	`//*[@id="pwa-consent-layer-form"]/div[2]/button[1]/span`,
	`//*[@id="usercentrics-root"]//button[@data-testid="uc-deny-all-button"]`,
}

// ConsentHandler dismisses at most one consent dialog per page visit.
type ConsentHandler struct {
	// Probe is how long to wait for each locator to appear; zero checks
	// the current DOM only.
	Probe time.Duration
	// Settle bounds the click and the wait for the page to go quiet after it.
	Settle time.Duration
	logger *slog.Logger
}

func NewConsentHandler(probe, settle time.Duration, logger *slog.Logger) *ConsentHandler {
	return &ConsentHandler{
		Probe:  probe,
		Settle: settle,
		logger: logger.With("component", "consent"),
	}
}

// Dismiss clicks the first locator that resolves to a clickable element and
// reports whether it did. A missing dialog is the normal case, so probe and
// click errors are logged and skipped, never returned.
func (h *ConsentHandler) Dismiss(ctx context.Context, page browser.Page, locators []string) bool {
	for _, locator := range locators {
		if strings.TrimSpace(locator) == "" {
			continue
		}
		if ctx.Err() != nil {
			return false
		}

		found, err := page.Exists(ctx, locator, h.Probe)
		if err != nil {
			h.logger.Debug("consent probe failed", "locator", locator, "error", err)
			continue
		}
		if !found {
			continue
		}

		if err := page.Click(ctx, locator, h.Settle); err != nil {
			h.logger.Debug("consent element not clickable", "locator", locator, "error", err)
			continue
		}

		if err := page.WaitForSettled(ctx, h.Settle); err != nil {
			h.logger.Debug("page did not settle after consent click", "locator", locator, "error", err)
		}
		h.logger.Debug("consent dismissed", "locator", locator)
		return true
	}
	return false
}
