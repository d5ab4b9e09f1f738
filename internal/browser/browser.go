// Package browser provides the page drivers used to visit product pages.
// A Driver hands out Sessions (one cookie jar each); every fetch opens its
// own Page inside a session, so a session may serve many fetches at once.
package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrPageNotLoaded      = errors.New("page not loaded")
	ErrUnsupportedLocator = errors.New("locator not supported by driver")
	ErrNoElement          = errors.New("no element matches locator")
)

type Driver interface {
	NewSession(ctx context.Context, name string) (Session, error)
	Close() error
}

type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab. A zero timeout on Exists means "check now, don't wait".
type Page interface {
	Goto(ctx context.Context, url string, timeout time.Duration) error
	Exists(ctx context.Context, locator string, timeout time.Duration) (bool, error)
	Click(ctx context.Context, locator string, timeout time.Duration) error
	WaitForSettled(ctx context.Context, timeout time.Duration) error
	Text(ctx context.Context, locator string, timeout time.Duration) (string, error)
	Close() error
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "de-DE,de;q=0.9,en;q=0.8",
		TimezoneID:     "Europe/Berlin",
		Locale:         "de-DE",
		ExtraHeaders: map[string]string{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"DNT":    "1",
		},
	}
}

// Selector normalizes a catalog locator into an engine-prefixed selector.
// Bare paths starting with "/" or "(" are XPath, everything else is CSS.
func Selector(locator string) string {
	locator = strings.TrimSpace(locator)
	switch {
	case strings.HasPrefix(locator, "xpath="), strings.HasPrefix(locator, "css="):
		return locator
	case strings.HasPrefix(locator, "/"), strings.HasPrefix(locator, "("):
		return "xpath=" + locator
	default:
		return "css=" + locator
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
