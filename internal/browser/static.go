package browser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Static fetches pages over plain HTTP and evaluates CSS locators with
// goquery. No JavaScript runs, so clicks are no-ops and XPath locators are
// rejected. Useful for server-rendered shops and for tests.
type Static struct {
	client *http.Client
	opts   *Options
}

func NewStatic(client *http.Client, opts *Options) *Static {
	if client == nil {
		client = http.DefaultClient
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Static{client: client, opts: opts}
}

func (s *Static) NewSession(ctx context.Context, name string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &staticSession{driver: s}, nil
}

func (s *Static) Close() error {
	return nil
}

type staticSession struct {
	driver *Static
}

func (s *staticSession) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &staticPage{driver: s.driver}, nil
}

func (s *staticSession) Close() error {
	return nil
}

type staticPage struct {
	driver *Static
	doc    *goquery.Document
}

func (p *staticPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.driver.opts.UserAgent)
	if p.driver.opts.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", p.driver.opts.AcceptLanguage)
	}
	for k, v := range p.driver.opts.ExtraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.driver.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", url, err)
	}
	p.doc = doc
	return nil
}

func (p *staticPage) find(locator string) (*goquery.Selection, error) {
	if p.doc == nil {
		return nil, ErrPageNotLoaded
	}

	sel := Selector(locator)
	if strings.HasPrefix(sel, "xpath=") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocator, locator)
	}
	return p.doc.Find(strings.TrimPrefix(sel, "css=")), nil
}

func (p *staticPage) Exists(ctx context.Context, locator string, timeout time.Duration) (bool, error) {
	found, err := p.find(locator)
	if err != nil {
		return false, err
	}
	return found.Length() > 0, nil
}

func (p *staticPage) Click(ctx context.Context, locator string, timeout time.Duration) error {
	_, err := p.find(locator)
	return err
}

func (p *staticPage) WaitForSettled(ctx context.Context, timeout time.Duration) error {
	return ctx.Err()
}

func (p *staticPage) Text(ctx context.Context, locator string, timeout time.Duration) (string, error) {
	found, err := p.find(locator)
	if err != nil {
		return "", err
	}
	if found.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoElement, locator)
	}
	return found.First().Text(), nil
}

func (p *staticPage) Close() error {
	p.doc = nil
	return nil
}
