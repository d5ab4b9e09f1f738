package scraper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maltedev/price-tracker/internal/browser"
)

// fakeSite describes what a URL serves to the fake driver.
type fakeSite struct {
	navErr    error
	delay     time.Duration
	elements  map[string]string // locator -> text
	probeErr  map[string]error
	clickErr  map[string]error
	panicText bool
}

type fakeDriver struct {
	sites         map[string]fakeSite
	sessionErrs   map[string]error
	sessionPanics map[string]bool

	mu             sync.Mutex
	sessionsOpened []string
	sessionsClosed int
	clicks         []string

	pagesOpen   atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeDriver(sites map[string]fakeSite) *fakeDriver {
	return &fakeDriver{sites: sites, sessionErrs: map[string]error{}}
}

func (d *fakeDriver) NewSession(ctx context.Context, name string) (browser.Session, error) {
	if d.sessionPanics[name] {
		panic("browser process died")
	}
	if err := d.sessionErrs[name]; err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.sessionsOpened = append(d.sessionsOpened, name)
	d.mu.Unlock()
	return &fakeSession{driver: d}, nil
}

func (d *fakeDriver) Close() error { return nil }

type fakeSession struct {
	driver *fakeDriver
}

func (s *fakeSession) NewPage(ctx context.Context) (browser.Page, error) {
	s.driver.pagesOpen.Add(1)
	return &fakePage{driver: s.driver}, nil
}

func (s *fakeSession) Close() error {
	s.driver.mu.Lock()
	s.driver.sessionsClosed++
	s.driver.mu.Unlock()
	return nil
}

type fakePage struct {
	driver *fakeDriver
	site   *fakeSite
	closed bool
}

func (p *fakePage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	site, ok := p.driver.sites[url]
	if !ok {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	}

	n := p.driver.inFlight.Add(1)
	defer p.driver.inFlight.Add(-1)
	for {
		cur := p.driver.maxInFlight.Load()
		if n <= cur || p.driver.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if site.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(site.delay):
		}
	}
	if site.navErr != nil {
		return site.navErr
	}
	p.site = &site
	return nil
}

func (p *fakePage) Exists(ctx context.Context, locator string, timeout time.Duration) (bool, error) {
	if err := p.site.probeErr[locator]; err != nil {
		return false, err
	}
	_, ok := p.site.elements[locator]
	return ok, nil
}

func (p *fakePage) Click(ctx context.Context, locator string, timeout time.Duration) error {
	if err := p.site.clickErr[locator]; err != nil {
		return err
	}
	p.driver.mu.Lock()
	p.driver.clicks = append(p.driver.clicks, locator)
	p.driver.mu.Unlock()
	return nil
}

func (p *fakePage) WaitForSettled(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (p *fakePage) Text(ctx context.Context, locator string, timeout time.Duration) (string, error) {
	if p.site.panicText {
		panic("renderer crashed")
	}
	text, ok := p.site.elements[locator]
	if !ok {
		return "", browser.ErrNoElement
	}
	return text, nil
}

func (p *fakePage) Close() error {
	if !p.closed {
		p.closed = true
		p.driver.pagesOpen.Add(-1)
	}
	return nil
}
