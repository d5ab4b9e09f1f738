package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maltedev/price-tracker/internal/browser"
	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/ratelimit"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// SessionMode decides how many browser sessions a run opens.
type SessionMode string

const (
	// SessionPerBrand keeps cookies of different shops apart.
	SessionPerBrand SessionMode = "brand"
	// SessionShared runs every fetch in one session.
	SessionShared SessionMode = "shared"
)

// Observer receives one call per finished fetch. reason is empty on success.
type Observer interface {
	ObserveFetch(brand string, reason models.FailureReason, elapsed time.Duration)
}

type SchedulerOptions struct {
	// MaxInFlight bounds concurrent fetches across all brands; 0 is unbounded.
	MaxInFlight int
	SessionMode SessionMode
	// BrandDelayMin/Max space navigations within one brand group.
	BrandDelayMin time.Duration
	BrandDelayMax time.Duration
}

// Scheduler fans one fetch task out per catalog entry.
type Scheduler struct {
	driver   browser.Driver
	fetcher  *Fetcher
	opts     SchedulerOptions
	observer Observer
	logger   *slog.Logger
}

func NewScheduler(driver browser.Driver, fetcher *Fetcher, opts SchedulerOptions, observer Observer, logger *slog.Logger) *Scheduler {
	if opts.SessionMode == "" {
		opts.SessionMode = SessionPerBrand
	}
	return &Scheduler{
		driver:   driver,
		fetcher:  fetcher,
		opts:     opts,
		observer: observer,
		logger:   logger.With("component", "scheduler"),
	}
}

// Group is the set of catalog positions sharing one brand.
type Group struct {
	Brand   string
	Indexes []int
}

// GroupByBrand groups entries by brand, in order of first appearance.
func GroupByBrand(entries []models.ProductEntry) []Group {
	pos := make(map[string]int)

	var groups []Group
	for i, e := range entries {
		g, ok := pos[e.Brand]
		if !ok {
			g = len(groups)
			pos[e.Brand] = g
			groups = append(groups, Group{Brand: e.Brand})
		}
		groups[g].Indexes = append(groups[g].Indexes, i)
	}
	return groups
}

type outcome struct {
	record  *models.ScrapeRecord
	failure *models.FailureRecord
}

// RunAll fetches every entry and returns one success or one failure per
// entry. Each task writes only its own slot, so results come back in
// catalog order no matter how the tasks interleave.
func (s *Scheduler) RunAll(ctx context.Context, entries []models.ProductEntry, date time.Time) ([]models.ScrapeRecord, []models.FailureRecord) {
	outcomes := make([]outcome, len(entries))

	var sem *semaphore.Weighted
	if s.opts.MaxInFlight > 0 {
		sem = semaphore.NewWeighted(int64(s.opts.MaxInFlight))
	}

	sessions := &sessionSource{driver: s.driver, mode: s.opts.SessionMode, logger: s.logger}
	defer sessions.close()

	groups := GroupByBrand(entries)
	s.logger.Info("starting fetch", "entries", len(entries), "groups", len(groups),
		"max_in_flight", s.opts.MaxInFlight, "session_mode", s.opts.SessionMode)

	var g errgroup.Group
	for _, group := range groups {
		g.Go(func() error {
			s.runGroup(ctx, sessions, group, entries, date, sem, outcomes)
			return nil
		})
	}
	_ = g.Wait()

	var (
		records  []models.ScrapeRecord
		failures []models.FailureRecord
	)
	for _, o := range outcomes {
		switch {
		case o.record != nil:
			records = append(records, *o.record)
		case o.failure != nil:
			failures = append(failures, *o.failure)
		}
	}
	return records, failures
}

func (s *Scheduler) runGroup(ctx context.Context, sessions *sessionSource, group Group, entries []models.ProductEntry, date time.Time, sem *semaphore.Weighted, outcomes []outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("brand group panicked", "brand", group.Brand, "panic", r)
			cause := fail(ErrUnexpected, fmt.Errorf("panic: %v", r))
			for _, idx := range group.Indexes {
				if outcomes[idx].record == nil && outcomes[idx].failure == nil {
					failure := Failure(entries[idx], cause)
					outcomes[idx] = outcome{failure: &failure}
				}
			}
		}
	}()

	session, release, err := sessions.acquire(ctx, group.Brand)
	if err != nil {
		s.logger.Error("skipping brand, no session", "brand", group.Brand, "entries", len(group.Indexes), "error", err)
		for _, idx := range group.Indexes {
			failure := Failure(entries[idx], err)
			outcomes[idx] = outcome{failure: &failure}
		}
		return
	}
	defer release()

	limiter := ratelimit.NewAdaptiveRateLimiter(s.opts.BrandDelayMin, s.opts.BrandDelayMax)

	var wg sync.WaitGroup
	for _, idx := range group.Indexes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[idx] = s.runTask(ctx, session, limiter, sem, entries[idx], date)
		}()
	}
	wg.Wait()
}

// runTask is the failure boundary: nothing a fetch does, panics included,
// escapes to sibling tasks.
func (s *Scheduler) runTask(ctx context.Context, session browser.Session, limiter *ratelimit.AdaptiveRateLimiter, sem *semaphore.Weighted, entry models.ProductEntry, date time.Time) (out outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("fetch panicked", "brand", entry.Brand, "product", entry.ProductName, "panic", r)
			failure := Failure(entry, fail(ErrUnexpected, fmt.Errorf("panic: %v", r)))
			out = outcome{failure: &failure}
		}
		if s.observer != nil {
			var reason models.FailureReason
			if out.failure != nil {
				reason = out.failure.Reason
			}
			s.observer.ObserveFetch(entry.Brand, reason, time.Since(start))
		}
	}()

	// Tasks sleeping on their brand's limiter hold no in-flight slot.
	if err := limiter.Wait(ctx); err != nil {
		failure := Failure(entry, fail(ErrCancelled, err))
		return outcome{failure: &failure}
	}

	if sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			failure := Failure(entry, fail(ErrCancelled, err))
			return outcome{failure: &failure}
		}
		defer sem.Release(1)
	}

	record, err := s.fetcher.Fetch(ctx, session, entry, date)
	if err != nil {
		if ReasonOf(err) == models.ReasonNavigation {
			limiter.RecordError()
		}
		s.logger.Warn("fetch failed",
			"brand", entry.Brand,
			"product", entry.ProductName,
			"reason", ReasonOf(err),
			"error", err)
		failure := Failure(entry, err)
		return outcome{failure: &failure}
	}

	limiter.RecordSuccess()
	s.logger.Debug("price fetched", "brand", entry.Brand, "product", entry.ProductName, "price", record.Price.String())
	return outcome{record: &record}
}

// sessionSource hands out sessions per the configured mode.
type sessionSource struct {
	driver browser.Driver
	mode   SessionMode
	logger *slog.Logger

	once      sync.Once
	shared    browser.Session
	sharedErr error
}

func (s *sessionSource) acquire(ctx context.Context, brand string) (browser.Session, func(), error) {
	if s.mode == SessionShared {
		s.once.Do(func() {
			s.shared, s.sharedErr = s.open(ctx, "shared")
		})
		if s.sharedErr != nil {
			return nil, nil, fail(ErrSessionUnavailable, s.sharedErr)
		}
		return s.shared, func() {}, nil
	}

	session, err := s.open(ctx, brand)
	if err != nil {
		return nil, nil, fail(ErrSessionUnavailable, err)
	}
	return session, func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("failed to close session", "brand", brand, "error", err)
		}
	}, nil
}

// open turns a panicking driver into a session error for this group.
func (s *sessionSource) open(ctx context.Context, name string) (session browser.Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			session, err = nil, fmt.Errorf("panic opening session %s: %v", name, r)
		}
	}()
	return s.driver.NewSession(ctx, name)
}

func (s *sessionSource) close() {
	if s.shared == nil {
		return
	}
	if err := s.shared.Close(); err != nil {
		s.logger.Warn("failed to close shared session", "error", err)
	}
}
