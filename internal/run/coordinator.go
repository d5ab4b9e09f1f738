// Package run ties one price run together: fetch every catalog entry,
// merge the results into history and hand out a failure report.
package run

import (
	"context"
	"log/slog"
	"time"

	"github.com/maltedev/price-tracker/internal/dataset"
	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/report"
)

// Fetcher fetches a whole catalog. *scraper.Scheduler implements it.
type Fetcher interface {
	RunAll(ctx context.Context, entries []models.ProductEntry, date time.Time) ([]models.ScrapeRecord, []models.FailureRecord)
}

// Coordinator runs the fetch phase and then the merge. It does no I/O of
// its own; loading and saving the dataset is the caller's job.
type Coordinator struct {
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time
}

func NewCoordinator(fetcher Fetcher, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		fetcher: fetcher,
		logger:  logger.With("component", "coordinator"),
		now:     time.Now,
	}
}

// Run returns the merged dataset and the report of entries that produced
// no price. historical is not modified.
func (c *Coordinator) Run(ctx context.Context, catalog []models.ProductEntry, historical models.Dataset, date time.Time) (models.Dataset, report.Report) {
	day := models.Day(date)
	rep := report.Report{
		Date:      day,
		Total:     len(catalog),
		StartedAt: c.now(),
	}

	c.logger.Info("run started", "date", models.FormatDate(day), "entries", len(catalog), "history_rows", len(historical))

	fresh, failures := c.fetcher.RunAll(ctx, catalog, day)
	merged := dataset.Merge(historical, fresh, day)

	rep.Succeeded = len(fresh)
	rep.Failures = failures
	if rep.Failures == nil {
		rep.Failures = []models.FailureRecord{}
	}
	rep.FinishedAt = c.now()

	c.logger.Info("run merged",
		"date", models.FormatDate(day),
		"succeeded", rep.Succeeded,
		"failed", rep.Failed(),
		"rows", len(merged))
	return merged, rep
}
