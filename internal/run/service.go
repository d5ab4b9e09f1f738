package run

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/report"
	"github.com/maltedev/price-tracker/internal/storage"
)

type CatalogSource interface {
	Load(ctx context.Context) ([]models.ProductEntry, error)
}

// Observer records finished runs. err is the run-level error, if any.
type Observer interface {
	ObserveRun(r report.Report, err error, elapsed time.Duration)
}

// Service executes complete runs: catalog and history in, merged dataset
// persisted, report published.
type Service struct {
	catalog     CatalogSource
	store       storage.DatasetStore
	coordinator *Coordinator
	sink        report.Sink
	observer    Observer
	logger      *slog.Logger
}

func NewService(catalog CatalogSource, store storage.DatasetStore, coordinator *Coordinator, sink report.Sink, observer Observer, logger *slog.Logger) *Service {
	return &Service{
		catalog:     catalog,
		store:       store,
		coordinator: coordinator,
		sink:        sink,
		observer:    observer,
		logger:      logger.With("component", "run_service"),
	}
}

// Execute performs one run for date. Per-entry failures end up in the
// report; only catalog, history or persistence errors are returned.
// A failed save leaves the stored dataset as it was.
func (s *Service) Execute(ctx context.Context, runID string, date time.Time) (rep report.Report, err error) {
	start := time.Now()
	rep = report.Report{RunID: runID, Date: models.Day(date), StartedAt: start}
	defer func() {
		if s.observer != nil {
			s.observer.ObserveRun(rep, err, time.Since(start))
		}
	}()

	catalog, err := s.catalog.Load(ctx)
	if err != nil {
		return rep, fmt.Errorf("failed to load catalog: %w", err)
	}

	historical, err := s.store.Load(ctx)
	if err != nil {
		return rep, fmt.Errorf("failed to load dataset: %w", err)
	}

	var merged models.Dataset
	merged, rep = s.coordinator.Run(ctx, catalog, historical, date)
	rep.RunID = runID

	if err = s.store.Save(ctx, merged, rep.Date); err != nil {
		s.logger.Error("failed to save dataset", "run_id", runID, "error", err)
	}

	if s.sink != nil {
		// the report still goes out when the save failed
		if perr := s.sink.Publish(ctx, rep); perr != nil {
			s.logger.Warn("failed to publish report", "run_id", runID, "error", perr)
		}
	}

	if err != nil {
		return rep, fmt.Errorf("failed to save dataset: %w", err)
	}
	return rep, nil
}
