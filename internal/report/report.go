// Package report carries the per-run failure report to its sinks.
package report

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maltedev/price-tracker/internal/models"
)

// Report summarizes one run: what was attempted and which entries failed why.
type Report struct {
	RunID      string                 `json:"run_id"`
	Date       time.Time              `json:"date"`
	Total      int                    `json:"total"`
	Succeeded  int                    `json:"succeeded"`
	Failures   []models.FailureRecord `json:"failures"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
}

func (r Report) Failed() int {
	return len(r.Failures)
}

// ByReason counts failures per reason.
func (r Report) ByReason() map[models.FailureReason]int {
	counts := make(map[models.FailureReason]int)
	for _, f := range r.Failures {
		counts[f.Reason]++
	}
	return counts
}

type Sink interface {
	Publish(ctx context.Context, r Report) error
}

// LogSink writes the report as structured log lines.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "report")}
}

func (s *LogSink) Publish(ctx context.Context, r Report) error {
	s.logger.Info("run finished",
		"run_id", r.RunID,
		"date", models.FormatDate(r.Date),
		"total", r.Total,
		"succeeded", r.Succeeded,
		"failed", r.Failed(),
		"duration", r.FinishedAt.Sub(r.StartedAt))

	for _, f := range r.Failures {
		s.logger.Warn("entry failed",
			"run_id", r.RunID,
			"brand", f.Brand,
			"product", f.ProductName,
			"reason", f.Reason,
			"error", f.Message)
	}
	return nil
}

// Multi publishes to every sink, even when an earlier one fails.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, r Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
