package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule submits a run on a cron expression (with seconds field).
type Schedule struct {
	cron    *cron.Cron
	manager *Manager
	logger  *slog.Logger
	now     func() time.Time
}

func NewSchedule(manager *Manager, logger *slog.Logger) *Schedule {
	return &Schedule{
		cron:    cron.New(cron.WithSeconds()),
		manager: manager,
		logger:  logger.With("component", "schedule"),
		now:     time.Now,
	}
}

// Start registers spec and starts the cron loop. An empty spec disables
// scheduled runs.
func (s *Schedule) Start(spec string) error {
	if spec == "" {
		s.logger.Info("scheduled runs disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(spec, s.trigger); err != nil {
		return fmt.Errorf("invalid run schedule %q: %w", spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduled runs enabled", "schedule", spec)
	return nil
}

// Stop stops the cron loop; the returned context is done once a firing
// trigger has returned.
func (s *Schedule) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Schedule) trigger() {
	r, err := s.manager.Submit(s.now(), TriggerSchedule)
	if errors.Is(err, ErrRunInProgress) {
		s.logger.Warn("skipping scheduled run, previous run still active")
		return
	}
	if err != nil {
		s.logger.Error("failed to submit scheduled run", "error", err)
		return
	}
	s.logger.Info("scheduled run submitted", "id", r.ID)
}
