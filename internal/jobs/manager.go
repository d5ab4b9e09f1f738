// Package jobs tracks runs triggered over the API or by the schedule and
// executes them one at a time.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/price-tracker/internal/report"
)

var (
	ErrRunInProgress = errors.New("a run is already in progress")
	ErrRunNotFound   = errors.New("run not found")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Trigger string

const (
	TriggerAPI      Trigger = "api"
	TriggerSchedule Trigger = "schedule"
)

// Executor performs one run. *run.Service implements it.
type Executor interface {
	Execute(ctx context.Context, runID string, date time.Time) (report.Report, error)
}

// Run represents one tracked run
type Run struct {
	ID          string         `json:"id"`
	Date        time.Time      `json:"date"`
	Trigger     Trigger        `json:"trigger"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Report      *report.Report `json:"report,omitempty"`
}

// Stats summarizes tracked runs
type Stats struct {
	TotalRuns     int `json:"total_runs"`
	RunningRuns   int `json:"running_runs"`
	CompletedRuns int `json:"completed_runs"`
	FailedRuns    int `json:"failed_runs"`
}

const maxHistory = 100

type Manager struct {
	exec   Executor
	logger *slog.Logger

	mu     sync.Mutex
	runs   map[string]*Run
	order  []string
	active string
	queue  chan string
}

func NewManager(exec Executor, logger *slog.Logger) *Manager {
	return &Manager{
		exec:   exec,
		logger: logger.With("component", "job_manager"),
		runs:   make(map[string]*Run),
		queue:  make(chan string, 1),
	}
}

// Submit queues a run for date. Only one run may be pending or running at
// a time; otherwise ErrRunInProgress is returned.
func (m *Manager) Submit(date time.Time, trigger Trigger) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" {
		return Run{}, ErrRunInProgress
	}

	r := &Run{
		ID:        uuid.New().String(),
		Date:      date,
		Trigger:   trigger,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	m.runs[r.ID] = r
	m.order = append(m.order, r.ID)
	m.active = r.ID
	m.trim()

	m.queue <- r.ID

	m.logger.Info("run submitted", "id", r.ID, "trigger", trigger)
	return *r, nil
}

// GetRun retrieves a run by ID
func (m *Manager) GetRun(id string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return *r, nil
}

// ListRuns returns tracked runs, newest first.
func (m *Manager) ListRuns() []Run {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]Run, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		runs = append(runs, *m.runs[m.order[i]])
	}
	return runs
}

func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{TotalRuns: len(m.runs)}
	for _, r := range m.runs {
		switch r.Status {
		case StatusPending, StatusRunning:
			stats.RunningRuns++
		case StatusCompleted:
			stats.CompletedRuns++
		case StatusFailed:
			stats.FailedRuns++
		}
	}
	return stats
}

// trim forgets the oldest finished runs beyond maxHistory. Caller holds mu.
func (m *Manager) trim() {
	for len(m.order) > maxHistory {
		oldest := m.order[0]
		if oldest == m.active {
			return
		}
		delete(m.runs, oldest)
		m.order = m.order[1:]
	}
}

func (m *Manager) updateRun(id string, fn func(r *Run)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.runs[id]; ok {
		fn(r)
	}
}
