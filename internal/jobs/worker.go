package jobs

import (
	"context"
	"time"
)

// StartWorker executes submitted runs until ctx is cancelled.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("job worker stopping")
			return
		case id := <-m.queue:
			m.processRun(ctx, id)
		}
	}
}

func (m *Manager) processRun(ctx context.Context, id string) {
	var date time.Time
	m.updateRun(id, func(r *Run) {
		now := time.Now()
		r.Status = StatusRunning
		r.StartedAt = &now
		date = r.Date
	})

	m.logger.Info("processing run", "id", id)
	rep, err := m.exec.Execute(ctx, id, date)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = ""
	r, ok := m.runs[id]
	if !ok {
		return
	}

	now := time.Now()
	r.CompletedAt = &now
	r.Report = &rep
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		m.logger.Error("run failed", "id", id, "error", err)
		return
	}
	r.Status = StatusCompleted
	m.logger.Info("run completed", "id", id, "succeeded", rep.Succeeded, "failed", rep.Failed())
}
