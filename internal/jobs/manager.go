package jobs

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
)

// Manager is the job API used by the HTTP server and the CLI.
type Manager struct {
	store  *Store
	exec   *Executor
	logger *log.Logger
}

// NewManager pairs a store with the executor that runs its jobs.
func NewManager(store *Store, exec *Executor, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{store: store, exec: exec, logger: shared.WithLogger(logger, "component", "jobs")}
}

// Store exposes the underlying store for read-only consumers such as subscribers.
func (m *Manager) Store() *Store { return m.store }

// Create validates url, admits a job and starts it when nothing else is running.
func (m *Manager) Create(url string, opts models.JobOptions) (models.Job, error) {
	if !shared.IsSupportedURL(url) {
		return models.Job{}, fmt.Errorf("%w: %s", shared.ErrInvalidURL, url)
	}
	if opts.MaxItems < 0 {
		return models.Job{}, fmt.Errorf("%w: max_items must not be negative", shared.ErrInvalidArgument)
	}

	job, start, err := m.store.Create(url, opts)
	if err != nil {
		m.logger.Warn("job rejected", "url", url, "err", err)
		return models.Job{}, err
	}

	m.logger.Info("job created", "job", job.ID, "url", url, "queued", !start)
	if start {
		m.exec.Start(job)
	}
	return job, nil
}

// Get returns the job with id.
func (m *Manager) Get(id string) (models.Job, error) {
	job, ok := m.store.Get(id)
	if !ok {
		return models.Job{}, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job, nil
}

// List returns the visible jobs (oldest first) and the activity log.
func (m *Manager) List() ([]models.Job, []models.LogEntry) {
	return m.store.GetAll(), m.store.Logs()
}

// Cancel cancels a pending or running job.
func (m *Manager) Cancel(id string) error {
	job, ok := m.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	if job.Status.IsFinished() {
		return fmt.Errorf("%w: job already finished", shared.ErrJobConflict)
	}
	if !m.store.Cancel(id) {
		return fmt.Errorf("%w: could not cancel job", shared.ErrJobConflict)
	}

	m.exec.Cancel(id)
	m.logger.Info("job cancel requested", "job", id, "status", job.Status)

	if next, ok := m.store.PopNextPending(); ok {
		m.exec.Start(next)
	}
	return nil
}

// ClearFinished removes terminal jobs and returns the count.
func (m *Manager) ClearFinished() int {
	n := m.store.ClearFinished()
	if n > 0 {
		m.logger.Info("cleared finished jobs", "count", n)
	}
	return n
}

// Delete removes a terminal job.
func (m *Manager) Delete(id string) error {
	return m.store.Delete(id)
}
