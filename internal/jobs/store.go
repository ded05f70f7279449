package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
)

// Store defaults.
const (
	DefaultMaxPending = 10
	DefaultMaxJobs    = 100
	DefaultListLimit  = 50
	DefaultLogLimit   = 500
)

// StoreOpts configures a [Store]. Zero values take the package defaults.
type StoreOpts struct {
	Clock      func() time.Time
	NewID      func() string
	MaxPending int // queued jobs allowed while one is running
	MaxJobs    int // retained jobs; the oldest finished ones are pruned first
	ListLimit  int // jobs returned by GetAll
	LogLimit   int // retained log entries
}

// TransitionOpts carries the optional fields of [Store.Transition].
type TransitionOpts struct {
	Progress  *float64
	AlbumInfo *models.AlbumInfo
	StartedAt *time.Time
}

// Store is the in-memory authority for job state.
//
// At most one job is running at a time. Every mutation after creation goes through [Store.Transition],
// [Store.Cancel] or [Store.PopNextPending]; terminal jobs never change again.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*models.Job
	order   []string
	logs    []models.LogEntry
	subs    map[chan struct{}]struct{}
	running string

	clock      func() time.Time
	newID      func() string
	maxPending int
	maxJobs    int
	listLimit  int
	logLimit   int
}

// NewStore creates an empty store.
func NewStore(opts StoreOpts) *Store {
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = shared.GenerateID
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = DefaultMaxPending
	}
	if opts.MaxJobs <= 0 {
		opts.MaxJobs = DefaultMaxJobs
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = DefaultListLimit
	}
	if opts.LogLimit <= 0 {
		opts.LogLimit = DefaultLogLimit
	}
	return &Store{
		jobs:       make(map[string]*models.Job),
		subs:       make(map[chan struct{}]struct{}),
		clock:      opts.Clock,
		newID:      opts.NewID,
		maxPending: opts.MaxPending,
		maxJobs:    opts.MaxJobs,
		listLimit:  opts.ListLimit,
		logLimit:   opts.LogLimit,
	}
}

// Create admits a job for url.
//
// When no job is running and none is pending the new job is admitted straight to fetching_info and
// start is true; otherwise it is queued behind the older pending jobs, which the executor pops first.
// [shared.ErrQueueFull] is returned when the queue is at capacity.
func (s *Store) Create(url string, opts models.JobOptions) (job models.Job, start bool, err error) {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	pending := s.pendingCount()
	admit := s.running == "" && pending == 0
	if !admit && pending >= s.maxPending {
		return models.Job{}, false, fmt.Errorf("%w: %d jobs pending", shared.ErrQueueFull, s.maxPending)
	}

	now := s.clock()
	j := &models.Job{
		ID:         s.newID(),
		URL:        url,
		Status:     models.StatusPending,
		Message:    "Queued",
		CreatedAt:  now,
		JobOptions: opts,
	}
	if admit {
		j.Status = models.StatusFetchingInfo
		j.Message = "Starting"
		s.running = j.ID
		start = true
	}

	s.jobs[j.ID] = j
	s.order = append(s.order, j.ID)
	s.appendLog(j.ID, j.Status, j.Message)
	s.prune()
	return j.Clone(), start, nil
}

// Get returns a copy of the job with id.
func (s *Store) Get(id string) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return j.Clone(), true
}

// GetAll returns copies of the newest ListLimit jobs, oldest first.
func (s *Store) GetAll() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order
	if len(ids) > s.listLimit {
		ids = ids[len(ids)-s.listLimit:]
	}
	out := make([]models.Job, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.jobs[id].Clone())
	}
	return out
}

// Running returns the running job, if any.
func (s *Store) Running() (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.running == "" {
		return models.Job{}, false
	}
	return s.jobs[s.running].Clone(), true
}

// Cancel records cancellation for a non-terminal job and reports whether it did.
//
// A pending job is cancelled immediately. A running job keeps its status until the executor
// observes the intent and transitions it. Repeated calls have no further effect.
func (s *Store) Cancel(id string) bool {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.Status.IsFinished() {
		return false
	}
	if j.Status == models.StatusPending {
		s.finish(j, models.StatusCancelled, "Job cancelled by user")
		return true
	}
	if !j.CancelRequested {
		j.CancelRequested = true
		s.appendLog(id, j.Status, "Cancellation requested")
	}
	return true
}

// CancelRequested reports whether cancellation was requested for id.
func (s *Store) CancelRequested(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return ok && (j.CancelRequested || j.Status == models.StatusCancelled)
}

// Transition moves job id to status with msg and reports the resulting job.
//
// Terminal jobs are left untouched and false is returned. Progress never decreases; completion
// forces it to 100. Terminal states stamp FinishedAt and failures record msg as the error.
func (s *Store) Transition(id string, status models.JobStatus, msg string, opts TransitionOpts) (models.Job, bool) {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.Status.IsFinished() {
		return models.Job{}, false
	}
	if status == models.StatusPending && j.Status != models.StatusPending {
		return j.Clone(), false
	}
	if status.IsRunning() && s.running != "" && s.running != id {
		return j.Clone(), false
	}

	if opts.Progress != nil {
		j.Progress = max(j.Progress, clampProgress(*opts.Progress))
	}
	if opts.AlbumInfo != nil {
		info := *opts.AlbumInfo
		j.AlbumInfo = &info
	}
	if opts.StartedAt != nil {
		t := *opts.StartedAt
		j.StartedAt = &t
	}

	if status.IsFinished() {
		s.finish(j, status, msg)
		return j.Clone(), true
	}

	if status.IsRunning() && s.running == "" {
		s.running = id
	}
	j.Status = status
	if msg != "" {
		j.Message = msg
		s.appendLog(id, status, msg)
	}
	return j.Clone(), true
}

// PopNextPending promotes the oldest pending job to fetching_info.
//
// Nothing is returned while another job is running.
func (s *Store) PopNextPending() (models.Job, bool) {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	if s.running != "" {
		return models.Job{}, false
	}
	for _, id := range s.order {
		j := s.jobs[id]
		if j.Status != models.StatusPending {
			continue
		}
		j.Status = models.StatusFetchingInfo
		j.Message = "Starting"
		s.running = id
		s.appendLog(id, j.Status, j.Message)
		return j.Clone(), true
	}
	return models.Job{}, false
}

// ClearFinished removes every terminal job and returns how many were removed.
func (s *Store) ClearFinished() int {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	kept := s.order[:0]
	n := 0
	for _, id := range s.order {
		if s.jobs[id].Status.IsFinished() {
			delete(s.jobs, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return n
}

// Delete removes one terminal job.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	if !j.Status.IsFinished() {
		return fmt.Errorf("%w: job %s is %s", shared.ErrJobConflict, id, j.Status)
	}
	s.remove(id)
	return nil
}

// Logs returns the retained log entries, oldest first.
func (s *Store) Logs() []models.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// Subscribe returns a channel that receives a value after each change, and a function releasing it.
//
// Notifications coalesce: a slow reader sees at most one pending signal.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
		})
	}
}

// notify signals subscribers without blocking. Callers must not hold the lock.
func (s *Store) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) finish(j *models.Job, status models.JobStatus, msg string) {
	now := s.clock()
	j.Status = status
	j.FinishedAt = &now
	if msg != "" {
		j.Message = msg
	}
	switch status {
	case models.StatusCompleted:
		j.Progress = 100
	case models.StatusFailed:
		j.Error = j.Message
	}
	if s.running == j.ID {
		s.running = ""
	}
	s.appendLog(j.ID, status, j.Message)
}

func (s *Store) pendingCount() int {
	n := 0
	for _, j := range s.jobs {
		if j.Status == models.StatusPending {
			n++
		}
	}
	return n
}

func (s *Store) appendLog(id string, status models.JobStatus, msg string) {
	s.logs = append(s.logs, models.LogEntry{Timestamp: s.clock(), JobID: id, Status: status, Message: msg})
	if over := len(s.logs) - s.logLimit; over > 0 {
		s.logs = append(s.logs[:0], s.logs[over:]...)
	}
}

// prune drops the oldest finished jobs while more than maxJobs are retained.
func (s *Store) prune() {
	over := len(s.order) - s.maxJobs
	if over <= 0 {
		return
	}

	var finished []*models.Job
	for _, id := range s.order {
		if j := s.jobs[id]; j.Status.IsFinished() {
			finished = append(finished, j)
		}
	}
	sort.SliceStable(finished, func(a, b int) bool {
		return finished[a].CreatedAt.Before(finished[b].CreatedAt)
	})

	for i := 0; i < over && i < len(finished); i++ {
		s.remove(finished[i].ID)
	}
}

func (s *Store) remove(id string) {
	delete(s.jobs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func clampProgress(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
