package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
	"github.com/desertthunder/yubal/internal/tasks"
)

const defaultEventBuffer = 16

// Pipeline runs the sync for one job. [tasks.SyncService] satisfies it.
type Pipeline interface {
	Run(ctx context.Context, req tasks.SyncRequest, em tasks.Emitter, token *tasks.CancelToken) tasks.SyncResult
}

// ExecutorOpts configures an [Executor].
type ExecutorOpts struct {
	Store       *Store
	Pipeline    Pipeline
	Logger      *log.Logger
	EventBuffer int // capacity of each job's progress channel
}

type execution struct {
	token  *tasks.CancelToken
	cancel context.CancelFunc
}

// Executor runs jobs from a [Store] in the background and feeds their progress back into it.
//
// When a job finishes the next pending job is popped and started, so the queue drains in FIFO order.
type Executor struct {
	store    *Store
	pipeline Pipeline
	logger   *log.Logger
	buffer   int

	ctx  context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	running map[string]execution
	closed  bool
	wg      sync.WaitGroup
}

// NewExecutor creates an executor. Call [Executor.Shutdown] to stop it.
func NewExecutor(opts ExecutorOpts) *Executor {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Executor{
		store:    opts.Store,
		pipeline: opts.Pipeline,
		logger:   shared.WithLogger(opts.Logger, "component", "executor"),
		buffer:   opts.EventBuffer,
		ctx:      ctx,
		stop:     stop,
		running:  make(map[string]execution),
	}
}

// Start launches job in the background. It is a no-op after shutdown.
func (e *Executor) Start(job models.Job) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startLocked(job)
}

func (e *Executor) startLocked(job models.Job) {
	if e.closed {
		return
	}
	if _, ok := e.running[job.ID]; ok {
		return
	}

	ctx, cancel := context.WithCancel(e.ctx)
	x := execution{token: tasks.NewCancelToken(), cancel: cancel}
	e.running[job.ID] = x
	e.wg.Add(1)
	go e.run(ctx, job, x.token)
}

// Cancel signals the running job id and reports whether it was running here.
//
// The job observes the signal on its own time; its status changes when it does.
func (e *Executor) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	x, ok := e.running[id]
	if !ok {
		return false
	}
	x.token.Cancel()
	x.cancel()
	return true
}

// Wait blocks until no job is running, including the jobs drained from the queue.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Shutdown cancels every running job, stops draining the queue and waits for the
// background goroutines or for ctx to end.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	for _, x := range e.running {
		x.token.Cancel()
	}
	e.mu.Unlock()
	e.stop()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: executor shutdown: %w", shared.ErrTimeout, ctx.Err())
	}
}

func (e *Executor) run(ctx context.Context, job models.Job, token *tasks.CancelToken) {
	defer e.wg.Done()
	defer e.startNext()
	defer e.release(job.ID)

	logger := shared.WithLogger(e.logger, "job", job.ID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", "panic", r)
			e.store.Transition(job.ID, models.StatusFailed, fmt.Sprintf("%v: %v", shared.ErrPipelineFault, r), TransitionOpts{})
		}
	}()

	if e.store.CancelRequested(job.ID) {
		token.Cancel()
	}
	if token.IsCancelled() {
		e.store.Transition(job.ID, models.StatusCancelled, "Job cancelled by user", TransitionOpts{})
		return
	}

	now := time.Now().UTC()
	e.store.Transition(job.ID, models.StatusFetchingInfo, "Starting sync from: "+job.URL, TransitionOpts{StartedAt: &now})
	logger.Info("job started", "url", job.URL)

	res := e.execute(ctx, job, token)

	switch {
	case token.IsCancelled() || e.store.CancelRequested(job.ID):
		e.store.Transition(job.ID, models.StatusCancelled, "Job cancelled by user", TransitionOpts{})
		logger.Info("job cancelled")
	case res.Success:
		done := 100.0
		e.store.Transition(job.ID, models.StatusCompleted, completionMessage(res), TransitionOpts{
			Progress:  &done,
			AlbumInfo: res.AlbumInfo,
		})
		logger.Info("job completed", "destination", res.Destination)
	default:
		msg := res.Error
		if msg == "" {
			msg = "Sync failed"
		}
		e.store.Transition(job.ID, models.StatusFailed, msg, TransitionOpts{})
		logger.Error("job failed", "err", msg)
	}
}

// execute runs the pipeline on its own goroutine and applies its events in emission order.
func (e *Executor) execute(ctx context.Context, job models.Job, token *tasks.CancelToken) tasks.SyncResult {
	events := make(chan tasks.ProgressEvent, e.buffer)
	result := make(chan tasks.SyncResult, 1)

	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				result <- tasks.SyncResult{Error: fmt.Sprintf("%v: %v", shared.ErrPipelineFault, r)}
			}
		}()
		req := tasks.SyncRequest{
			JobID:       job.ID,
			URL:         job.URL,
			AudioFormat: job.AudioFormat,
			MaxItems:    job.MaxItems,
		}
		result <- e.pipeline.Run(ctx, req, tasks.NewChannelEmitter(events, token), token)
	}()

	for ev := range events {
		e.apply(job.ID, ev, token)
	}
	return <-result
}

func (e *Executor) apply(id string, ev tasks.ProgressEvent, token *tasks.CancelToken) {
	if token.IsCancelled() {
		return
	}
	status, ok := ev.Step.Status()
	if !ok {
		return
	}
	e.store.Transition(id, status, ev.Message, TransitionOpts{Progress: ev.Progress, AlbumInfo: ev.AlbumInfo})
}

func (e *Executor) release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if x, ok := e.running[id]; ok {
		x.cancel()
		delete(e.running, id)
	}
}

func (e *Executor) startNext() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if next, ok := e.store.PopNextPending(); ok {
		e.startLocked(next)
	}
}

func completionMessage(res tasks.SyncResult) string {
	switch {
	case res.Destination != "":
		return "Sync complete: " + res.Destination
	case res.AlbumInfo != nil && res.AlbumInfo.Title != "":
		return "Sync complete: " + res.AlbumInfo.Title
	}
	return "Sync complete"
}
