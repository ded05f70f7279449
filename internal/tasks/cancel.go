package tasks

import "sync/atomic"

// CancelToken is a permanent, goroutine-safe cancellation flag shared by a job's
// controller, its pipeline and its progress emitter.
type CancelToken struct {
	cancelled atomic.Bool
}

// NewCancelToken returns an unset token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel sets the flag. Calling it again has no effect.
func (t *CancelToken) Cancel() {
	t.cancelled.Store(true)
}

// IsCancelled reports whether Cancel has been called. It never blocks.
func (t *CancelToken) IsCancelled() bool {
	return t.cancelled.Load()
}
