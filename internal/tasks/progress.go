package tasks

import (
	"github.com/desertthunder/yubal/internal/models"
)

// ProgressStep is the pipeline phase named by a [ProgressEvent].
type ProgressStep string

const (
	StepFetchingInfo ProgressStep = "fetching_info"
	StepDownloading  ProgressStep = "downloading"
	StepImporting    ProgressStep = "importing"
	StepCompleted    ProgressStep = "completed"
	StepFailed       ProgressStep = "failed"
)

// Status maps a step onto the job status it drives.
//
// Terminal steps report false: only the executor decides how a job ends. Unknown steps map to downloading.
func (s ProgressStep) Status() (models.JobStatus, bool) {
	switch s {
	case StepFetchingInfo:
		return models.StatusFetchingInfo, true
	case StepDownloading:
		return models.StatusDownloading, true
	case StepImporting:
		return models.StatusImporting, true
	case StepCompleted, StepFailed:
		return "", false
	default:
		return models.StatusDownloading, true
	}
}

// ProgressEvent is a single pipeline update.
type ProgressEvent struct {
	Step      ProgressStep
	Message   string
	Progress  *float64 // nil leaves the job's progress unchanged
	AlbumInfo *models.AlbumInfo
}

// Emitter receives pipeline progress.
type Emitter interface {
	Emit(ev ProgressEvent)
}

// ChannelEmitter forwards events to a channel drained by the job controller.
//
// Sends block until the controller receives them, which keeps events in order. Once the token is
// cancelled further events are dropped.
type ChannelEmitter struct {
	ch    chan<- ProgressEvent
	token *CancelToken
}

// NewChannelEmitter creates an emitter writing to ch and gated by token (which may be nil).
func NewChannelEmitter(ch chan<- ProgressEvent, token *CancelToken) *ChannelEmitter {
	return &ChannelEmitter{ch: ch, token: token}
}

func (e *ChannelEmitter) Emit(ev ProgressEvent) {
	if e.token != nil && e.token.IsCancelled() {
		return
	}
	e.ch <- ev
}

// NullEmitter discards every event.
type NullEmitter struct{}

func (NullEmitter) Emit(ProgressEvent) {}

// EmitterFunc adapts a function to [Emitter].
type EmitterFunc func(ProgressEvent)

func (f EmitterFunc) Emit(ev ProgressEvent) { f(ev) }

func emit(e Emitter, step ProgressStep, msg string, progress float64) {
	e.Emit(ProgressEvent{Step: step, Message: msg, Progress: &progress})
}

func emitMessage(e Emitter, step ProgressStep, msg string) {
	e.Emit(ProgressEvent{Step: step, Message: msg})
}

// DownloadProgress is reported by a [Downloader] for one item.
type DownloadProgress struct {
	Index   int     // position of the item in the request
	Percent float64 // 0-100 within the item
	Message string
}

// scaledDownloadProgress maps per-item download progress onto the [start, end] band of overall progress.
func scaledDownloadProgress(e Emitter, total int, start, end float64) func(DownloadProgress) {
	if total <= 0 {
		total = 1
	}
	return func(p DownloadProgress) {
		pct := min(max(p.Percent, 0), 100)
		overall := start + (float64(p.Index)+pct/100)/float64(total)*(end-start)
		emit(e, StepDownloading, p.Message, min(overall, end))
	}
}
