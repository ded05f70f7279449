package models

import "time"

// JobStatus is the lifecycle state of a [Job].
type JobStatus string

const (
	StatusPending      JobStatus = "pending"
	StatusFetchingInfo JobStatus = "fetching_info"
	StatusDownloading  JobStatus = "downloading"
	StatusImporting    JobStatus = "importing"
	StatusCompleted    JobStatus = "completed"
	StatusFailed       JobStatus = "failed"
	StatusCancelled    JobStatus = "cancelled"
)

// IsFinished reports whether the status is terminal.
func (s JobStatus) IsFinished() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsRunning reports whether the status is one of the running sub-states.
func (s JobStatus) IsRunning() bool {
	switch s {
	case StatusFetchingInfo, StatusDownloading, StatusImporting:
		return true
	}
	return false
}

// AlbumInfo is the resolved summary of what a job is syncing.
type AlbumInfo struct {
	Title        string      `json:"title"`
	Artist       string      `json:"artist"`
	Year         string      `json:"year,omitempty"`
	TrackCount   int         `json:"track_count"`
	PlaylistID   string      `json:"playlist_id,omitempty"`
	URL          string      `json:"url,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	Kind         ContentKind `json:"kind,omitempty"`
}

// JobOptions are the caller-supplied options attached to a job.
type JobOptions struct {
	AudioFormat string `json:"audio_format,omitempty"`
	MaxItems    int    `json:"max_items,omitempty"` // 0 means no limit
}

// Job is the unit of work for one URL.
type Job struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Status          JobStatus  `json:"status"`
	Progress        float64    `json:"progress"`
	Message         string     `json:"message"`
	AlbumInfo       *AlbumInfo `json:"album_info,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Error           string     `json:"error,omitempty"`
	CancelRequested bool       `json:"cancel_requested,omitempty"`
	JobOptions
}

// Clone returns a deep copy safe to hand out of the store.
func (j Job) Clone() Job {
	c := j
	if j.AlbumInfo != nil {
		info := *j.AlbumInfo
		c.AlbumInfo = &info
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return c
}

// LogEntry is one line of job activity.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Message   string    `json:"message"`
}
