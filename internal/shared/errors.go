package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingAuth   = fmt.Errorf("missing auth headers")

	// Job errors
	ErrQueueFull     = fmt.Errorf("job queue is full")
	ErrJobNotFound   = fmt.Errorf("job not found")
	ErrJobConflict   = fmt.Errorf("job state conflict")
	ErrJobCancelled  = fmt.Errorf("job cancelled")
	ErrNoTracks      = fmt.Errorf("no tracks to sync")
	ErrToolNotFound  = fmt.Errorf("external tool not found")
	ErrToolFailed    = fmt.Errorf("external tool failed")
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrPipelineFault = fmt.Errorf("sync pipeline failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrAlbumNotFound      = fmt.Errorf("album not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidURL      = fmt.Errorf("unsupported or invalid URL")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
