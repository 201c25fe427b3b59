package domain

import (
	"fmt"
	"strings"
	"time"
)

// MediaType enumerates supported generation targets.
type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeImage MediaType = "image"
)

// ParseMediaType normalizes free-form input into a supported media type.
func ParseMediaType(raw string) (MediaType, error) {
	switch MediaType(strings.ToLower(strings.TrimSpace(raw))) {
	case MediaTypeVideo, "":
		return MediaTypeVideo, nil
	case MediaTypeImage:
		return MediaTypeImage, nil
	default:
		return "", fmt.Errorf("unsupported media type %q", raw)
	}
}

// JobState enumerates job lifecycle states.
type JobState string

const (
	JobStateSubmitted JobState = "SUBMITTED"
	JobStateQueued    JobState = "QUEUED"
	JobStateRunning   JobState = "RUNNING"
	JobStateCompleted JobState = "COMPLETED"
	JobStateFailed    JobState = "FAILED"
	JobStateTimedOut  JobState = "TIMED_OUT"
)

// IsTerminal reports whether no further transitions can occur.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateTimedOut:
		return true
	default:
		return false
	}
}

// rank orders non-terminal states so transitions only move forward.
func (s JobState) rank() int {
	switch s {
	case JobStateSubmitted:
		return 0
	case JobStateQueued:
		return 1
	case JobStateRunning:
		return 2
	default:
		return 3
	}
}

// Advances reports whether moving from s to next keeps the lifecycle monotonic.
func (s JobState) Advances(next JobState) bool {
	if s.IsTerminal() {
		return false
	}
	return next.rank() >= s.rank()
}

// GenerationJob encapsulates one provider-side generation request. JobID is
// issued by the provider; Handle is the URL-safe key callers use.
type GenerationJob struct {
	Handle          string
	JobID           string
	ProviderID      string
	MediaType       MediaType
	State           JobState
	ProgressPercent int
	SubmittedAt     time.Time
	LastPolledAt    time.Time
	TerminalError   error
	ArtifactRef     string
	SourceCount     int
	CompositionMode CompositionMode
	DurationSeconds int
}

// ErrorCode returns the taxonomy code of the terminal error, if any.
func (j GenerationJob) ErrorCode() string {
	if j.TerminalError == nil {
		return ""
	}
	return ErrorCode(j.TerminalError)
}
