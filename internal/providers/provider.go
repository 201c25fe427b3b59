package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured marks a provider that lacks credentials in this deployment.
var ErrNotConfigured = errors.New("provider not configured")

// SubmitRequest is what every provider receives, already coerced to its limits.
type SubmitRequest struct {
	Prompt          string
	DurationSeconds int
	AspectRatio     string
	RequestID       string
}

// RemoteState is a provider-reported job state.
type RemoteState string

const (
	RemoteQueued    RemoteState = "queued"
	RemoteRunning   RemoteState = "running"
	RemoteSucceeded RemoteState = "succeeded"
	RemoteFailed    RemoteState = "failed"
	RemoteCancelled RemoteState = "cancelled"
)

// PollResult is one provider status report.
type PollResult struct {
	State       RemoteState
	Progress    int
	ArtifactRef string
	Reason      string
}

// Download is raw artifact bytes fetched from a provider.
type Download struct {
	Data []byte
	MIME string
}

// Provider is the contract implemented by every generation backend.
type Provider interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Poll(ctx context.Context, jobID string) (PollResult, error)
	Fetch(ctx context.Context, artifactRef string) (*Download, error)
}

// Canceler is implemented by providers exposing a remote cancel operation.
type Canceler interface {
	Cancel(ctx context.Context, jobID string) error
}

// StatusError is a non-2xx response from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	switch {
	case e.Message != "" && e.Code != "":
		return fmt.Sprintf("%s status %d: %s (%s)", e.Provider, e.StatusCode, e.Message, e.Code)
	case e.Message != "":
		return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s status %d", e.Provider, e.StatusCode)
	}
}

// IsExpired reports whether err means a previously produced artifact is gone.
func IsExpired(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusGone
}

// ClampProgress bounds a reported percentage to 0..100.
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
