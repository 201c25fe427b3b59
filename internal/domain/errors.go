package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrExtraction       = errors.New("extraction: no usable content")
	ErrNoSources        = errors.New("no sources available")
	ErrPollingExhausted = errors.New("polling exhausted")
	ErrTimedOut         = errors.New("timed out")
	ErrArtifactMissing  = errors.New("artifact missing")
	ErrCancelled        = errors.New("cancelled")
	ErrProviderFailure  = errors.New("provider failure")
)

// Composition failure reasons.
const (
	CompositionTooFewSources    = "too_few_sources"
	CompositionTooManySources   = "too_many_sources"
	CompositionWrongSourceCount = "wrong_source_count"
	CompositionInvalidDuration  = "invalid_duration"
	CompositionUnsupportedMode  = "unsupported_mode"
)

// CompositionError reports a source count or parameter that does not fit the mode.
type CompositionError struct {
	Reason string
	Mode   CompositionMode
	Count  int
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition: %s (mode=%s, sources=%d)", e.Reason, e.Mode, e.Count)
}

// FailureClass tells the fallback chain what to do with a provider error.
type FailureClass string

const (
	ClassTransient            FailureClass = "transient"
	ClassPermanentForProvider FailureClass = "permanent_for_provider"
	ClassPermanentForRequest  FailureClass = "permanent_for_request"
)

// SubmissionError is a classified provider failure.
type SubmissionError struct {
	Class      FailureClass
	ProviderID string
	Reason     string
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	return fmt.Sprintf("submission %s via %s: %s", e.Class, e.ProviderID, reason)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// AllProvidersExhaustedError lists why every provider in a chain failed.
type AllProvidersExhaustedError struct {
	MediaType MediaType
	Failures  []*SubmissionError
}

func (e *AllProvidersExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s=%s", f.ProviderID, f.Class))
	}
	return fmt.Sprintf("all %s providers exhausted: %s", e.MediaType, strings.Join(parts, ", "))
}

// Retryable reports whether every sub-failure was transient, so resubmitting may help.
func (e *AllProvidersExhaustedError) Retryable() bool {
	if len(e.Failures) == 0 {
		return false
	}
	for _, f := range e.Failures {
		if f.Class != ClassTransient {
			return false
		}
	}
	return true
}

// Resolution failure kinds.
const (
	ResolutionNotReady        = "not_ready"
	ResolutionArtifactExpired = "artifact_expired"
)

// ResolutionError is raised after a job was tracked, when its artifact cannot be handed out.
type ResolutionError struct {
	Kind  string
	JobID string
	Err   error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %s: %s: %v", e.JobID, e.Kind, e.Err)
	}
	return fmt.Sprintf("resolve %s: %s", e.JobID, e.Kind)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ArchivedError stands in for a terminal error reloaded from storage, where
// only its taxonomy code survives.
type ArchivedError struct {
	Code string
}

func (e *ArchivedError) Error() string {
	return "archived failure: " + e.Code
}

// ErrorCode maps an error onto its stable taxonomy code for API responses.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var (
		compErr *CompositionError
		subErr  *SubmissionError
		exhErr  *AllProvidersExhaustedError
		resErr  *ResolutionError
		arcErr  *ArchivedError
	)
	switch {
	case errors.As(err, &arcErr):
		return arcErr.Code
	case errors.As(err, &compErr):
		return compErr.Reason
	case errors.As(err, &exhErr):
		return "all_providers_exhausted"
	case errors.As(err, &subErr):
		return string(subErr.Class)
	case errors.As(err, &resErr):
		return resErr.Kind
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrPollingExhausted):
		return "polling_exhausted"
	case errors.Is(err, ErrTimedOut):
		return "timed_out"
	case errors.Is(err, ErrArtifactMissing):
		return "artifact_missing"
	case errors.Is(err, ErrProviderFailure):
		return "provider_failed"
	case errors.Is(err, ErrExtraction):
		return "extraction_error"
	case errors.Is(err, ErrNoSources):
		return "no_sources"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal"
	}
}
