package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&CompositionError{Reason: CompositionTooManySources, Mode: ModeFusionBlend, Count: 6}, "too_many_sources"},
		{fmt.Errorf("compose: %w", &CompositionError{Reason: CompositionWrongSourceCount}), "wrong_source_count"},
		{&SubmissionError{Class: ClassPermanentForRequest, ProviderID: "veo-3"}, "permanent_for_request"},
		{&AllProvidersExhaustedError{MediaType: MediaTypeVideo}, "all_providers_exhausted"},
		{&ResolutionError{Kind: ResolutionArtifactExpired}, "artifact_expired"},
		{&ResolutionError{Kind: ResolutionNotReady}, "not_ready"},
		{fmt.Errorf("%w: 503 unavailable", ErrPollingExhausted), "polling_exhausted"},
		{ErrTimedOut, "timed_out"},
		{ErrArtifactMissing, "artifact_missing"},
		{ErrCancelled, "cancelled"},
		{fmt.Errorf("%w: render crashed", ErrProviderFailure), "provider_failed"},
		{fmt.Errorf("source a: %w", ErrExtraction), "extraction_error"},
		{ErrNoSources, "no_sources"},
		{ErrNotFound, "not_found"},
		{&ArchivedError{Code: "timed_out"}, "timed_out"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestExhaustedRetryableOnlyWhenAllTransient(t *testing.T) {
	transient := &SubmissionError{Class: ClassTransient, ProviderID: "a"}
	skip := &SubmissionError{Class: ClassPermanentForProvider, ProviderID: "b"}
	tests := []struct {
		name     string
		failures []*SubmissionError
		want     bool
	}{
		{"empty chain", nil, false},
		{"all transient", []*SubmissionError{transient, transient}, true},
		{"mixed", []*SubmissionError{transient, skip}, false},
		{"all skipped", []*SubmissionError{skip}, false},
	}
	for _, tt := range tests {
		err := &AllProvidersExhaustedError{MediaType: MediaTypeVideo, Failures: tt.failures}
		if got := err.Retryable(); got != tt.want {
			t.Fatalf("%s: Retryable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestJobStateAdvances(t *testing.T) {
	tests := []struct {
		from, to JobState
		want     bool
	}{
		{JobStateSubmitted, JobStateQueued, true},
		{JobStateQueued, JobStateRunning, true},
		{JobStateRunning, JobStateQueued, false},
		{JobStateRunning, JobStateRunning, true},
		{JobStateRunning, JobStateCompleted, true},
		{JobStateCompleted, JobStateFailed, false},
		{JobStateTimedOut, JobStateRunning, false},
	}
	for _, tt := range tests {
		if got := tt.from.Advances(tt.to); got != tt.want {
			t.Fatalf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseEnums(t *testing.T) {
	if m, err := ParseCompositionMode(" Blend "); err != nil || m != ModeFusionBlend {
		t.Fatalf("ParseCompositionMode = %q, %v", m, err)
	}
	if m, err := ParseCompositionMode(""); err != nil || m != ModeDirect {
		t.Fatalf("empty mode = %q, %v; want direct", m, err)
	}
	if _, err := ParseCompositionMode("collage"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if mt, err := ParseMediaType("IMAGE"); err != nil || mt != MediaTypeImage {
		t.Fatalf("ParseMediaType = %q, %v", mt, err)
	}
	if _, err := ParseMediaType("audio"); err == nil {
		t.Fatalf("expected error for unknown media type")
	}
}
