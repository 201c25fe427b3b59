package resolver

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"mediagen/internal/domain"
	"mediagen/internal/providers"
	"mediagen/internal/storage"
)

type fakeFetcher struct {
	dl    *providers.Download
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, job *domain.GenerationJob) (*providers.Download, error) {
	f.calls++
	return f.dl, f.err
}

func completedJob() domain.GenerationJob {
	return domain.GenerationJob{
		Handle:      "h-1",
		JobID:       "remote-1",
		ProviderID:  "veo",
		MediaType:   domain.MediaTypeVideo,
		State:       domain.JobStateCompleted,
		ArtifactRef: "https://cdn.test/clip.mp4",
	}
}

func TestResolveRejectsUnfinishedJobs(t *testing.T) {
	for _, state := range []domain.JobState{domain.JobStateSubmitted, domain.JobStateRunning, domain.JobStateFailed, domain.JobStateTimedOut} {
		fetcher := &fakeFetcher{}
		job := completedJob()
		job.State = state
		_, err := New(fetcher, nil, nil).Resolve(context.Background(), job)
		var resErr *domain.ResolutionError
		if !errors.As(err, &resErr) || resErr.Kind != domain.ResolutionNotReady {
			t.Fatalf("%s: err = %v, want not_ready", state, err)
		}
		if fetcher.calls != 0 {
			t.Fatalf("%s: provider contacted for unfinished job", state)
		}
	}
}

func TestResolveReportsExpiredArtifact(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusGone} {
		fetcher := &fakeFetcher{err: &providers.StatusError{Provider: "veo", StatusCode: code}}
		_, err := New(fetcher, nil, nil).Resolve(context.Background(), completedJob())
		if domain.ErrorCode(err) != domain.ResolutionArtifactExpired {
			t.Fatalf("status %d: code = %s, want artifact_expired", code, domain.ErrorCode(err))
		}
	}

	fetcher := &fakeFetcher{err: &providers.StatusError{Provider: "veo", StatusCode: http.StatusBadGateway}}
	_, err := New(fetcher, nil, nil).Resolve(context.Background(), completedJob())
	var resErr *domain.ResolutionError
	if err == nil || errors.As(err, &resErr) {
		t.Fatalf("502 err = %v, want plain fetch error", err)
	}
}

func TestResolveCachesInStore(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	fetcher := &fakeFetcher{dl: &providers.Download{Data: []byte("mp4"), MIME: "video/mp4"}}
	r := New(fetcher, store, nil)
	ctx := context.Background()

	first, err := r.Resolve(ctx, completedJob())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.StorageKey != "generated/videos/h-1/artifact.mp4" || first.URL != "https://cdn.test/clip.mp4" {
		t.Fatalf("artifact = %+v", first)
	}
	second, err := r.Resolve(ctx, completedJob())
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", fetcher.calls)
	}
	if string(second.Data) != "mp4" || second.MIME != "video/mp4" {
		t.Fatalf("cached artifact = %+v", second)
	}

	r.Forget(ctx, completedJob())
	if _, err := store.Read(ctx, first.StorageKey); err == nil {
		t.Fatalf("cached file still present after Forget")
	}
}
