package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mediagen/internal/contextstore"
	"mediagen/internal/domain"
	"mediagen/internal/engine"
	"mediagen/internal/http/handlers"
	"mediagen/internal/providers"
)

type fakeEngine struct {
	startReq engine.StartRequest
	startErr error
	job      domain.GenerationJob
	jobErr   error
	artifact *domain.Artifact
	artErr   error
}

func (f *fakeEngine) Start(ctx context.Context, req engine.StartRequest) (domain.GenerationJob, error) {
	f.startReq = req
	return f.job, f.startErr
}

func (f *fakeEngine) Status(ctx context.Context, handle string) (domain.GenerationJob, error) {
	if handle != f.job.Handle {
		return domain.GenerationJob{}, domain.ErrNotFound
	}
	return f.job, f.jobErr
}

func (f *fakeEngine) Artifact(ctx context.Context, handle string) (*domain.Artifact, error) {
	return f.artifact, f.artErr
}

func (f *fakeEngine) Cancel(ctx context.Context, handle string) (domain.GenerationJob, error) {
	job := f.job
	job.State = domain.JobStateFailed
	job.TerminalError = domain.ErrCancelled
	return job, nil
}

func (f *fakeEngine) Counts() map[domain.JobState]int {
	return map[domain.JobState]int{domain.JobStateRunning: 2, domain.JobStateCompleted: 1}
}

func newServer(t *testing.T, eng *fakeEngine) http.Handler {
	t.Helper()
	registry, err := providers.NewRegistry(providers.DefaultDescriptors(true))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewRouter(handlers.NewApp(eng, registry, nil, nil), RouterOptions{GenerationsPerMinute: 100})
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func runningJob() domain.GenerationJob {
	return domain.GenerationJob{
		Handle:          "8f4e",
		JobID:           "models/veo/operations/1",
		ProviderID:      "veo-3",
		MediaType:       domain.MediaTypeVideo,
		State:           domain.JobStateRunning,
		ProgressPercent: 45,
		CompositionMode: domain.ModeFusionBlend,
		SourceCount:     3,
		DurationSeconds: 8,
		SubmittedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateGeneration(t *testing.T) {
	job := runningJob()
	job.State = domain.JobStateSubmitted
	eng := &fakeEngine{job: job}
	h := newServer(t, eng)

	body := `{"sources":[{"source_id":"a","caption":"#Coffee"}],"handles":["@barista"],"mode":"blend","duration_seconds":10,"media_type":"video","user_key":"shop-7"}`
	rec := do(h, http.MethodPost, "/v1/generations", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["job_id"] != "8f4e" || out["provider_id"] != "veo-3" {
		t.Fatalf("response = %v", out)
	}
	if rec.Header().Get("Location") != "/v1/generations/8f4e" {
		t.Fatalf("Location = %q", rec.Header().Get("Location"))
	}
	req := eng.startReq
	if req.Mode != domain.ModeFusionBlend || req.DurationSeconds != 10 || req.UserKey != "shop-7" || len(req.Sources) != 1 || len(req.Handles) != 1 {
		t.Fatalf("start request = %+v", req)
	}
}

func TestCreateGenerationErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		err       error
		status    int
		code      string
		retryable any
	}{
		{"bad json", `{`, nil, http.StatusBadRequest, "bad_request", nil},
		{"bad mode", `{"mode":"collage"}`, nil, http.StatusBadRequest, "bad_request", nil},
		{"bad media", `{"media_type":"audio"}`, nil, http.StatusBadRequest, "bad_request", nil},
		{"composition", `{}`, &domain.CompositionError{Reason: domain.CompositionTooFewSources, Mode: domain.ModeFusionBlend, Count: 1}, http.StatusUnprocessableEntity, "too_few_sources", nil},
		{"extraction", `{}`, domain.ErrExtraction, http.StatusUnprocessableEntity, "extraction_error", nil},
		{"no sources", `{}`, domain.ErrNoSources, http.StatusUnprocessableEntity, "no_sources", nil},
		{"request rejected", `{}`, &domain.SubmissionError{Class: domain.ClassPermanentForRequest, ProviderID: "veo-3", Reason: "SAFETY"}, http.StatusUnprocessableEntity, "permanent_for_request", nil},
		{"exhausted transient", `{}`, &domain.AllProvidersExhaustedError{MediaType: domain.MediaTypeVideo, Failures: []*domain.SubmissionError{{Class: domain.ClassTransient, ProviderID: "veo-3"}}}, http.StatusServiceUnavailable, "all_providers_exhausted", true},
		{"exhausted mixed", `{}`, &domain.AllProvidersExhaustedError{MediaType: domain.MediaTypeVideo, Failures: []*domain.SubmissionError{{Class: domain.ClassTransient, ProviderID: "veo-3"}, {Class: domain.ClassPermanentForProvider, ProviderID: "veo-3-fast"}}}, http.StatusServiceUnavailable, "all_providers_exhausted", false},
		{"internal", `{}`, errors.New("boom"), http.StatusInternalServerError, "internal", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServer(t, &fakeEngine{startErr: tt.err})
			rec := do(h, http.MethodPost, "/v1/generations", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			out := decode(t, rec)
			if out["error"] != tt.code {
				t.Fatalf("error = %v, want %s", out["error"], tt.code)
			}
			if out["retryable"] != tt.retryable {
				t.Fatalf("retryable = %v, want %v", out["retryable"], tt.retryable)
			}
			if tt.retryable == true && rec.Header().Get("Retry-After") == "" {
				t.Fatalf("missing Retry-After on retryable exhaustion")
			}
		})
	}
}

func TestGenerationStatus(t *testing.T) {
	job := runningJob()
	job.LastPolledAt = job.SubmittedAt.Add(20 * time.Second)
	h := newServer(t, &fakeEngine{job: job})

	rec := do(h, http.MethodGet, "/v1/generations/8f4e", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	out := decode(t, rec)
	if out["state"] != "RUNNING" || out["progress_percent"] != float64(45) || out["source_count"] != float64(3) {
		t.Fatalf("response = %v", out)
	}
	if _, ok := out["error"]; ok {
		t.Fatalf("running job reported an error: %v", out["error"])
	}

	if rec := do(h, http.MethodGet, "/v1/generations/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job status = %d, want 404", rec.Code)
	}

	timedOut := runningJob()
	timedOut.State = domain.JobStateTimedOut
	timedOut.TerminalError = domain.ErrTimedOut
	out = decode(t, do(newServer(t, &fakeEngine{job: timedOut}), http.MethodGet, "/v1/generations/8f4e", ""))
	if out["state"] != "TIMED_OUT" || out["error"] != "timed_out" {
		t.Fatalf("timed out response = %v", out)
	}
}

func TestGenerationArtifact(t *testing.T) {
	tests := []struct {
		name   string
		art    *domain.Artifact
		err    error
		status int
	}{
		{"ready", &domain.Artifact{MIME: "video/mp4", Data: []byte("mp4data")}, nil, http.StatusOK},
		{"not ready", nil, &domain.ResolutionError{Kind: domain.ResolutionNotReady, JobID: "8f4e"}, http.StatusConflict},
		{"expired", nil, &domain.ResolutionError{Kind: domain.ResolutionArtifactExpired, JobID: "8f4e"}, http.StatusGone},
		{"unknown", nil, domain.ErrNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServer(t, &fakeEngine{job: runningJob(), artifact: tt.art, artErr: tt.err})
			rec := do(h, http.MethodGet, "/v1/generations/8f4e/artifact", "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.art != nil {
				if rec.Body.String() != "mp4data" || rec.Header().Get("Content-Type") != "video/mp4" {
					t.Fatalf("body = %q type = %q", rec.Body.String(), rec.Header().Get("Content-Type"))
				}
				if !strings.Contains(rec.Header().Get("Content-Disposition"), "8f4e.mp4") {
					t.Fatalf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
				}
			}
		})
	}
}

func TestCancelGeneration(t *testing.T) {
	h := newServer(t, &fakeEngine{job: runningJob()})
	rec := do(h, http.MethodDelete, "/v1/generations/8f4e", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	out := decode(t, rec)
	if out["state"] != "FAILED" || out["error"] != "cancelled" {
		t.Fatalf("response = %v", out)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	h := newServer(t, &fakeEngine{})

	out := decode(t, do(h, http.MethodGet, "/v1/providers", ""))
	chains := out["chains"].(map[string]any)
	video := chains["video"].([]any)
	if first := video[0].(map[string]any); first["provider_id"] != "veo-3" {
		t.Fatalf("video chain head = %v", first)
	}
	if last := video[len(video)-1].(map[string]any); last["provider_id"] != "synthetic-video" {
		t.Fatalf("video chain tail = %v", last)
	}

	rec := do(h, http.MethodGet, "/v1/schema/generation-script", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "full_prompt") {
		t.Fatalf("schema = %d %s", rec.Code, rec.Body.String())
	}

	metrics := decode(t, do(h, http.MethodGet, "/v1/metrics/trackers", ""))
	if metrics["tracked"] != float64(3) {
		t.Fatalf("metrics = %v", metrics)
	}

	if rec := do(h, http.MethodGet, "/v1/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}

func TestCreateGenerationIsRateLimited(t *testing.T) {
	registry, err := providers.NewRegistry(providers.DefaultDescriptors(false))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	h := NewRouter(handlers.NewApp(&fakeEngine{job: runningJob()}, registry, nil, nil), RouterOptions{GenerationsPerMinute: 1})
	if rec := do(h, http.MethodPost, "/v1/generations", `{}`); rec.Code != http.StatusAccepted {
		t.Fatalf("first = %d, want 202", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/v1/generations", `{}`); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d, want 429", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/v1/generations/8f4e", ""); rec.Code != http.StatusOK {
		t.Fatalf("status polling must not be limited, got %d", rec.Code)
	}
}

func TestUserContextRoundTrip(t *testing.T) {
	registry, err := providers.NewRegistry(providers.DefaultDescriptors(false))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	app := handlers.NewApp(&fakeEngine{}, registry, nil, nil)
	app.Contexts = contextstore.NewMemory(nil)
	h := NewRouter(app, RouterOptions{})

	if rec := do(h, http.MethodGet, "/v1/contexts/shop-7", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing context = %d, want 404", rec.Code)
	}
	if rec := do(h, http.MethodPut, "/v1/contexts/shop-7", `{"content":"  "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank put = %d, want 400", rec.Code)
	}
	if rec := do(h, http.MethodPut, "/v1/contexts/shop-7", `{"content":"Family bakery in Bandung"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("put = %d, want 204", rec.Code)
	}
	out := decode(t, do(h, http.MethodGet, "/v1/contexts/shop-7", ""))
	if out["content"] != "Family bakery in Bandung" || out["user_key"] != "shop-7" {
		t.Fatalf("context = %v", out)
	}
}
