package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mediagen/internal/domain"
	"mediagen/internal/engine"
)

const maxRequestBody = 1 << 20

type generationRequest struct {
	Sources         []domain.SourceItem `json:"sources"`
	Handles         []string            `json:"handles"`
	Mode            string              `json:"mode"`
	DurationSeconds int                 `json:"duration_seconds"`
	MediaType       string              `json:"media_type"`
	UserKey         string              `json:"user_key"`
}

type startResponse struct {
	JobID      string `json:"job_id"`
	ProviderID string `json:"provider_id"`
	State      string `json:"state"`
}

type jobResponse struct {
	JobID           string     `json:"job_id"`
	ProviderID      string     `json:"provider_id"`
	MediaType       string     `json:"media_type"`
	State           string     `json:"state"`
	ProgressPercent int        `json:"progress_percent"`
	CompositionMode string     `json:"composition_mode"`
	SourceCount     int        `json:"source_count"`
	DurationSeconds int        `json:"duration_seconds"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	LastPolledAt    *time.Time `json:"last_polled_at,omitempty"`
	Error           string     `json:"error,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

func newJobResponse(job domain.GenerationJob) jobResponse {
	resp := jobResponse{
		JobID:           job.Handle,
		ProviderID:      job.ProviderID,
		MediaType:       string(job.MediaType),
		State:           string(job.State),
		ProgressPercent: job.ProgressPercent,
		CompositionMode: string(job.CompositionMode),
		SourceCount:     job.SourceCount,
		DurationSeconds: job.DurationSeconds,
		SubmittedAt:     job.SubmittedAt,
		Error:           job.ErrorCode(),
	}
	if !job.LastPolledAt.IsZero() {
		polled := job.LastPolledAt
		resp.LastPolledAt = &polled
	}
	if job.TerminalError != nil {
		resp.ErrorMessage = job.TerminalError.Error()
	}
	return resp
}

func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req generationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	mode, err := domain.ParseCompositionMode(req.Mode)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	mediaType, err := domain.ParseMediaType(req.MediaType)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	job, err := a.Engine.Start(r.Context(), engine.StartRequest{
		Sources:         req.Sources,
		Handles:         req.Handles,
		Mode:            mode,
		DurationSeconds: req.DurationSeconds,
		MediaType:       mediaType,
		UserKey:         req.UserKey,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/generations/"+job.Handle)
	a.json(w, http.StatusAccepted, startResponse{JobID: job.Handle, ProviderID: job.ProviderID, State: string(job.State)})
}

func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	job, err := a.Engine.Status(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newJobResponse(job))
}

func (a *App) GenerationArtifact(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	artifact, err := a.Engine.Artifact(r.Context(), jobID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	mime := artifact.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", artifactFilename(jobID, mime)))
	if artifact.URL != "" {
		w.Header().Set("X-Artifact-Source", artifact.URL)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}

func (a *App) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	job, err := a.Engine.Cancel(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newJobResponse(job))
}

func artifactFilename(jobID, mime string) string {
	switch mime {
	case "video/mp4":
		return jobID + ".mp4"
	case "image/png":
		return jobID + ".png"
	case "image/jpeg":
		return jobID + ".jpg"
	case "image/webp":
		return jobID + ".webp"
	default:
		return jobID
	}
}
