package genai

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"mediagen/internal/providers"
)

// SimulatorOptions configures a Simulator.
type SimulatorOptions struct {
	Name       string
	MIME       string
	QueueTime  time.Duration
	RenderTime time.Duration
	Clock      clockwork.Clock
	Render     func(seed, prompt string, durationSeconds int) []byte
	// Retain bounds how many jobs stay pollable; the oldest are dropped first.
	Retain int
}

const defaultRetainedJobs = 1024

// Simulator is an in-process provider that produces deterministic synthetic
// artifacts on a schedule. It keeps the whole pipeline exercisable when no
// provider credentials are configured.
type Simulator struct {
	opts SimulatorOptions

	mu    sync.Mutex
	jobs  map[string]*simJob
	order []string
}

type simJob struct {
	prompt    string
	duration  int
	started   time.Time
	cancelled bool
}

// NewSimulator applies defaults and returns a ready simulator.
func NewSimulator(opts SimulatorOptions) *Simulator {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Name == "" {
		opts.Name = "synthetic"
	}
	if opts.RenderTime <= 0 {
		opts.RenderTime = 6 * time.Second
	}
	if opts.Render == nil {
		opts.Render = RenderVideo
	}
	if opts.Retain <= 0 {
		opts.Retain = defaultRetainedJobs
	}
	return &Simulator{opts: opts, jobs: make(map[string]*simJob)}
}

func (s *Simulator) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", &providers.StatusError{Provider: s.opts.Name, StatusCode: http.StatusBadRequest, Message: "invalid argument: prompt is empty"}
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.jobs[id] = &simJob{prompt: req.Prompt, duration: req.DurationSeconds, started: s.opts.Clock.Now()}
	s.order = append(s.order, id)
	for len(s.order) > s.opts.Retain {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}
	s.mu.Unlock()
	return id, nil
}

func (s *Simulator) Poll(ctx context.Context, jobID string) (providers.PollResult, error) {
	if err := ctx.Err(); err != nil {
		return providers.PollResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return providers.PollResult{}, &providers.StatusError{Provider: s.opts.Name, StatusCode: http.StatusNotFound, Message: "job not found"}
	}
	if job.cancelled {
		return providers.PollResult{State: providers.RemoteCancelled, Reason: "cancelled"}, nil
	}
	elapsed := s.opts.Clock.Since(job.started)
	if elapsed < s.opts.QueueTime {
		return providers.PollResult{State: providers.RemoteQueued}, nil
	}
	rendered := elapsed - s.opts.QueueTime
	if rendered < s.opts.RenderTime {
		progress := int(rendered * 100 / s.opts.RenderTime)
		return providers.PollResult{State: providers.RemoteRunning, Progress: progress}, nil
	}
	return providers.PollResult{State: providers.RemoteSucceeded, Progress: 100, ArtifactRef: "synthetic://" + s.opts.Name + "/" + jobID}, nil
}

func (s *Simulator) Fetch(ctx context.Context, artifactRef string) (*providers.Download, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jobID := artifactRef[strings.LastIndex(artifactRef, "/")+1:]
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok || job.cancelled {
		return nil, &providers.StatusError{Provider: s.opts.Name, StatusCode: http.StatusGone, Message: "artifact expired"}
	}
	seed := Seed(s.opts.Name, jobID, job.prompt)
	return &providers.Download{Data: s.opts.Render(seed, job.prompt, job.duration), MIME: s.opts.MIME}, nil
}

func (s *Simulator) Cancel(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.cancelled = true
	}
	return nil
}

var (
	_ providers.Provider = (*Simulator)(nil)
	_ providers.Canceler = (*Simulator)(nil)
)
