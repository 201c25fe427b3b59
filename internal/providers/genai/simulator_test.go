package genai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"mediagen/internal/providers"
)

func TestSimulatorCompletesOnSchedule(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sim := NewSimulator(SimulatorOptions{Name: "synthetic-video", MIME: "video/mp4", QueueTime: time.Second, RenderTime: 4 * time.Second, Clock: clock})
	ctx := context.Background()

	id, err := sim.Submit(ctx, providers.SubmitRequest{Prompt: "a calm harbour", DurationSeconds: 8})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	tests := []struct {
		advance  time.Duration
		state    providers.RemoteState
		progress int
	}{
		{0, providers.RemoteQueued, 0},
		{3 * time.Second, providers.RemoteRunning, 50},
		{2 * time.Second, providers.RemoteSucceeded, 100},
	}
	var last providers.PollResult
	for _, tt := range tests {
		clock.Advance(tt.advance)
		last, err = sim.Poll(ctx, id)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		if last.State != tt.state || last.Progress != tt.progress {
			t.Fatalf("poll = %s/%d, want %s/%d", last.State, last.Progress, tt.state, tt.progress)
		}
	}
	dl, err := sim.Fetch(ctx, last.ArtifactRef)
	if err != nil || dl.MIME != "video/mp4" || len(dl.Data) == 0 {
		t.Fatalf("fetch = %+v, %v", dl, err)
	}
}

func TestSimulatorDropsOldestJobs(t *testing.T) {
	sim := NewSimulator(SimulatorOptions{Name: "synthetic-image", MIME: "image/png", Retain: 2, Clock: clockwork.NewFakeClock()})
	ctx := context.Background()

	var ids []string
	for _, prompt := range []string{"one", "two", "three"} {
		id, err := sim.Submit(ctx, providers.SubmitRequest{Prompt: prompt})
		if err != nil {
			t.Fatalf("submit %s: %v", prompt, err)
		}
		ids = append(ids, id)
	}
	if len(sim.jobs) != 2 {
		t.Fatalf("retained jobs = %d, want 2", len(sim.jobs))
	}

	_, err := sim.Poll(ctx, ids[0])
	var statusErr *providers.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("poll of dropped job err = %v, want 404", err)
	}
	if _, err := sim.Fetch(ctx, "synthetic://synthetic-image/"+ids[0]); !providers.IsExpired(err) {
		t.Fatalf("fetch of dropped job err = %v, want expired", err)
	}
	if _, err := sim.Poll(ctx, ids[2]); err != nil {
		t.Fatalf("poll of newest job: %v", err)
	}
}
