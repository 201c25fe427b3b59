package image

import (
	"context"
	"strings"

	"mediagen/internal/providers"
	"mediagen/internal/providers/qwen"
)

// DefaultNegativePrompt steers the model away from common artifacts.
const DefaultNegativePrompt = "blurry, low quality, watermark, distorted text, extra limbs"

// DashScope adapts the asynchronous wanx task API to the provider contract.
type DashScope struct {
	client *qwen.Client
}

// NewDashScope wraps a configured DashScope client.
func NewDashScope(client *qwen.Client) *DashScope {
	return &DashScope{client: client}
}

func (d *DashScope) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	return d.client.CreateTask(ctx, qwen.TaskRequest{
		Prompt:         req.Prompt,
		NegativePrompt: DefaultNegativePrompt,
		Size:           AspectRatioSize(req.AspectRatio),
		RequestID:      req.RequestID,
	})
}

func (d *DashScope) Poll(ctx context.Context, jobID string) (providers.PollResult, error) {
	task, err := d.client.GetTask(ctx, jobID)
	if err != nil {
		return providers.PollResult{}, err
	}
	switch task.Status {
	case "PENDING":
		return providers.PollResult{State: providers.RemoteQueued}, nil
	case "RUNNING":
		return providers.PollResult{State: providers.RemoteRunning, Progress: 50}, nil
	case "SUCCEEDED":
		result := providers.PollResult{State: providers.RemoteSucceeded, Progress: 100}
		if len(task.URLs) > 0 {
			result.ArtifactRef = task.URLs[0]
		}
		return result, nil
	case "CANCELED":
		return providers.PollResult{State: providers.RemoteCancelled, Reason: "cancelled"}, nil
	case "FAILED", "UNKNOWN":
		reason := strings.TrimSpace(task.Message)
		if reason == "" {
			reason = strings.ToLower(task.Status)
		}
		if task.Code != "" {
			reason = task.Code + ": " + reason
		}
		return providers.PollResult{State: providers.RemoteFailed, Reason: reason}, nil
	default:
		return providers.PollResult{State: providers.RemoteRunning}, nil
	}
}

func (d *DashScope) Fetch(ctx context.Context, artifactRef string) (*providers.Download, error) {
	return d.client.Download(ctx, artifactRef)
}

func (d *DashScope) Cancel(ctx context.Context, jobID string) error {
	return d.client.CancelTask(ctx, jobID)
}

// AspectRatioSize maps an aspect ratio onto a wanx output size.
func AspectRatioSize(aspect string) string {
	switch strings.TrimSpace(aspect) {
	case "16:9":
		return "1664*928"
	case "4:3":
		return "1472*1104"
	case "3:4":
		return "1104*1472"
	case "9:16":
		return "928*1664"
	default:
		return "1328*1328"
	}
}

var (
	_ providers.Provider = (*DashScope)(nil)
	_ providers.Canceler = (*DashScope)(nil)
)
