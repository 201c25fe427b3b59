package video

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"mediagen/internal/providers"
	"mediagen/internal/providers/genai"
)

// Veo submits text-to-video jobs to the Gemini API long-running operation
// endpoint and polls the returned operation.
type Veo struct {
	client      *genai.Client
	model       string
	aspectRatio string
}

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoInstance struct {
	Prompt string `json:"prompt"`
}

type veoParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	SampleCount     int    `json:"sampleCount,omitempty"`
}

type operation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Metadata struct {
		ProgressPercent int    `json:"progressPercent"`
		State           string `json:"state"`
	} `json:"metadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
			RAIMediaFilteredReasons []string `json:"raiMediaFilteredReasons"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// NewVeo wires a Veo model onto the shared Gemini client.
func NewVeo(client *genai.Client, model string) *Veo {
	model = strings.TrimSpace(model)
	if model == "" {
		model = "veo-3.0-generate-001"
	}
	return &Veo{client: client, model: model, aspectRatio: "9:16"}
}

func (v *Veo) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = v.aspectRatio
	}
	payload := veoRequest{
		Instances: []veoInstance{{Prompt: req.Prompt}},
		Parameters: veoParameters{
			AspectRatio:     aspect,
			DurationSeconds: req.DurationSeconds,
			SampleCount:     1,
		},
	}
	var op operation
	path := fmt.Sprintf("models/%s:predictLongRunning", url.PathEscape(v.model))
	if err := v.client.Do(ctx, http.MethodPost, path, payload, &op); err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", fmt.Errorf("veo: operation name missing from response")
	}
	v.client.Logger().Debug().
		Str("model", v.model).
		Str("operation", op.Name).
		Str("request_id", req.RequestID).
		Msg("veo: operation started")
	return op.Name, nil
}

func (v *Veo) Poll(ctx context.Context, jobID string) (providers.PollResult, error) {
	var op operation
	if err := v.client.Do(ctx, http.MethodGet, jobID, nil, &op); err != nil {
		return providers.PollResult{}, err
	}
	if !op.Done {
		state := providers.RemoteRunning
		if strings.EqualFold(op.Metadata.State, "queued") || strings.EqualFold(op.Metadata.State, "pending") {
			state = providers.RemoteQueued
		}
		return providers.PollResult{State: state, Progress: providers.ClampProgress(op.Metadata.ProgressPercent)}, nil
	}
	if op.Error != nil {
		return providers.PollResult{State: providers.RemoteFailed, Reason: op.Error.Message}, nil
	}
	result := providers.PollResult{State: providers.RemoteSucceeded, Progress: 100}
	if op.Response == nil {
		return result, nil
	}
	resp := op.Response.GenerateVideoResponse
	for _, sample := range resp.GeneratedSamples {
		if uri := strings.TrimSpace(sample.Video.URI); uri != "" {
			result.ArtifactRef = uri
			return result, nil
		}
	}
	if len(resp.RAIMediaFilteredReasons) > 0 {
		return providers.PollResult{State: providers.RemoteFailed, Reason: strings.Join(resp.RAIMediaFilteredReasons, "; ")}, nil
	}
	return result, nil
}

func (v *Veo) Fetch(ctx context.Context, artifactRef string) (*providers.Download, error) {
	dl, err := v.client.Download(ctx, artifactRef)
	if err != nil {
		return nil, err
	}
	if dl.MIME == "" {
		dl.MIME = "video/mp4"
	}
	return dl, nil
}

func (v *Veo) Cancel(ctx context.Context, jobID string) error {
	return v.client.Do(ctx, http.MethodPost, jobID+":cancel", struct{}{}, nil)
}

var (
	_ providers.Provider = (*Veo)(nil)
	_ providers.Canceler = (*Veo)(nil)
)
