package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"mediagen/internal/providers"
	"mediagen/internal/providers/genai"
)

const geminiRefPrefix = "gemini-image://"

// retainedResults bounds how many generated images stay fetchable in memory.
const retainedResults = 64

// Gemini generates images synchronously through generateContent. The result
// is held in memory so the submit/poll/fetch contract still applies: Poll
// answers succeeded immediately and Fetch returns the held bytes.
type Gemini struct {
	client      *genai.Client
	model       string
	aspectRatio string

	mu      sync.Mutex
	results map[string]*providers.Download
	order   []string
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type content struct {
	Role  string        `json:"role,omitempty"`
	Parts []contentPart `json:"parts,omitempty"`
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

// NewGemini wires an image model onto the shared Gemini client.
func NewGemini(client *genai.Client, model string) *Gemini {
	model = strings.TrimSpace(model)
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	return &Gemini{
		client:      client,
		model:       model,
		aspectRatio: "1:1",
		results:     make(map[string]*providers.Download),
	}
}

func (g *Gemini) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = g.aspectRatio
	}
	payload := generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []contentPart{{Text: req.Prompt}},
		}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			ImageConfig:        &imageConfig{AspectRatio: aspect},
		},
	}
	var resp generateContentResponse
	path := fmt.Sprintf("models/%s:generateContent", url.PathEscape(g.model))
	if err := g.client.Do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", err
	}

	dl, err := firstImage(resp)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	g.keep(id, dl)
	g.client.Logger().Debug().
		Str("model", g.model).
		Str("job_id", id).
		Str("request_id", req.RequestID).
		Int("bytes", len(dl.Data)).
		Msg("gemini-image: generated")
	return id, nil
}

func (g *Gemini) Poll(ctx context.Context, jobID string) (providers.PollResult, error) {
	g.mu.Lock()
	_, ok := g.results[jobID]
	g.mu.Unlock()
	if !ok {
		return providers.PollResult{}, &providers.StatusError{Provider: "gemini-image", StatusCode: http.StatusNotFound, Message: "job not found"}
	}
	return providers.PollResult{State: providers.RemoteSucceeded, Progress: 100, ArtifactRef: geminiRefPrefix + jobID}, nil
}

func (g *Gemini) Fetch(ctx context.Context, artifactRef string) (*providers.Download, error) {
	id := strings.TrimPrefix(artifactRef, geminiRefPrefix)
	g.mu.Lock()
	dl, ok := g.results[id]
	g.mu.Unlock()
	if !ok {
		return nil, &providers.StatusError{Provider: "gemini-image", StatusCode: http.StatusGone, Message: "artifact expired"}
	}
	return &providers.Download{Data: dl.Data, MIME: dl.MIME}, nil
}

func (g *Gemini) keep(id string, dl *providers.Download) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results[id] = dl
	g.order = append(g.order, id)
	for len(g.order) > retainedResults {
		delete(g.results, g.order[0])
		g.order = g.order[1:]
	}
}

func firstImage(resp generateContentResponse) (*providers.Download, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, &providers.StatusError{Provider: "gemini-image", StatusCode: http.StatusBadRequest, Code: resp.PromptFeedback.BlockReason, Message: "prompt blocked by safety policy"}
	}
	var finish string
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline data: %w", err)
			}
			mime := part.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			return &providers.Download{Data: data, MIME: mime}, nil
		}
		if finish == "" {
			finish = candidate.FinishReason
		}
	}
	switch finish {
	case "SAFETY", "PROHIBITED_CONTENT", "IMAGE_SAFETY", "BLOCKLIST":
		return nil, &providers.StatusError{Provider: "gemini-image", StatusCode: http.StatusBadRequest, Code: finish, Message: "image blocked by safety policy"}
	}
	return nil, fmt.Errorf("gemini-image: no image content returned (finish reason %q)", finish)
}

var _ providers.Provider = (*Gemini)(nil)
