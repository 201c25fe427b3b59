package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/infra"
	"mediagen/internal/providers"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = fmt.Errorf("dashscope: api key is required: %w", providers.ErrNotConfigured)

// Options configures the DashScope client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	DefaultSize    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to the DashScope asynchronous text-to-image task API.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	defaultSize string
	httpClient  *http.Client
	logger      *infra.Logger
}

// TaskRequest captures the inputs for one image synthesis task.
type TaskRequest struct {
	Prompt         string
	NegativePrompt string
	Size           string
	RequestID      string
}

// Task is the normalized state of a DashScope task.
type Task struct {
	ID      string
	Status  string
	URLs    []string
	Code    string
	Message string
}

type synthesisRequest struct {
	Model      string          `json:"model"`
	Input      synthesisInput  `json:"input"`
	Parameters synthesisParams `json:"parameters"`
}

type synthesisInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type synthesisParams struct {
	Size string `json:"size,omitempty"`
	N    int    `json:"n"`
}

type taskResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		Results    []struct {
			URL     string `json:"url"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"results"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "wan2.2-t2i-flash"
	}
	defaultSize := strings.TrimSpace(opts.DefaultSize)
	if defaultSize == "" {
		defaultSize = "1024*1024"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     baseURL,
		model:       model,
		defaultSize: defaultSize,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// CreateTask starts an asynchronous synthesis task and returns its id.
func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", &providers.StatusError{Provider: "dashscope", StatusCode: http.StatusBadRequest, Code: "InvalidParameter", Message: "prompt is required"}
	}
	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = c.defaultSize
	}
	payload := synthesisRequest{
		Model: c.model,
		Input: synthesisInput{
			Prompt:         prompt,
			NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		},
		Parameters: synthesisParams{Size: size, N: 1},
	}
	var decoded taskResponse
	headers := map[string]string{"X-DashScope-Async": "enable"}
	if err := c.call(ctx, http.MethodPost, "/services/aigc/text2image/image-synthesis", payload, headers, &decoded); err != nil {
		return "", err
	}
	if decoded.Output.TaskID == "" {
		return "", fmt.Errorf("dashscope: task id missing (request %s)", decoded.RequestID)
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("task_id", decoded.Output.TaskID).
		Str("request_id", req.RequestID).
		Msg("dashscope: task created")
	return decoded.Output.TaskID, nil
}

// GetTask fetches the current state of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var decoded taskResponse
	if err := c.call(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil, nil, &decoded); err != nil {
		return nil, err
	}
	task := &Task{
		ID:      decoded.Output.TaskID,
		Status:  strings.ToUpper(decoded.Output.TaskStatus),
		Code:    decoded.Output.Code,
		Message: decoded.Output.Message,
	}
	for _, r := range decoded.Output.Results {
		if u := strings.TrimSpace(r.URL); u != "" {
			task.URLs = append(task.URLs, u)
		} else if task.Message == "" && r.Message != "" {
			task.Code, task.Message = r.Code, r.Message
		}
	}
	return task, nil
}

// CancelTask cancels a task that has not started running yet.
func (c *Client) CancelTask(ctx context.Context, taskID string) error {
	return c.call(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/cancel", nil, nil, nil)
}

// Download retrieves a generated image from its (expiring) result URL.
func (c *Client) Download(ctx context.Context, imageURL string) (*providers.Download, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return nil, fmt.Errorf("dashscope: invalid image url: %s", imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dashscope: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dashscope: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		// Result URLs are signed object-store links; an expired signature
		// answers 403 rather than 404.
		status := resp.StatusCode
		if status == http.StatusForbidden {
			status = http.StatusGone
		}
		return nil, &providers.StatusError{Provider: "dashscope", StatusCode: status, Message: "download failed"}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dashscope: read image: %w", err)
	}
	format := resp.Header.Get("Content-Type")
	if format == "" {
		format = "image/png"
	}
	return &providers.Download{Data: data, MIME: format}, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload any, headers map[string]string, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("dashscope: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("dashscope: build request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("dashscope: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("dashscope: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		statusErr := &providers.StatusError{Provider: "dashscope", StatusCode: resp.StatusCode}
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			statusErr.Code, statusErr.Message = detail.Code, detail.Message
		} else {
			statusErr.Message = strings.TrimSpace(string(raw))
		}
		return statusErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("dashscope: decode response: %w", err)
	}
	return nil
}
