package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"mediagen/internal/providers"
)

func newTestClient(t *testing.T, transport *captureTransport) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:     "test",
		BaseURL:    "https://dashscope.test/api/v1",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCreateTaskPayload(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)
	transport.setJSONResponse("/api/v1/services/aigc/text2image/image-synthesis", map[string]any{
		"output":     map[string]any{"task_id": "task-1", "task_status": "PENDING"},
		"request_id": "req-1",
	})

	id, err := client.CreateTask(context.Background(), TaskRequest{Prompt: "  a red kite  ", Size: "928*1664"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if id != "task-1" {
		t.Fatalf("task id = %q, want task-1", id)
	}
	if got := transport.lastHeader.Get("X-DashScope-Async"); got != "enable" {
		t.Fatalf("async header = %q, want enable", got)
	}
	if got := transport.lastHeader.Get("Authorization"); got != "Bearer test" {
		t.Fatalf("authorization = %q, want Bearer test", got)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if model := payload["model"]; model != "wan2.2-t2i-flash" {
		t.Fatalf("model = %v, want wan2.2-t2i-flash", model)
	}
	input := payload["input"].(map[string]any)
	if prompt := input["prompt"]; prompt != "a red kite" {
		t.Fatalf("prompt = %v, want trimmed prompt", prompt)
	}
	params := payload["parameters"].(map[string]any)
	if size := params["size"]; size != "928*1664" {
		t.Fatalf("size = %v, want 928*1664", size)
	}
	if n := params["n"]; n != float64(1) {
		t.Fatalf("n = %v, want 1", n)
	}
}

func TestCreateTaskRequiresCredentials(t *testing.T) {
	client, _ := NewClient(Options{})
	if _, err := client.CreateTask(context.Background(), TaskRequest{Prompt: "x"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestCreateTaskDecodesAPIError(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)
	body, _ := json.Marshal(map[string]any{"code": "DataInspectionFailed", "message": "input data may contain inappropriate content"})
	transport.responses["/api/v1/services/aigc/text2image/image-synthesis"] = responseStub{status: http.StatusBadRequest, body: body}

	_, err := client.CreateTask(context.Background(), TaskRequest{Prompt: "something"})
	var statusErr *providers.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *providers.StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Code != "DataInspectionFailed" {
		t.Fatalf("status error = %+v", statusErr)
	}
}

func TestGetTaskNormalizesResults(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)
	transport.setJSONResponse("https://dashscope.test/api/v1/tasks/task-1", map[string]any{
		"output": map[string]any{
			"task_id":     "task-1",
			"task_status": "succeeded",
			"results": []any{
				map[string]any{"code": "DataInspectionFailed", "message": "filtered"},
				map[string]any{"url": "https://oss.example.com/out.png"},
			},
		},
	})

	task, err := client.GetTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.Status != "SUCCEEDED" {
		t.Fatalf("status = %q, want SUCCEEDED", task.Status)
	}
	if len(task.URLs) != 1 || task.URLs[0] != "https://oss.example.com/out.png" {
		t.Fatalf("urls = %v", task.URLs)
	}
	if task.Code != "DataInspectionFailed" {
		t.Fatalf("code = %q, want DataInspectionFailed", task.Code)
	}
}

func TestDownloadTreatsForbiddenAsExpired(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)
	transport.responses["https://oss.example.com/old.png"] = responseStub{status: http.StatusForbidden, body: []byte("AccessDenied")}
	transport.setBinaryResponse("https://oss.example.com/new.png", []byte{0x89, 'P', 'N', 'G'})

	if _, err := client.Download(context.Background(), "https://oss.example.com/old.png"); !providers.IsExpired(err) {
		t.Fatalf("err = %v, want expired", err)
	}
	dl, err := client.Download(context.Background(), "https://oss.example.com/new.png")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if dl.MIME != "image/png" || len(dl.Data) != 4 {
		t.Fatalf("download = %+v", dl)
	}
}

type captureTransport struct {
	responses  map[string]responseStub
	lastBody   []byte
	lastHeader http.Header
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.lastHeader = req.Header.Clone()
	if req.Method == http.MethodPost {
		if req.Body != nil {
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			req.Body.Close()
			c.lastBody = body
		}
		if stub, ok := c.responses[req.URL.Path]; ok {
			return stub.toResponse(), nil
		}
	}
	if req.Method == http.MethodGet {
		if stub, ok := c.responses[req.URL.String()]; ok {
			return stub.toResponse(), nil
		}
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func (c *captureTransport) setJSONResponse(path string, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (c *captureTransport) setBinaryResponse(url string, data []byte) {
	c.responses[url] = responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"image/png"}},
		body:   data,
	}
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{}
	for k, values := range s.header {
		cloned := make([]string, len(values))
		copy(cloned, values)
		header[k] = cloned
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}
