// Package ingest turns external handles (social-media usernames) into
// analyzed source items.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
)

// ErrNotConfigured is returned when no ingestion backend is available.
var ErrNotConfigured = errors.New("ingest: no ingestion backend configured")

// Options configures the HTTP ingestion client.
type Options struct {
	BaseURL    string
	APIKey     string
	Limit      int
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client fetches analyzed clips from the scraping service.
type Client struct {
	baseURL    string
	apiKey     string
	limit      int
	httpClient *http.Client
	logger     *infra.Logger
}

type itemsResponse struct {
	Items []struct {
		ID                string   `json:"id"`
		Transcript        string   `json:"transcript"`
		Caption           string   `json:"caption"`
		VisualDescriptors []string `json:"visual_descriptors"`
		Engagement        *float64 `json:"engagement"`
	} `json:"items"`
}

func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
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
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		limit:      limit,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Fetch returns the most recent analyzed clips published by handle.
func (c *Client) Fetch(ctx context.Context, handle string) ([]domain.SourceItem, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return nil, fmt.Errorf("ingest: handle is required: %w", domain.ErrInvalidRequest)
	}
	endpoint := fmt.Sprintf("%s/v1/profiles/%s/videos?limit=%s", c.baseURL, url.PathEscape(handle), strconv.Itoa(c.limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ingest: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ingest: fetch %s: %w", handle, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ingest: fetch %s: status %d: %s", handle, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded itemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("ingest: decode %s: %w", handle, err)
	}
	items := make([]domain.SourceItem, 0, len(decoded.Items))
	for _, it := range decoded.Items {
		id := it.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", handle, len(items)+1)
		}
		items = append(items, domain.SourceItem{
			SourceID:          id,
			Transcript:        it.Transcript,
			Caption:           it.Caption,
			VisualDescriptors: it.VisualDescriptors,
			EngagementSignal:  it.Engagement,
		})
	}
	c.logger.Debug().Str("handle", handle).Int("items", len(items)).Msg("ingest: fetched")
	return items, nil
}

// Static serves fixed items per handle; useful for demos and tests.
type Static map[string][]domain.SourceItem

func (s Static) Fetch(ctx context.Context, handle string) ([]domain.SourceItem, error) {
	items, ok := s[strings.TrimPrefix(strings.TrimSpace(handle), "@")]
	if !ok {
		return nil, fmt.Errorf("ingest: unknown handle %q: %w", handle, domain.ErrNotFound)
	}
	return append([]domain.SourceItem(nil), items...), nil
}

// Disabled rejects every handle; used when no backend is configured.
type Disabled struct{}

func (Disabled) Fetch(ctx context.Context, handle string) ([]domain.SourceItem, error) {
	return nil, ErrNotConfigured
}
