package gateway

import (
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"

	"mediagen/internal/infra"
	"mediagen/internal/providers"
	"mediagen/internal/providers/genai"
	"mediagen/internal/providers/image"
	"mediagen/internal/providers/qwen"
	"mediagen/internal/providers/video"
)

// Credentials carries the per-vendor settings used to build providers.
type Credentials struct {
	GeminiAPIKey     string
	GeminiBaseURL    string
	DashScopeAPIKey  string
	DashScopeBaseURL string
	HTTPClient       *http.Client
}

// BuildProviders instantiates one provider per descriptor according to its kind.
func BuildProviders(registry *providers.Registry, creds Credentials, clock clockwork.Clock, logger *infra.Logger) (map[string]providers.Provider, error) {
	gemini, err := genai.NewClient(genai.Options{
		APIKey:     creds.GeminiAPIKey,
		BaseURL:    creds.GeminiBaseURL,
		HTTPClient: creds.HTTPClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: gemini client: %w", err)
	}

	out := make(map[string]providers.Provider)
	for _, d := range registry.Descriptors() {
		switch d.Kind {
		case providers.KindVeo:
			out[d.ProviderID] = video.NewVeo(gemini, d.Model)
		case providers.KindGeminiImage:
			out[d.ProviderID] = image.NewGemini(gemini, d.Model)
		case providers.KindDashScope:
			client, err := qwen.NewClient(qwen.Options{
				APIKey:     creds.DashScopeAPIKey,
				BaseURL:    creds.DashScopeBaseURL,
				Model:      d.Model,
				HTTPClient: creds.HTTPClient,
				Logger:     logger,
			})
			if err != nil {
				return nil, fmt.Errorf("gateway: dashscope client for %s: %w", d.ProviderID, err)
			}
			out[d.ProviderID] = image.NewDashScope(client)
		case providers.KindSyntheticVideo:
			out[d.ProviderID] = video.NewSynthetic(clock)
		case providers.KindSyntheticImage:
			out[d.ProviderID] = image.NewSynthetic(clock)
		default:
			return nil, fmt.Errorf("gateway: provider %s has unknown kind %q", d.ProviderID, d.Kind)
		}
	}
	return out, nil
}
