package handlers

import (
	"net/http"
	"time"

	"mediagen/internal/compose"
	"mediagen/internal/domain"
)

type providerView struct {
	ProviderID       string `json:"provider_id"`
	Kind             string `json:"kind"`
	Model            string `json:"model,omitempty"`
	AllowedDurations []int  `json:"allowed_durations,omitempty"`
	MaxPromptLength  int    `json:"max_prompt_length"`
	PollIntervalSecs int    `json:"poll_interval_seconds"`
	MaxWaitSecs      int    `json:"max_wait_seconds"`
}

// Providers lists the fallback chain for every media type in order.
func (a *App) Providers(w http.ResponseWriter, r *http.Request) {
	chains := map[string][]providerView{}
	for _, media := range []domain.MediaType{domain.MediaTypeVideo, domain.MediaTypeImage} {
		views := []providerView{}
		for _, d := range a.Registry.Chain(media) {
			views = append(views, providerView{
				ProviderID:       d.ProviderID,
				Kind:             d.Kind,
				Model:            d.Model,
				AllowedDurations: d.AllowedDurations,
				MaxPromptLength:  d.MaxPromptLength,
				PollIntervalSecs: int(d.PollInterval / time.Second),
				MaxWaitSecs:      int(d.MaxWait / time.Second),
			})
		}
		chains[string(media)] = views
	}
	a.json(w, http.StatusOK, map[string]any{"chains": chains})
}

func (a *App) ScriptSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(compose.Schema())
}
